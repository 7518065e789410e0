package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"vcard-service/internal/service"
	"vcard-service/internal/util"
)

// DeviceHeader identifies the browser profile that owns the request.
const DeviceHeader = "X-Device-ID"

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var errMissingDevice = errors.New("missing or invalid " + DeviceHeader + " header")

type ctxKey struct{}

// DeviceMiddleware resolves the SessionService of the calling device.
func DeviceMiddleware(services *service.ServiceFactory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(DeviceHeader)
			if !deviceIDPattern.MatchString(id) {
				respondWithError(w, http.StatusBadRequest, errMissingDevice, "Device identification required")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, services.SessionService(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(r *http.Request) *service.SessionService {
	return r.Context().Value(ctxKey{}).(*service.SessionService)
}

// RedirectPayload is the data of a request refused by the navigation guard.
type RedirectPayload struct {
	Redirect string `json:"redirect"`
}

// RequireRoute refuses the request with 409 when the navigation guard would
// not show route to this device.
func RequireRoute(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			permitted, err := sessionFrom(r).PermittedRoute(r.Context(), route)
			if err != nil {
				util.Error("Navigation guard failed", util.String("route", route), util.ErrorField(err))
				respondWithError(w, http.StatusInternalServerError, err, "Failed to resolve route")
				return
			}
			if permitted != route {
				respondWithJSON(w, http.StatusConflict, Response{
					Success: false,
					Data:    RedirectPayload{Redirect: permitted},
					Error:   "route not permitted",
					Message: "Redirect to " + permitted,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
