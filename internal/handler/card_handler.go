package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vcard-service/internal/catalog"
	"vcard-service/internal/issuer"
	"vcard-service/internal/model"
	"vcard-service/internal/navigation"
	"vcard-service/internal/service"
	"vcard-service/internal/util"
)

const maxBodyBytes = 1 << 16

// CardHandler serves the card lifecycle API.
type CardHandler struct {
	services *service.ServiceFactory
	logger   *zap.Logger
}

func NewCardHandler(services *service.ServiceFactory, logger *zap.Logger) *CardHandler {
	return &CardHandler{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

// RegisterRoutes registers all card routes
func (h *CardHandler) RegisterRoutes(router chi.Router) {
	router.Get("/catalog", h.GetCatalog)
	router.Get("/quote", h.GetQuote)

	router.Group(func(r chi.Router) {
		r.Use(DeviceMiddleware(h.services))

		r.Get("/route", h.ResolveRoute)
		r.Post("/intro/ack", h.AcknowledgeIntro)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Get("/login-hint", h.GetLoginHint)
			r.With(RequireRoute(navigation.RouteLogin)).Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.With(RequireRoute(navigation.RouteCreate)).Post("/cards", h.CreateCard)

		r.Route("/cards/active", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(RequireRoute(navigation.RoutePayment))
				r.Get("/payment", h.GetPaymentIntent)
				r.Post("/confirm", h.ConfirmPayment)
			})
			r.Group(func(r chi.Router) {
				r.Use(RequireRoute(navigation.RouteActive))
				r.Post("/present", h.PresentActiveCard)
				r.Get("/countdown", h.GetCountdown)
				r.Delete("/present", h.DismissActiveCard)
			})
		})

		r.With(RequireRoute(navigation.RouteActive)).Post("/cards/{id}/expire", h.ExpireCard)

		r.Group(func(r chi.Router) {
			r.Use(RequireRoute(navigation.RouteDashboard))
			r.Get("/history", h.GetHistory)
			r.Get("/dashboard", h.GetDashboard)
		})
	})
}

// ==============================
// Reference data
// ==============================

func (h *CardHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, successResponse(catalog.Current(), ""))
}

func (h *CardHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount_usd"), 64)
	if err != nil || amount <= 0 {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("%w: amount_usd must be a positive number", service.ErrInvalidInput), "Invalid amount")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(issuer.Quote(amount), ""))
}

func (h *CardHandler) ResolveRoute(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("path")
	if requested == "" || !strings.HasPrefix(requested, "/") {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("%w: path must start with /", service.ErrInvalidInput), "Invalid path")
		return
	}
	permitted, err := sessionFrom(r).PermittedRoute(r.Context(), requested)
	if err != nil {
		h.internalError(w, err, "Failed to resolve route")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(RedirectPayload{Redirect: permitted}, ""))
}

// ==============================
// Identity
// ==============================

func (h *CardHandler) AcknowledgeIntro(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).AcknowledgeIntro(r.Context()); err != nil {
		h.internalError(w, err, "Failed to save intro flag")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Intro acknowledged"))
}

func (h *CardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := sessionFrom(r).Snapshot(r.Context())
	if err != nil {
		h.internalError(w, err, "Failed to load session")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(snap, ""))
}

func (h *CardHandler) GetLoginHint(w http.ResponseWriter, r *http.Request) {
	hint, err := sessionFrom(r).LoginHint(r.Context())
	if err != nil {
		h.internalError(w, err, "Failed to load login hint")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(hint, ""))
}

func (h *CardHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.UserProfile
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	for _, field := range []string{req.Name, req.Email, req.Phone} {
		if util.ContainsSuspicious(field) {
			respondWithError(w, http.StatusBadRequest, service.ErrInvalidProfile, "Invalid characters in profile")
			return
		}
	}

	user, err := sessionFrom(r).Login(r.Context(), req)
	if err != nil {
		h.respondWithServiceError(w, err, "Login failed")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(user, "Logged in"))
}

func (h *CardHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).Logout(r.Context()); err != nil {
		h.internalError(w, err, "Logout failed")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
}

// ==============================
// Cards
// ==============================

func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := service.ValidateCreateRequest(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid card request")
		return
	}

	tx, err := sessionFrom(r).CreateTransaction(r.Context(), req)
	if err != nil {
		h.internalError(w, err, "Failed to create card")
		return
	}
	respondWithJSON(w, http.StatusCreated, successResponse(tx, "Card created"))
}

func (h *CardHandler) GetPaymentIntent(w http.ResponseWriter, r *http.Request) {
	intent, err := sessionFrom(r).PaymentIntent(r.Context())
	if err != nil {
		h.internalError(w, err, "Failed to build payment request")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(intent, ""))
}

func (h *CardHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	tx, err := sessionFrom(r).ConfirmPayment(r.Context())
	if err != nil {
		h.internalError(w, err, "Failed to confirm payment")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(tx, ""))
}

func (h *CardHandler) PresentActiveCard(w http.ResponseWriter, r *http.Request) {
	view, err := sessionFrom(r).PresentActiveCard(r.Context())
	if err != nil {
		h.internalError(w, err, "Failed to present card")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(view, ""))
}

func (h *CardHandler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, successResponse(sessionFrom(r).Countdown(), ""))
}

func (h *CardHandler) DismissActiveCard(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).DismissActiveCard()
	respondWithJSON(w, http.StatusOK, successResponse(nil, ""))
}

func (h *CardHandler) ExpireCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := sessionFrom(r).Expire(r.Context(), id); err != nil {
		h.internalError(w, err, "Failed to expire card")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Card expired"))
}

func (h *CardHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := sessionFrom(r).History(r.Context())
	if err != nil {
		h.internalError(w, err, "Failed to load history")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(history, ""))
}

func (h *CardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := sessionFrom(r).Dashboard(r.Context())
	if err != nil {
		h.internalError(w, err, "Failed to build dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(summary, ""))
}

// ==============================
// Helpers
// ==============================

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	return nil
}

func (h *CardHandler) respondWithServiceError(w http.ResponseWriter, err error, message string) {
	code := getStatusCode(err)
	if code >= http.StatusInternalServerError {
		h.internalError(w, err, message)
		return
	}
	respondWithError(w, code, err, message)
}

func (h *CardHandler) internalError(w http.ResponseWriter, err error, message string) {
	h.logger.Error(message, util.ErrorField(err))
	respondWithError(w, http.StatusInternalServerError, err, message)
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	respondWithJSON(w, statusCode, errorResponse(err, message))
}

func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidProfile), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
