package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"vcard-service/internal/catalog"
	"vcard-service/internal/client"
	"vcard-service/internal/events"
	"vcard-service/internal/model"
	"vcard-service/internal/service"
	"vcard-service/internal/util"
)

func init() {
	util.SetLogger(zap.NewNop())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	recorder *events.Recorder
}

func newTestServer(t *testing.T, health HealthFunc) *testServer {
	t.Helper()
	recorder := events.NewRecorder()
	services := service.NewServiceFactory(client.NewMemoryClient(), service.Deps{
		Clock:   clockwork.NewFakeClock(),
		Emitter: recorder,
	}, zap.NewNop())
	t.Cleanup(services.Cleanup)

	router := NewRouter(NewCardHandler(services, zap.NewNop()), health, []string{"*"}, zap.NewNop())
	return &testServer{t: t, handler: router, recorder: recorder}
}

func (s *testServer) do(method, path, device string, body any) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if device != "" {
		req.Header.Set(DeviceHeader, device)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectRedirect(t *testing.T, code int, env envelope, want string) {
	t.Helper()
	if code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%+v)", code, env)
	}
	var p RedirectPayload
	decodeData(t, env, &p)
	if p.Redirect != want {
		t.Fatalf("expected redirect to %s, got %s", want, p.Redirect)
	}
}

func TestCardLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	const device = "device-1"

	code, env := srv.do(http.MethodPost, "/api/v1/cards", device, model.CreateCardRequest{})
	expectRedirect(t, code, env, "/intro")

	if code, _ := srv.do(http.MethodPost, "/api/v1/intro/ack", device, nil); code != http.StatusOK {
		t.Fatalf("intro ack: expected 200, got %d", code)
	}

	code, env = srv.do(http.MethodGet, "/api/v1/history", device, nil)
	expectRedirect(t, code, env, "/login")

	code, env = srv.do(http.MethodPost, "/api/v1/session/login", device, model.UserProfile{Name: "Asha", Email: "a@x.com", Phone: "9876543210"})
	if code != http.StatusOK || !env.Success {
		t.Fatalf("login: expected 200, got %d (%+v)", code, env)
	}

	code, env = srv.do(http.MethodPost, "/api/v1/cards", device, model.CreateCardRequest{
		Platform: "netflix", Network: "visa", Bank: "hdfc", AmountUsd: 15, Color: "Midnight",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%+v)", code, env)
	}
	var tx model.CardTransaction
	decodeData(t, env, &tx)
	if tx.AmountInr != 1279 || tx.Status != model.StatusActive {
		t.Fatalf("unexpected card %+v", tx)
	}

	code, env = srv.do(http.MethodGet, "/api/v1/cards/active/payment", device, nil)
	var intent model.PaymentIntent
	decodeData(t, env, &intent)
	if code != http.StatusOK || intent.TransactionID != tx.ID || intent.AmountInr != 1279 {
		t.Fatalf("unexpected payment intent %d %+v", code, intent)
	}

	if code, env = srv.do(http.MethodPost, "/api/v1/cards/active/confirm", device, nil); code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d (%+v)", code, env)
	}

	code, env = srv.do(http.MethodPost, "/api/v1/cards/active/present", device, nil)
	var view model.CountdownView
	decodeData(t, env, &view)
	if code != http.StatusOK || view.SecondsRemaining != 600 || view.TransactionID != tx.ID {
		t.Fatalf("unexpected countdown %d %+v", code, view)
	}

	if code, env = srv.do(http.MethodPost, "/api/v1/cards/"+tx.ID+"/expire", device, nil); code != http.StatusOK {
		t.Fatalf("expire: expected 200, got %d (%+v)", code, env)
	}

	code, env = srv.do(http.MethodGet, "/api/v1/history", device, nil)
	var history []model.CardTransaction
	decodeData(t, env, &history)
	if code != http.StatusOK || len(history) != 1 || history[0].Status != model.StatusExpired {
		t.Fatalf("unexpected history %d %+v", code, history)
	}

	code, env = srv.do(http.MethodGet, "/api/v1/dashboard", device, nil)
	var summary model.DashboardSummary
	decodeData(t, env, &summary)
	if code != http.StatusOK || summary.TotalSpentInr != 1279 || summary.ActiveCount != 0 || len(summary.Recent) != 1 {
		t.Fatalf("unexpected dashboard %d %+v", code, summary)
	}

	code, env = srv.do(http.MethodGet, "/api/v1/cards/active/countdown", device, nil)
	decodeData(t, env, &view)
	if code != http.StatusOK || !view.Expired || view.RefundPhase != model.RefundProcessing {
		t.Fatalf("unexpected countdown after expiry %d %+v", code, view)
	}

	if code, _ := srv.do(http.MethodPost, "/api/v1/session/logout", device, nil); code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", code)
	}
	code, env = srv.do(http.MethodGet, "/api/v1/session/login-hint", device, nil)
	var hint model.UserProfile
	decodeData(t, env, &hint)
	if code != http.StatusOK || hint.Email != "a@x.com" {
		t.Fatalf("unexpected login hint %d %+v", code, hint)
	}

	want := []events.Type{events.CardCreated, events.CardConfirmed, events.CardExpired}
	got := srv.recorder.Types()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestDeviceHeaderRequired(t *testing.T) {
	srv := newTestServer(t, nil)

	code, env := srv.do(http.MethodGet, "/api/v1/session", "", nil)
	if code != http.StatusBadRequest || env.Success {
		t.Fatalf("expected 400, got %d (%+v)", code, env)
	}
	code, _ = srv.do(http.MethodGet, "/api/v1/session", "bad id!", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed device id, got %d", code)
	}
}

func TestPublicEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	code, env := srv.do(http.MethodGet, "/api/v1/quote?amount_usd=20", "", nil)
	var q model.Quote
	decodeData(t, env, &q)
	if code != http.StatusOK || q.TotalInr != 1704 {
		t.Fatalf("unexpected quote %d %+v", code, q)
	}

	if code, _ := srv.do(http.MethodGet, "/api/v1/quote?amount_usd=-1", "", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", code)
	}

	code, env = srv.do(http.MethodGet, "/api/v1/catalog", "", nil)
	var cat struct {
		Platforms []json.RawMessage `json:"platforms"`
		UPIID     string            `json:"upiId"`
	}
	decodeData(t, env, &cat)
	if code != http.StatusOK || len(cat.Platforms) != 11 || cat.UPIID != "vcard@shaktiind" {
		t.Fatalf("unexpected catalog %d %+v", code, cat)
	}

	code, env = srv.do(http.MethodGet, "/api/v1/route?path=/dashboard", "device-2", nil)
	var p RedirectPayload
	decodeData(t, env, &p)
	if code != http.StatusOK || p.Redirect != "/intro" {
		t.Fatalf("unexpected route resolution %d %+v", code, p)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	const device = "device-3"
	srv.do(http.MethodPost, "/api/v1/intro/ack", device, nil)

	code, _ := srv.do(http.MethodPost, "/api/v1/session/login", device, model.UserProfile{Name: "", Email: "a@x.com", Phone: "1"})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", code)
	}
	code, _ = srv.do(http.MethodPost, "/api/v1/session/login", device, model.UserProfile{Name: "<script>", Email: "a@x.com", Phone: "1"})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for script name, got %d", code)
	}

	srv.do(http.MethodPost, "/api/v1/session/login", device, model.UserProfile{Name: "A", Email: "a@x.com", Phone: "1"})
	code, _ = srv.do(http.MethodPost, "/api/v1/cards", device, model.CreateCardRequest{
		Platform: "hulu", Network: "visa", Bank: "hdfc", AmountUsd: 10, Color: "Midnight",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", code)
	}
	code, env := srv.do(http.MethodPost, "/api/v1/cards/active/confirm", device, nil)
	if code != http.StatusOK || string(env.Data) != "null" {
		t.Fatalf("expected null data for confirm without card, got %d %s", code, env.Data)
	}
}

func TestHealthEndpoint(t *testing.T) {
	healthy := newTestServer(t, func(ctx context.Context) map[string]error {
		return map[string]error{"store": nil}
	})
	if code, env := healthy.do(http.MethodGet, "/health", "", nil); code != http.StatusOK || !env.Success {
		t.Fatalf("expected healthy, got %d %+v", code, env)
	}

	failing := newTestServer(t, func(ctx context.Context) map[string]error {
		return map[string]error{"store": errors.New("down")}
	})
	if code, _ := failing.do(http.MethodGet, "/health", "", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

func loggedIn(t *testing.T, srv *testServer, device string, user model.UserProfile) {
	t.Helper()
	srv.do(http.MethodPost, "/api/v1/intro/ack", device, nil)
	if code, env := srv.do(http.MethodPost, "/api/v1/session/login", device, user); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%+v)", code, env)
	}
}

func TestCreateCardRecordsDisplayValues(t *testing.T) {
	srv := newTestServer(t, nil)
	const device = "device-4"
	loggedIn(t, srv, device, model.UserProfile{Name: "A", Email: "a@x.com", Phone: "1"})

	code, env := srv.do(http.MethodPost, "/api/v1/cards", device, model.CreateCardRequest{
		Platform: "Netflix US", Network: "Visa", Bank: "HDFC Virtual", AmountUsd: 15, Color: "Midnight",
	})
	if code != http.StatusCreated {
		t.Fatalf("expected 201 for display names, got %d (%+v)", code, env)
	}
	var byName model.CardTransaction
	decodeData(t, env, &byName)

	code, env = srv.do(http.MethodPost, "/api/v1/cards", device, model.CreateCardRequest{
		Platform: "netflix", Network: "visa", Bank: "hdfc", AmountUsd: 15, Color: catalog.Colors[0].Value,
	})
	if code != http.StatusCreated {
		t.Fatalf("expected 201 for ids, got %d (%+v)", code, env)
	}
	var byID model.CardTransaction
	decodeData(t, env, &byID)

	for _, tx := range []model.CardTransaction{byName, byID} {
		if tx.Platform != "Netflix US" || tx.Bank != "HDFC Virtual" || tx.Network != "visa" || tx.Color != catalog.Colors[0].Value {
			t.Fatalf("expected catalog display values, got %+v", tx)
		}
		if tx.AmountInr != 1279 {
			t.Fatalf("expected 1279 INR, got %d", tx.AmountInr)
		}
	}
}

func TestLoginKeepsNameVerbatim(t *testing.T) {
	srv := newTestServer(t, nil)
	const device = "device-5"
	loggedIn(t, srv, device, model.UserProfile{Name: "O'Brien & Co", Email: "o@x.com", Phone: "1"})

	code, env := srv.do(http.MethodGet, "/api/v1/session", device, nil)
	var snap model.SessionSnapshot
	decodeData(t, env, &snap)
	if code != http.StatusOK || snap.User == nil || snap.User.Name != "O'Brien & Co" {
		t.Fatalf("expected name stored verbatim, got %d %+v", code, snap.User)
	}

	srv.do(http.MethodPost, "/api/v1/session/logout", device, nil)
	_, env = srv.do(http.MethodGet, "/api/v1/session/login-hint", device, nil)
	var hint model.UserProfile
	decodeData(t, env, &hint)
	if hint.Name != "O'Brien & Co" {
		t.Fatalf("expected verbatim login hint, got %q", hint.Name)
	}
}
