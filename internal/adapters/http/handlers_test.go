package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app/orch"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(context.Context, string) (string, error) {
	return s.summary, s.err
}

type stubDialer struct{ err error }

func (d stubDialer) Dial(context.Context, string, domain.RoomName) error { return d.err }

func newTestRouter(t *testing.T, h *Handlers) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.POST("/token", h.Token)
	api.POST("/create_room", h.CreateRoom)
	api.POST("/initiate_transfer", h.InitiateTransfer)
	api.POST("/complete_transfer", h.CompleteTransfer)
	api.GET("/move_events", h.MoveEvents)
	api.POST("/summarize", h.Summarize)
	api.POST("/dial", h.Dial)
	api.POST("/voice", h.Voice)
	return r
}

func newTestHandlers() *Handlers {
	issuer := app.NewTokenIssuer("test-secret", time.Minute)
	return &Handlers{
		Orch: &orch.Orchestrator{
			Registry: app.NewRegistry(),
			Rooms:    core.NewRoomManager(),
			Broker:   app.NewMoveBroker(),
			Tokens:   issuer,
		},
		Tokens:     issuer,
		Summarizer: stubSummarizer{summary: "caller needs a refund"},
		Dialer:     stubDialer{},
	}
}

func do(t *testing.T, r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenEndpoint(t *testing.T) {
	h := newTestHandlers()
	r := newTestRouter(t, h)

	w := do(t, r, http.MethodPost, "/api/token?room=support-1&identity=alice&role=agentA", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	claims, err := h.Tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if claims.Room != "support-1" || claims.Identity != "alice" || claims.Role != domain.RoleAgentPrimary {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenEndpointMissingParams(t *testing.T) {
	r := newTestRouter(t, newTestHandlers())
	for _, target := range []string{
		"/api/token?identity=alice",
		"/api/token?room=support-1",
		"/api/initiate_transfer",
		"/api/complete_transfer?from_room=support-1",
		"/api/move_events",
	} {
		method := http.MethodPost
		if strings.HasPrefix(target, "/api/move_events") {
			method = http.MethodGet
		}
		w := do(t, r, method, target, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
		if !strings.Contains(w.Body.String(), "detail") {
			t.Errorf("%s: no detail field in %s", target, w.Body.String())
		}
	}
}

func TestInitiateTransferPublishesHoldEvent(t *testing.T) {
	h := newTestHandlers()
	r := newTestRouter(t, h)

	w := do(t, r, http.MethodPost, "/api/initiate_transfer?current_room=support-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res struct {
		NewRoomName string `json:"new_room_name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.NewRoomName, domain.TransferRoomPrefix) {
		t.Errorf("new_room_name = %q, want %q prefix", res.NewRoomName, domain.TransferRoomPrefix)
	}

	// The caller left behind in support-1 must find a park instruction.
	ev, ok := h.Orch.PendingMove("support-1")
	if !ok {
		t.Fatal("no pending move for support-1")
	}
	if ev.NewRoom != "hold-support-1" {
		t.Errorf("NewRoom = %q, want hold-support-1", ev.NewRoom)
	}
}

func TestCompleteTransferPublishesMoveEvents(t *testing.T) {
	h := newTestHandlers()
	r := newTestRouter(t, h)

	w := do(t, r, http.MethodPost, "/api/complete_transfer?from_room=support-1&to_room=transfer-42", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	for _, room := range []domain.RoomName{"hold-support-1", "support-1"} {
		ev, ok := h.Orch.PendingMove(room)
		if !ok {
			t.Errorf("no pending move for %s", room)
			continue
		}
		if ev.NewRoom != "transfer-42" {
			t.Errorf("%s: NewRoom = %q", room, ev.NewRoom)
		}
	}
}

func TestMoveEventsEndpoint(t *testing.T) {
	h := newTestHandlers()
	r := newTestRouter(t, h)

	w := do(t, r, http.MethodGet, "/api/move_events?room=hold-support-1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	h.Orch.Broker.Publish("hold-support-1", domain.MoveEvent{Action: "move", NewRoom: "transfer-42"})

	w = do(t, r, http.MethodGet, "/api/move_events?room=hold-support-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var ev domain.MoveEvent
	if err := json.Unmarshal(w.Body.Bytes(), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Action != "move" || ev.NewRoom != "transfer-42" {
		t.Errorf("event = %+v", ev)
	}

	// Polling must not consume the event.
	if w := do(t, r, http.MethodGet, "/api/move_events?room=hold-support-1", ""); w.Code != http.StatusOK {
		t.Errorf("second poll: status = %d", w.Code)
	}
}

func TestVoiceWebhook(t *testing.T) {
	h := newTestHandlers()
	h.MediaStreamURL = "wss://example.com/api/ws"
	r := newTestRouter(t, h)

	w := do(t, r, http.MethodPost, "/api/voice?room_name=transfer-42", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<Stream") || !strings.Contains(body, "wss://example.com/api/ws?room=transfer-42") {
		t.Errorf("body = %s", body)
	}

	if w := do(t, r, http.MethodPost, "/api/voice", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing room_name: status = %d", w.Code)
	}
}

func TestSummarizeEndpoint(t *testing.T) {
	h := newTestHandlers()
	r := newTestRouter(t, h)

	w := do(t, r, http.MethodPost, "/api/summarize", `{"transcript":"hi, I want a refund"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "caller needs a refund") {
		t.Errorf("body = %s", w.Body.String())
	}

	h.Summarizer = stubSummarizer{err: core.ErrNotConfigured}
	w = do(t, r, http.MethodPost, "/api/summarize", `{"transcript":"hi"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestDialEndpoint(t *testing.T) {
	h := newTestHandlers()
	r := newTestRouter(t, h)

	w := do(t, r, http.MethodPost, "/api/dial", `{"number":"+15550100","room":"transfer-42"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/dial", `{"number":"+15550100"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	h.Dialer = stubDialer{err: core.ErrNotConfigured}
	w = do(t, r, http.MethodPost, "/api/dial", `{"number":"+15550100","room":"transfer-42"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
