package signaling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

func TestIssueToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("room") != "support-1" || r.URL.Query().Get("identity") != "alice" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-abc"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	tok, err := c.IssueToken(context.Background(), "support-1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-abc" {
		t.Errorf("token = %q", tok)
	}
}

func TestInitiateTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/initiate_transfer" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("current_room") != "support-1" {
			t.Errorf("current_room = %q", r.URL.Query().Get("current_room"))
		}
		w.Write([]byte(`{"new_room_name":"transfer-42"}`))
	}))
	defer srv.Close()

	room, err := NewClient(srv.URL).InitiateTransfer(context.Background(), "support-1")
	if err != nil {
		t.Fatal(err)
	}
	if room != "transfer-42" {
		t.Errorf("room = %q", room)
	}
}

func TestRemoteErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"transfer already in progress"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).CompleteTransfer(context.Background(), "hold-support-1", "transfer-42")
	var re *domain.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if re.Status != http.StatusConflict || re.Detail != "transfer already in progress" {
		t.Errorf("RemoteError = %+v", re)
	}
}

func TestPollMoveEvent(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantRoom  domain.RoomName
		wantNil   bool
		transient bool
	}{
		{"no pending event", http.StatusNoContent, "", "", true, false},
		{"pending event", http.StatusOK, `{"action":"move","new_room":"transfer-42"}`, "transfer-42", false, false},
		{"empty body treated as no event", http.StatusOK, `{}`, "", true, false},
		{"server error is transient", http.StatusInternalServerError, "boom", "", true, true},
		{"auth failure is transient too", http.StatusUnauthorized, "", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/api/move_events" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ev, err := NewClient(srv.URL).PollMoveEvent(context.Background(), "hold-support-1")
			if tt.transient {
				if !domain.IsTransient(err) {
					t.Fatalf("err = %v, want transient", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantNil {
				if ev != nil {
					t.Fatalf("ev = %+v, want nil", ev)
				}
				return
			}
			if ev == nil || ev.NewRoom != tt.wantRoom {
				t.Errorf("ev = %+v, want NewRoom %q", ev, tt.wantRoom)
			}
		})
	}
}

func TestPollMoveEventTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	_, err := NewClient(srv.URL).PollMoveEvent(context.Background(), "hold-support-1")
	if !domain.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}
