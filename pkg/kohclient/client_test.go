package kohclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

func TestCreateAndMove(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/matches":
			var req kohdto.CreateMatchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode create: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(kohdto.MatchView{ID: "koh-1", Turn: "white", Status: "ACTIVE"})
		case "/api/matches/koh-1/moves":
			if got := r.Header.Get("X-Koh-Client"); got != "cli" {
				t.Errorf("header = %q", got)
			}
			_ = json.NewEncoder(w).Encode(kohdto.MoveResult{Accepted: true})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL,
		WithTimeout(2*time.Second),
		WithHeaderProvider(func() map[string]string {
			return map[string]string{"X-Koh-Client": "cli"}
		}))

	view, err := c.CreateMatch(context.Background(), kohdto.CreateMatchRequest{WhiteID: "a", BlackID: "b"})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if view.ID != "koh-1" || view.Turn != "white" {
		t.Fatalf("unexpected view: %+v", view)
	}

	res, err := c.PlayMove(context.Background(), "koh-1", kohdto.MoveRequest{PlayerID: "a", From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("move rejected: %+v", res)
	}
}

func TestGetMatchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(kohdto.MatchView{ID: "koh-2"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetry(3), WithTimeout(2*time.Second))
	view, err := c.GetMatch(context.Background(), "koh-2")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if view.ID != "koh-2" || calls.Load() != 3 {
		t.Fatalf("view=%+v calls=%d", view, calls.Load())
	}
}

func TestStructuredErrorSurfaced(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(kohdto.DomainError{Code: "not_found", Message: "match not found or expired"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithTimeout(2*time.Second))
	_, err := c.GetMatch(context.Background(), "koh-missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "koh api error: status=404 code=not_found message=match not found or expired" {
		t.Fatalf("error = %q", got)
	}
}
