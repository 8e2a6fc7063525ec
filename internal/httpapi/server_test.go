package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/ellecpu/king-of-hills/internal/match"
	"github.com/ellecpu/king-of-hills/internal/render"
	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	mr := miniredis.RunT(t)
	mgr, err := match.NewManager("redis://"+mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	srv := NewServer(mgr, render.NewRenderer(24))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any, out any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func createMatch(t *testing.T, ts *httptest.Server) kohdto.MatchView {
	t.Helper()
	var view kohdto.MatchView
	resp := postJSON(t, ts.URL+"/api/matches", kohdto.CreateMatchRequest{
		WhiteID: "u-white", WhiteName: "Alice",
		BlackID: "u-black", BlackName: "Bob",
	}, &view)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	return view
}

func sendMove(t *testing.T, ts *httptest.Server, id, player, from, to string) kohdto.MoveResult {
	t.Helper()
	var res kohdto.MoveResult
	resp := postJSON(t, ts.URL+"/api/matches/"+id+"/moves", kohdto.MoveRequest{
		PlayerID: player, From: from, To: to,
	}, &res)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d", resp.StatusCode)
	}
	return res
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCreateAndFetchMatch(t *testing.T) {
	_, ts := newTestServer(t)
	view := createMatch(t, ts)
	if view.ID == "" || view.Turn != "white" || view.Status != "ACTIVE" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if !strings.Contains(view.BoardDump, "R N B Q K B N R") {
		t.Fatalf("board dump missing back rank:\n%s", view.BoardDump)
	}

	var fetched kohdto.MatchView
	resp, err := http.Get(ts.URL + "/api/matches/" + view.ID)
	if err != nil {
		t.Fatalf("GET match: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch status = %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.ID != view.ID {
		t.Fatalf("fetched %q, want %q", fetched.ID, view.ID)
	}
}

func TestUnknownMatchIs404(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/matches/koh-nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMoveAcceptedAndRejected(t *testing.T) {
	_, ts := newTestServer(t)
	view := createMatch(t, ts)

	res := sendMove(t, ts, view.ID, "u-white", "e2", "e4")
	if !res.Accepted || res.Match == nil {
		t.Fatalf("expected accept, got %+v", res)
	}
	if res.Match.Turn != "black" || len(res.Match.Moves) != 1 || res.Match.Moves[0] != "e2e4" {
		t.Fatalf("unexpected match state: %+v", res.Match)
	}

	// White trying to move again is a turn-order rejection, still 200.
	res = sendMove(t, ts, view.ID, "u-white", "d2", "d4")
	if res.Accepted || res.Reason != "not_your_turn" {
		t.Fatalf("expected not_your_turn, got %+v", res)
	}

	// Sliding through a blocked file is an engine rejection.
	res = sendMove(t, ts, view.ID, "u-black", "a8", "a5")
	if res.Accepted || res.Reason != "illegal_move" {
		t.Fatalf("expected illegal_move, got %+v", res)
	}
}

func TestHillWinOverHTTP(t *testing.T) {
	_, ts := newTestServer(t)
	view := createMatch(t, ts)

	seq := []struct{ player, from, to string }{
		{"u-white", "e2", "e4"},
		{"u-black", "a7", "a6"},
		{"u-white", "e1", "e2"},
		{"u-black", "a6", "a5"},
		{"u-white", "e2", "e3"},
		{"u-black", "a5", "a4"},
		{"u-white", "e3", "d4"},
	}
	var last kohdto.MoveResult
	for _, mv := range seq {
		last = sendMove(t, ts, view.ID, mv.player, mv.from, mv.to)
		if !last.Accepted {
			t.Fatalf("%s %s%s rejected: %+v", mv.player, mv.from, mv.to, last)
		}
	}
	if last.Match.Status != "FINISHED" || last.Match.Winner != "u-white" || last.Match.Outcome != "hill" {
		t.Fatalf("unexpected final state: %+v", last.Match)
	}

	res := sendMove(t, ts, view.ID, "u-black", "a4", "a3")
	if res.Accepted || res.Reason != "not_active" {
		t.Fatalf("finished match accepted a move: %+v", res)
	}
}

func TestResignEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	view := createMatch(t, ts)

	var final kohdto.MatchView
	resp := postJSON(t, ts.URL+"/api/matches/"+view.ID+"/resign",
		map[string]string{"player_id": "u-black"}, &final)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resign status = %d", resp.StatusCode)
	}
	if final.Status != "RESIGNED" || final.Winner != "u-white" || final.Outcome != "resign" {
		t.Fatalf("unexpected final state: %+v", final)
	}
}

func TestBoardPNG(t *testing.T) {
	_, ts := newTestServer(t)
	view := createMatch(t, ts)
	sendMove(t, ts, view.ID, "u-white", "e2", "e4")

	resp, err := http.Get(ts.URL + "/api/matches/" + view.ID + "/board.png")
	if err != nil {
		t.Fatalf("GET board.png: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if img.Bounds().Dx() == 0 {
		t.Fatal("empty image")
	}
}

func TestHubFanOut(t *testing.T) {
	h := newHub()
	a := h.subscribe("m1")
	b := h.subscribe("m1")
	other := h.subscribe("m2")
	defer h.unsubscribe("m1", a)
	defer h.unsubscribe("m1", b)
	defer h.unsubscribe("m2", other)

	h.publish(kohdto.MatchView{ID: "m1", Turn: "black"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, sub := range []*subscriber{a, b} {
		select {
		case v := <-sub.ch:
			if v.Turn != "black" {
				t.Fatalf("unexpected view: %+v", v)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for fan-out")
		}
	}
	select {
	case <-other.ch:
		t.Fatal("subscriber for another match received the update")
	default:
	}
}
