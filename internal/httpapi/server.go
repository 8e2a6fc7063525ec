// Package httpapi exposes the match manager over HTTP: match creation,
// move submission, state queries, PNG snapshots, and a WebSocket stream
// of match updates.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ellecpu/king-of-hills/internal/match"
	"github.com/ellecpu/king-of-hills/internal/obslog"
	"github.com/ellecpu/king-of-hills/internal/render"
	"github.com/ellecpu/king-of-hills/internal/variant"
	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

const (
	maxJSONBodyBytes int64 = 1 << 20
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
)

type Server struct {
	mgr      *match.Manager
	renderer *render.Renderer
	hub      *hub

	srvMu sync.Mutex
	srv   *http.Server
}

func NewServer(mgr *match.Manager, renderer *render.Renderer) *Server {
	return &Server{mgr: mgr, renderer: renderer, hub: newHub()}
}

// Listen starts the HTTP server and blocks until it stops.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	obslog.L().Info("http_listen", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close attempts a graceful shutdown.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Routes builds the ServeMux. Exposed for tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/matches", s.withJSON(s.handleCreate))
	mux.HandleFunc("GET /api/matches/{id}", s.withJSON(s.handleGet))
	mux.HandleFunc("POST /api/matches/{id}/moves", s.withJSON(s.handleMove))
	mux.HandleFunc("POST /api/matches/{id}/resign", s.withJSON(s.handleResign))
	mux.HandleFunc("GET /api/matches/{id}/board.png", s.handleBoardPNG)
	mux.HandleFunc("GET /api/matches/{id}/watch", s.handleWatch)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) withJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", apiCSP)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		next(w, r)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req kohdto.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	mt, err := s.mgr.CreateMatch(r.Context(), req.WhiteID, req.WhiteName, req.BlackID, req.BlackName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	view, ok := s.view(mt)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "transcript replay failed")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	mt, err := s.mgr.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if mt == nil {
		writeError(w, http.StatusNotFound, "not_found", "match not found or expired")
		return
	}
	view, ok := s.view(mt)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "transcript replay failed")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req kohdto.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "player_id is required")
		return
	}

	mt, err := s.mgr.PlayMoveByID(r.Context(), r.PathValue("id"), req.PlayerID, req.From, req.To)
	if err != nil {
		if code, ok := rejectionCode(err); ok {
			writeJSON(w, http.StatusOK, kohdto.MoveResult{Accepted: false, Reason: code})
			return
		}
		if errors.Is(err, match.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		if errors.Is(err, match.ErrNotParticipant) {
			writeError(w, http.StatusForbidden, "not_participant", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	view, ok := s.view(mt)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "transcript replay failed")
		return
	}
	s.hub.publish(view)
	writeJSON(w, http.StatusOK, kohdto.MoveResult{Accepted: true, Match: &view})
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	res, err := s.mgr.ResignMatch(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, match.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "not_participant", err.Error())
		case errors.Is(err, match.ErrNoActiveMatch):
			writeError(w, http.StatusConflict, "not_active", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	view, ok := s.view(res)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "transcript replay failed")
		return
	}
	s.hub.publish(view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	mt, err := s.mgr.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if mt == nil {
		writeError(w, http.StatusNotFound, "not_found", "match not found or expired")
		return
	}
	board, ok := s.mgr.Board(mt)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "transcript replay failed")
		return
	}
	opts := render.Options{
		Header:    mt.WhiteName + " vs " + mt.BlackName,
		TurnLabel: mt.Turn + " to move",
	}
	if n := len(mt.Moves); n > 0 {
		mv := mt.Moves[n-1]
		if len(mv) == 4 {
			fr, fc, ok1 := variant.ParseSquare(mv[:2])
			tr, tc, ok2 := variant.ParseSquare(mv[2:])
			if ok1 && ok2 {
				opts.Highlight = &render.Highlight{FromRow: fr, FromCol: fc, ToRow: tr, ToCol: tc}
			}
		}
	}
	data, err := s.renderer.RenderPNG(r.Context(), board, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleWatch upgrades to WebSocket and streams a MatchView snapshot
// immediately, then one view per accepted move or resignation.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	mt, err := s.mgr.GetMatch(r.Context(), id)
	if err != nil || mt == nil {
		writeError(w, http.StatusNotFound, "not_found", "match not found or expired")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	sub := s.hub.subscribe(id)
	defer s.hub.unsubscribe(id, sub)

	ctx := r.Context()
	if view, ok := s.view(mt); ok {
		if err := wsjson.Write(ctx, conn, view); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-sub.ch:
			if err := wsjson.Write(ctx, conn, view); err != nil {
				return
			}
		}
	}
}

func (s *Server) view(mt *match.Match) (kohdto.MatchView, bool) {
	board, ok := s.mgr.Board(mt)
	if !ok {
		obslog.L().Error("match_replay_failed", zap.String("match_id", mt.ID))
		return kohdto.MatchView{}, false
	}
	return kohdto.MatchView{
		ID:              mt.ID,
		WhiteID:         mt.WhiteID,
		WhiteName:       mt.WhiteName,
		BlackID:         mt.BlackID,
		BlackName:       mt.BlackName,
		Status:          string(mt.Status),
		Turn:            mt.Turn,
		Winner:          mt.Winner,
		Outcome:         mt.Outcome,
		Moves:           append([]string(nil), mt.Moves...),
		BoardDump:       board.String(),
		CapturedByWhite: append([]string(nil), mt.CapturedByWhite...),
		CapturedByBlack: append([]string(nil), mt.CapturedByBlack...),
		CreatedAt:       mt.CreatedAt,
		UpdatedAt:       mt.UpdatedAt,
	}, true
}

// rejectionCode maps match-layer rejections onto MoveResult reasons.
// The engine itself reports no reason; only transport-level categories
// are distinguished here.
func rejectionCode(err error) (string, bool) {
	switch {
	case errors.Is(err, match.ErrIllegalMove):
		return "illegal_move", true
	case errors.Is(err, match.ErrNotYourTurn):
		return "not_your_turn", true
	case errors.Is(err, match.ErrNoActiveMatch):
		return "not_active", true
	case errors.Is(err, match.ErrConflict):
		return "conflict", true
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, kohdto.DomainError{Code: code, Message: msg})
}
