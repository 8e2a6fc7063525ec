package httpapi

import (
	"sync"

	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

// hub fans match updates out to WebSocket watchers. Slow subscribers are
// skipped rather than blocking the move path.
type hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{} // match ID -> watchers
}

type subscriber struct {
	ch chan kohdto.MatchView
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *hub) subscribe(matchID string) *subscriber {
	sub := &subscriber{ch: make(chan kohdto.MatchView, 8)}
	h.mu.Lock()
	set, ok := h.subs[matchID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[matchID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *hub) unsubscribe(matchID string, sub *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[matchID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, matchID)
		}
	}
	h.mu.Unlock()
}

func (h *hub) publish(view kohdto.MatchView) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[view.ID] {
		select {
		case sub.ch <- view:
		default:
		}
	}
}
