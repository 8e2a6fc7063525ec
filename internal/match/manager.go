// Package match runs king-of-the-hills games for pairs of players on top
// of Redis. Every match is one JSON blob plus per-player index sets;
// moves are applied under WATCH so concurrent commands against the same
// match cannot interleave.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ellecpu/king-of-hills/internal/obslog"
	"github.com/ellecpu/king-of-hills/internal/variant"
)

const defaultTTL = 24 * time.Hour

// Archiver persists terminal match results. Attached optionally.
type Archiver interface {
	SaveResult(ctx context.Context, m *Match) error
}

type Manager struct {
	rdb     *redis.Client
	ttl     time.Duration
	archive Archiver
}

// NewManager connects to Redis and verifies the connection. A ttl of
// zero falls back to 24 hours.
func NewManager(redisURL string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis URL required for match manager")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{rdb: rdb, ttl: ttl}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachArchive wires a repository for persisting finished matches.
func (m *Manager) AttachArchive(a Archiver) {
	if m != nil {
		m.archive = a
	}
}

// CreateMatch starts a new game. The first named player takes White.
func (m *Manager) CreateMatch(ctx context.Context, whiteID, whiteName, blackID, blackName string) (*Match, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("match manager not initialized")
	}
	whiteID, blackID = strings.TrimSpace(whiteID), strings.TrimSpace(blackID)
	if whiteID == "" || blackID == "" || whiteID == blackID {
		return nil, fmt.Errorf("invalid participants")
	}

	now := time.Now()
	mt := &Match{
		ID:        "koh-" + uuid.NewString(),
		WhiteID:   whiteID,
		WhiteName: strings.TrimSpace(whiteName),
		BlackID:   blackID,
		BlackName: strings.TrimSpace(blackName),
		Moves:     []string{},
		Turn:      variant.White.String(),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.save(ctx, mt); err != nil {
		return nil, err
	}
	if err := m.indexParticipants(ctx, mt.ID, whiteID, blackID); err != nil {
		return nil, err
	}
	obslog.L().Info("match_create",
		zap.String("match_id", mt.ID),
		zap.String("white_id", mt.WhiteID),
		zap.String("black_id", mt.BlackID),
	)
	return mt, nil
}

// GetMatch returns the match by ID, or nil when it does not exist.
func (m *Manager) GetMatch(ctx context.Context, id string) (*Match, error) {
	return m.get(ctx, id)
}

// ActiveMatchByUser returns the most recently updated ACTIVE match the
// player participates in, or nil.
func (m *Manager) ActiveMatchByUser(ctx context.Context, userID string) (*Match, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("match manager not initialized")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Match
	for _, id := range ids {
		mt, gerr := m.get(ctx, id)
		if gerr == nil && mt != nil && mt.Status == StatusActive {
			list = append(list, mt)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// PlayMove applies one move for the requesting player. Illegal moves and
// wrong-turn attempts come back as sentinel errors, leaving the match
// untouched; the rules engine is the sole judge of legality.
func (m *Manager) PlayMove(ctx context.Context, userID, from, to string) (*Match, error) {
	mt, err := m.ActiveMatchByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, ErrNoActiveMatch
	}
	return m.playMoveOn(ctx, mt, userID, from, to)
}

// PlayMoveByID applies one move against a specific match.
func (m *Manager) PlayMoveByID(ctx context.Context, matchID, userID, from, to string) (*Match, error) {
	mt, err := m.get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, ErrNotFound
	}
	return m.playMoveOn(ctx, mt, userID, from, to)
}

func (m *Manager) playMoveOn(ctx context.Context, mt *Match, userID, from, to string) (*Match, error) {
	key := matchKey(mt.ID)
	oldLen := len(mt.Moves)

	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur Match
		if jerr := json.Unmarshal(raw, &cur); jerr != nil {
			return jerr
		}
		if cur.Status != StatusActive {
			return ErrNoActiveMatch
		}
		if len(cur.Moves) != oldLen {
			return redis.TxFailedErr
		}

		side := cur.PlayerSide(userID)
		if side == "" {
			return ErrNotParticipant
		}
		if side != cur.Turn {
			return ErrNotYourTurn
		}

		eng := replay(cur.Moves)
		if eng == nil {
			return fmt.Errorf("corrupt transcript for match %s", cur.ID)
		}
		if !eng.AttemptMove(from, to) {
			return ErrIllegalMove
		}

		cur.Moves = append(cur.Moves, normalizeMove(from, to))
		cur.Turn = eng.Turn().String()
		cur.CapturedByWhite = capturedLetters(eng, variant.White)
		cur.CapturedByBlack = capturedLetters(eng, variant.Black)
		cur.UpdatedAt = time.Now()

		switch eng.State() {
		case variant.WhiteWon:
			cur.Status = StatusFinished
			cur.Winner = cur.WhiteID
			cur.Outcome = outcomeFor(eng, variant.White)
		case variant.BlackWon:
			cur.Status = StatusFinished
			cur.Winner = cur.BlackID
			cur.Outcome = outcomeFor(eng, variant.Black)
		}

		pipe := tx.TxPipeline()
		newRaw, _ := json.Marshal(&cur)
		pipe.Set(ctx, key, newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		*mt = cur
		return nil
	}, key)

	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return mt, ErrConflict
		}
		return nil, err
	}

	obslog.L().Info("match_move",
		zap.String("match_id", mt.ID),
		zap.String("player_id", strings.TrimSpace(userID)),
		zap.String("move", mt.Moves[len(mt.Moves)-1]),
		zap.String("turn", mt.Turn),
		zap.String("status", string(mt.Status)),
		zap.String("outcome", mt.Outcome),
	)
	if mt.Status == StatusFinished {
		m.persistIfFinal(ctx, mt)
	}
	return mt, nil
}

// Resign concedes the player's active match. This is match-layer
// bookkeeping; the rules engine has no resignation concept.
func (m *Manager) Resign(ctx context.Context, userID string) (*Match, error) {
	mt, err := m.ActiveMatchByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, ErrNoActiveMatch
	}
	return m.resignOn(ctx, mt, userID)
}

// ResignMatch concedes a specific match.
func (m *Manager) ResignMatch(ctx context.Context, matchID, userID string) (*Match, error) {
	mt, err := m.get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, ErrNotFound
	}
	if mt.PlayerSide(userID) == "" {
		return nil, ErrNotParticipant
	}
	return m.resignOn(ctx, mt, userID)
}

func (m *Manager) resignOn(ctx context.Context, mt *Match, userID string) (*Match, error) {
	key := matchKey(mt.ID)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur Match
		if jerr := json.Unmarshal(raw, &cur); jerr != nil {
			return jerr
		}
		if cur.Status != StatusActive {
			return ErrNoActiveMatch
		}
		cur.Status = StatusResigned
		cur.Winner = cur.OpponentID(userID)
		cur.Outcome = OutcomeResign
		cur.UpdatedAt = time.Now()
		pipe := tx.TxPipeline()
		newRaw, _ := json.Marshal(&cur)
		pipe.Set(ctx, key, newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		*mt = cur
		return nil
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrConflict
		}
		return nil, err
	}
	obslog.L().Info("match_resign",
		zap.String("match_id", mt.ID),
		zap.String("resigner", strings.TrimSpace(userID)),
		zap.String("winner", mt.Winner),
	)
	m.persistIfFinal(ctx, mt)
	return mt, nil
}

// Board replays the transcript and returns the current position. A nil
// board plus false signals a corrupt transcript.
func (m *Manager) Board(mt *Match) (variant.Board, bool) {
	eng := replay(mt.Moves)
	if eng == nil {
		return variant.Board{}, false
	}
	return eng.Board(), true
}

// replay drives a fresh engine through the stored coordinate pairs.
func replay(moves []string) *variant.Engine {
	eng := variant.NewEngine()
	for _, mv := range moves {
		if len(mv) != 4 || !eng.AttemptMove(mv[:2], mv[2:]) {
			return nil
		}
	}
	return eng
}

func normalizeMove(from, to string) string {
	return strings.ToLower(strings.TrimSpace(from)) + strings.ToLower(strings.TrimSpace(to))
}

func capturedLetters(eng *variant.Engine, s variant.Side) []string {
	kinds := eng.Captured(s)
	if len(kinds) == 0 {
		return nil
	}
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		// Captured pieces belonged to the opponent, so they keep its case.
		out = append(out, string(k.Letter(s.Opponent())))
	}
	return out
}

// outcomeFor distinguishes a hill win from a regicide for the winning
// side. Both may hold on the same move; regicide is reported then, since
// a king died either way.
func outcomeFor(eng *variant.Engine, winner variant.Side) string {
	caps := eng.Captured(winner)
	if len(caps) > 0 && caps[len(caps)-1] == variant.King {
		return OutcomeRegicide
	}
	return OutcomeHill
}

func (m *Manager) persistIfFinal(ctx context.Context, mt *Match) {
	if m == nil || m.archive == nil || mt == nil {
		return
	}
	if mt.Status != StatusFinished && mt.Status != StatusResigned {
		return
	}
	if err := m.archive.SaveResult(ctx, mt); err != nil {
		obslog.L().Error("match_archive_error",
			zap.String("match_id", mt.ID),
			zap.String("outcome", mt.Outcome),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("match_archive",
		zap.String("match_id", mt.ID),
		zap.String("outcome", mt.Outcome),
	)
}

func (m *Manager) save(ctx context.Context, mt *Match) error {
	raw, err := json.Marshal(mt)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, matchKey(mt.ID), raw, m.ttl).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*Match, error) {
	raw, err := m.rdb.Get(ctx, matchKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var mt Match
	if err := json.Unmarshal(raw, &mt); err != nil {
		return nil, err
	}
	return &mt, nil
}

func (m *Manager) indexParticipants(ctx context.Context, id, white, black string) error {
	for _, u := range []string{white, black} {
		if strings.TrimSpace(u) == "" {
			continue
		}
		key := idxUserKey(u)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

func matchKey(id string) string { return "koh:match:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "koh:index:user:" + strings.TrimSpace(userID) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
