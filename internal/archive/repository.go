// Package archive persists finished matches to Postgres. The match
// manager calls it once per terminal transition; writes are idempotent
// upserts keyed by match ID.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ellecpu/king-of-hills/internal/match"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a terminal match. The transcript and capture lists
// are stored as JSON; durations are derived from the match timestamps.
func (r *Repository) SaveResult(ctx context.Context, m *match.Match) error {
	if r == nil || r.db == nil || m == nil {
		return nil
	}

	movesRaw, _ := json.Marshal(m.Moves)
	capturedWhite, _ := json.Marshal(m.CapturedByWhite)
	capturedBlack, _ := json.Marshal(m.CapturedByBlack)
	duration := m.UpdatedAt.Sub(m.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO koh_matches (
	    match_id, white_id, white_name, black_id, black_name,
	    status, winner_id, outcome, moves,
	    captured_by_white, captured_by_black,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10::jsonb,$11::jsonb,$12,$13,$14
	  ) ON CONFLICT (match_id) DO UPDATE SET
	    status=EXCLUDED.status,
	    winner_id=EXCLUDED.winner_id,
	    outcome=EXCLUDED.outcome,
	    moves=EXCLUDED.moves,
	    captured_by_white=EXCLUDED.captured_by_white,
	    captured_by_black=EXCLUDED.captured_by_black,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		m.ID,
		m.WhiteID, m.WhiteName,
		m.BlackID, m.BlackName,
		string(m.Status), m.Winner, m.Outcome, string(movesRaw),
		string(capturedWhite), string(capturedBlack),
		m.CreatedAt, m.UpdatedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("upsert match result: %w", err)
	}
	return nil
}
