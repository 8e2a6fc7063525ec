// Package kohdto holds the transport structs shared by the HTTP server
// and the client library.
package kohdto

import "time"

// MatchView is the externally visible state of one match.
type MatchView struct {
	ID        string `json:"id"`
	WhiteID   string `json:"white_id"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name"`

	Status  string   `json:"status"`
	Turn    string   `json:"turn"`
	Winner  string   `json:"winner,omitempty"`
	Outcome string   `json:"outcome,omitempty"`
	Moves   []string `json:"moves"`

	// BoardDump is the textual board, one line per row, uppercase for
	// White, lowercase for Black, space for empty squares.
	BoardDump string `json:"board_dump"`

	CapturedByWhite []string `json:"captured_by_white,omitempty"`
	CapturedByBlack []string `json:"captured_by_black,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateMatchRequest starts a game; the first player takes White.
type CreateMatchRequest struct {
	WhiteID   string `json:"white_id"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name"`
}

// MoveRequest submits one move in algebraic square coordinates.
type MoveRequest struct {
	PlayerID string `json:"player_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// MoveResult reports whether the move was accepted. Rejections keep the
// rules engine's uniform no-reason contract; Reason only distinguishes
// transport-level categories (turn order, no active match, conflict).
type MoveResult struct {
	Accepted bool       `json:"accepted"`
	Reason   string     `json:"reason,omitempty"`
	Match    *MatchView `json:"match,omitempty"`
}
