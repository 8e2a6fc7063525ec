package match

import "time"

// Status represents a match lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
)

// Outcome methods recorded on finished matches.
const (
	OutcomeHill     = "hill"     // a king reached a center square
	OutcomeRegicide = "regicide" // the opponent's king was captured
	OutcomeResign   = "resign"
)

// Match is the persisted state of one game, stored as a JSON blob in
// Redis. The move transcript is the source of truth; board, turn, and
// capture lists are replayed through the rules engine on every command.
type Match struct {
	ID        string `json:"id"`
	WhiteID   string `json:"white_id"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name"`

	Moves []string `json:"moves"` // coordinate pairs, e.g. "e2e4"
	Turn  string   `json:"turn"`  // side to move, "white" or "black"

	Status  Status `json:"status"`
	Winner  string `json:"winner,omitempty"`  // player ID
	Outcome string `json:"outcome,omitempty"` // hill / regicide / resign

	CapturedByWhite []string `json:"captured_by_white,omitempty"`
	CapturedByBlack []string `json:"captured_by_black,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerSide returns "white", "black", or "" for the given player ID.
func (m *Match) PlayerSide(userID string) string {
	switch userID {
	case "":
		return ""
	case m.WhiteID:
		return "white"
	case m.BlackID:
		return "black"
	}
	return ""
}

// OpponentID returns the other participant's ID, or "".
func (m *Match) OpponentID(userID string) string {
	if m.WhiteID == userID {
		return m.BlackID
	}
	if m.BlackID == userID {
		return m.WhiteID
	}
	return ""
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	ErrNoActiveMatch  = staticErr("no active match for player")
	ErrNotFound       = staticErr("match not found or expired")
	ErrNotParticipant = staticErr("player not in match")
	ErrNotYourTurn    = staticErr("not your turn")
	ErrIllegalMove    = staticErr("illegal move")
	ErrConflict       = staticErr("concurrent update detected")
)
