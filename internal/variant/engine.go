package variant

// Engine holds one game: board, side to move, game state, and the
// captured-piece bookkeeping. It is a plain value object with no internal
// synchronization; callers sharing one instance across goroutines must
// serialize access themselves. Independent instances share nothing.
type Engine struct {
	board    Board
	turn     Side
	state    GameState
	captured [2][]Kind
}

// NewEngine returns an engine with the standard starting layout, White to
// move, game in progress, and empty capture lists.
func NewEngine() *Engine {
	e := &Engine{}
	back := [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for c := 0; c < 8; c++ {
		e.board[0][c] = Piece{Kind: back[c], Side: Black}
		e.board[1][c] = Piece{Kind: Pawn, Side: Black}
		e.board[6][c] = Piece{Kind: Pawn, Side: White}
		e.board[7][c] = Piece{Kind: back[c], Side: White}
	}
	return e
}

// Board returns a snapshot of the grid. Board is an array type, so the
// caller gets an independent copy.
func (e *Engine) Board() Board { return e.board }

// State returns the current game state.
func (e *Engine) State() GameState { return e.state }

// Turn returns the side to move next.
func (e *Engine) Turn() Side { return e.turn }

// Captured returns the kinds the given side has taken from its opponent,
// in capture order.
func (e *Engine) Captured(s Side) []Kind {
	return append([]Kind(nil), e.captured[s]...)
}

// String renders the current board via Board.String.
func (e *Engine) String() string { return e.board.String() }

// AttemptMove validates and executes one move given two squares in
// algebraic notation ("e2", file letter case-insensitive). It returns
// true and mutates state only when every legality gate passes; any
// rejection returns false and leaves the engine untouched, with no
// distinction between rejection reasons.
func (e *Engine) AttemptMove(from, to string) bool {
	if e.state != InProgress {
		return false
	}

	fr, fc, ok := ParseSquare(from)
	if !ok {
		return false
	}
	tr, tc, ok := ParseSquare(to)
	if !ok {
		return false
	}
	// ParseSquare already bounds both squares; kept as defense in depth.
	if !onBoard(fr, fc) || !onBoard(tr, tc) {
		return false
	}
	if fr == tr && fc == tc {
		return false
	}

	mover := e.board[fr][fc]
	if mover.IsEmpty() {
		return false
	}
	if mover.Side != e.turn {
		return false
	}

	rule := moveRules[mover.Kind]
	if rule == nil || !rule(&e.board, fr, fc, tr, tc, mover.Side) {
		return false
	}

	target := e.board[tr][tc]
	if !target.IsEmpty() {
		if target.Side == mover.Side {
			return false
		}
		e.captured[mover.Side] = append(e.captured[mover.Side], target.Kind)
	}

	e.board[tr][tc] = mover
	e.board[fr][fc] = Piece{}

	e.updateState(tr, tc, target)

	// The turn flips even when the move just ended the game; the frozen
	// state gates every later attempt, not the turn record.
	e.turn = e.turn.Opponent()
	return true
}

// updateState runs the win check for the move that just executed, before
// the turn flip: a king standing on a hill square wins, and so does
// capturing the opponent's king. Either condition alone suffices and both
// award the game to the mover.
func (e *Engine) updateState(tr, tc int, captured Piece) {
	won := false
	if e.board[tr][tc].Kind == King && IsHill(tr, tc) {
		won = true
	}
	if captured.Kind == King {
		won = true
	}
	if !won {
		return
	}
	if e.turn == White {
		e.state = WhiteWon
	} else {
		e.state = BlackWon
	}
}

func onBoard(r, c int) bool { return r >= 0 && r <= 7 && c >= 0 && c <= 7 }
