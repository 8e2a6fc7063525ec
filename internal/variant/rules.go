package variant

// Movement legality is a closed dispatch table over the six piece kinds.
// Every rule assumes source != destination and inspects only board
// contents and indices; turn and game state are not consulted beyond the
// mover's side, which fixes the pawn's forward direction. Friendly-fire
// and capture bookkeeping are handled by the engine after dispatch.

type moveRule func(b *Board, fr, fc, tr, tc int, side Side) bool

var moveRules = [King + 1]moveRule{
	Pawn:   pawnMove,
	Rook:   rookMove,
	Knight: knightMove,
	Bishop: bishopMove,
	Queen:  queenMove,
	King:   kingMove,
}

func pawnMove(b *Board, fr, fc, tr, tc int, side Side) bool {
	dir, start := -1, 6
	if side == Black {
		dir, start = 1, 1
	}

	if fc == tc {
		// Single step to an empty square.
		if tr == fr+dir && b[tr][tc].IsEmpty() {
			return true
		}
		// Double step from the starting rank through two empty squares.
		if fr == start && tr == fr+2*dir && b[fr+dir][fc].IsEmpty() && b[tr][tc].IsEmpty() {
			return true
		}
		return false
	}

	// Diagonal step is legal only as a capture.
	if abs(tc-fc) == 1 && tr == fr+dir {
		t := b[tr][tc]
		return !t.IsEmpty() && t.Side != side
	}
	return false
}

func rookMove(b *Board, fr, fc, tr, tc int, _ Side) bool {
	if fr != tr && fc != tc {
		return false
	}
	return pathClear(b, fr, fc, tr, tc)
}

func knightMove(_ *Board, fr, fc, tr, tc int, _ Side) bool {
	dr, dc := abs(tr-fr), abs(tc-fc)
	return (dr == 2 && dc == 1) || (dr == 1 && dc == 2)
}

func bishopMove(b *Board, fr, fc, tr, tc int, _ Side) bool {
	if abs(tr-fr) != abs(tc-fc) {
		return false
	}
	return pathClear(b, fr, fc, tr, tc)
}

func queenMove(b *Board, fr, fc, tr, tc int, side Side) bool {
	return rookMove(b, fr, fc, tr, tc, side) || bishopMove(b, fr, fc, tr, tc, side)
}

func kingMove(_ *Board, fr, fc, tr, tc int, _ Side) bool {
	return abs(tr-fr) <= 1 && abs(tc-fc) <= 1
}

// pathClear walks the open interval between source and destination by the
// unit sign of each delta and fails on any occupied square. Knights never
// call this; kings and pawns have no interval longer than one step.
func pathClear(b *Board, fr, fc, tr, tc int) bool {
	dr, dc := sign(tr-fr), sign(tc-fc)
	for r, c := fr+dr, fc+dc; r != tr || c != tc; r, c = r+dr, c+dc {
		if !b[r][c].IsEmpty() {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
