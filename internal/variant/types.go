// Package variant implements the rules engine for the king-of-the-hills
// chess variant: standard piece movement on a standard board, but a game
// is won by moving one's king onto a center square or by capturing the
// opponent's king. There is no check, castling, en passant, or promotion.
package variant

import "strings"

// Side identifies a player color.
type Side uint8

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// Kind identifies a piece type. The zero value marks an empty square.
type Kind uint8

const (
	NoPiece Kind = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindNames = [...]string{"", "pawn", "rook", "knight", "bishop", "queen", "king"}
var kindLetters = [...]byte{' ', 'P', 'R', 'N', 'B', 'Q', 'K'}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// Letter returns the single-letter code for the kind, uppercase for White
// and lowercase for Black. Empty squares render as a space.
func (k Kind) Letter(s Side) byte {
	if k == NoPiece || int(k) >= len(kindLetters) {
		return ' '
	}
	b := kindLetters[k]
	if s == Black {
		b |= 0x20
	}
	return b
}

// Piece occupies a board square. The zero Piece is an empty square.
type Piece struct {
	Kind Kind
	Side Side
}

// IsEmpty reports whether the square holds no piece.
func (p Piece) IsEmpty() bool { return p.Kind == NoPiece }

// Letter returns the textual code for the piece, space when empty.
func (p Piece) Letter() byte { return p.Kind.Letter(p.Side) }

// Board is a square-centric 8x8 grid. Row 0 is rank 8, row 7 is rank 1;
// column 0 is file 'a'. Squares are independent value slots, so copying a
// Board is a flat value copy.
type Board [8][8]Piece

// At returns the piece at (row, col). Out-of-range coordinates yield an
// empty piece.
func (b *Board) At(row, col int) Piece {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return Piece{}
	}
	return b[row][col]
}

// String renders the board one line per row, squares space-separated,
// uppercase for White, lowercase for Black, space for empty.
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(b[r][c].Letter())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// GameState is the lifecycle of a game. Once it leaves InProgress it is
// frozen and the engine rejects every further move.
type GameState uint8

const (
	InProgress GameState = iota
	WhiteWon
	BlackWon
)

func (g GameState) String() string {
	switch g {
	case WhiteWon:
		return "white_won"
	case BlackWon:
		return "black_won"
	default:
		return "in_progress"
	}
}

// ParseSquare converts algebraic notation ("e2", case-insensitive file)
// into (row, col) board indices. ok is false for any other input.
func ParseSquare(s string) (row, col int, ok bool) {
	if len(s) != 2 {
		return 0, 0, false
	}
	f := s[0] | 0x20
	if f < 'a' || f > 'h' {
		return 0, 0, false
	}
	if s[1] < '1' || s[1] > '8' {
		return 0, 0, false
	}
	return 8 - int(s[1]-'0'), int(f - 'a'), true
}

// SquareName is the inverse of ParseSquare.
func SquareName(row, col int) string {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return ""
	}
	return string([]byte{byte('a' + col), byte('0' + 8 - row)})
}

// IsHill reports whether (row, col) is one of the four center squares
// d4, e4, d5, e5 that award the game to a king landing there.
func IsHill(row, col int) bool {
	return (row == 3 || row == 4) && (col == 3 || col == 4)
}
