// Package render produces PNG snapshots of a board: light/dark squares,
// a tint on the four hill squares, piece glyphs rasterized from embedded
// SVGs, coordinate labels, and an optional caption plus last-move
// highlight.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ellecpu/king-of-hills/internal/variant"
)

var (
	lightSquare   = color.RGBA{R: 0xf0, G: 0xd9, B: 0xb5, A: 0xff}
	darkSquare    = color.RGBA{R: 0xb5, G: 0x88, B: 0x63, A: 0xff}
	hillTint      = color.RGBA{R: 0x6f, G: 0xa8, B: 0x5e, A: 0x78}
	highlightTint = color.RGBA{R: 0xf7, G: 0xec, B: 0x5a, A: 0x8c}
	marginFill    = color.RGBA{R: 0x26, G: 0x26, B: 0x26, A: 0xff}
	labelColor    = color.RGBA{R: 0xd9, G: 0xd9, B: 0xd9, A: 0xff}
)

// Highlight marks the squares of the last move.
type Highlight struct {
	FromRow, FromCol int
	ToRow, ToCol     int
}

// Options control the optional caption and highlight.
type Options struct {
	Highlight *Highlight
	Header    string
	TurnLabel string
}

type Renderer struct {
	squareSize int
}

// NewRenderer builds a renderer with the given square size in pixels;
// values below 16 fall back to 72.
func NewRenderer(squareSize int) *Renderer {
	if squareSize < 16 {
		squareSize = 72
	}
	return &Renderer{squareSize: squareSize}
}

// RenderPNG draws the board and encodes it as PNG.
func (r *Renderer) RenderPNG(ctx context.Context, board variant.Board, opts Options) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	const margin = 24
	headerH := 0
	if opts.Header != "" || opts.TurnLabel != "" {
		headerH = 28
	}
	boardPx := r.squareSize * 8
	totalW := boardPx + margin*2
	totalH := boardPx + margin*2 + headerH
	origin := image.Point{X: margin, Y: margin + headerH}

	img := image.NewRGBA(image.Rect(0, 0, totalW, totalH))
	draw.Draw(img, img.Bounds(), image.NewUniform(marginFill), image.Point{}, draw.Src)

	r.drawSquares(img, origin, opts.Highlight)
	if err := r.drawPieces(img, origin, board); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, origin)
	if headerH > 0 {
		caption := opts.Header
		if opts.TurnLabel != "" {
			if caption != "" {
				caption += "  •  "
			}
			caption += opts.TurnLabel
		}
		drawLabel(img, margin, margin-6+headerH/2, caption)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawSquares(img *image.RGBA, origin image.Point, hl *Highlight) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			rect := r.squareRect(origin, row, col)
			fill := lightSquare
			if (row+col)%2 == 1 {
				fill = darkSquare
			}
			draw.Draw(img, rect, image.NewUniform(fill), image.Point{}, draw.Src)
			if variant.IsHill(row, col) {
				draw.Draw(img, rect, image.NewUniform(hillTint), image.Point{}, draw.Over)
			}
			if hl != nil && ((row == hl.FromRow && col == hl.FromCol) || (row == hl.ToRow && col == hl.ToCol)) {
				draw.Draw(img, rect, image.NewUniform(highlightTint), image.Point{}, draw.Over)
			}
		}
	}
}

func (r *Renderer) drawPieces(img *image.RGBA, origin image.Point, board variant.Board) error {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := board[row][col]
			if p.IsEmpty() {
				continue
			}
			glyph, err := pieceImage(p, r.squareSize)
			if err != nil {
				return err
			}
			draw.Draw(img, r.squareRect(origin, row, col), glyph, image.Point{}, draw.Over)
		}
	}
	return nil
}

func (r *Renderer) drawCoordinates(img *image.RGBA, origin image.Point) {
	boardPx := r.squareSize * 8
	for col := 0; col < 8; col++ {
		x := origin.X + col*r.squareSize + r.squareSize/2 - 3
		drawLabel(img, x, origin.Y+boardPx+16, string(rune('a'+col)))
	}
	for row := 0; row < 8; row++ {
		y := origin.Y + row*r.squareSize + r.squareSize/2 + 4
		drawLabel(img, origin.X-14, y, string(rune('0'+8-row)))
	}
}

func (r *Renderer) squareRect(origin image.Point, row, col int) image.Rectangle {
	x0 := origin.X + col*r.squareSize
	y0 := origin.Y + row*r.squareSize
	return image.Rect(x0, y0, x0+r.squareSize, y0+r.squareSize)
}

func drawLabel(img *image.RGBA, x, y int, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
