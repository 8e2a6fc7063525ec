package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/ellecpu/king-of-hills/internal/variant"
)

func TestRenderPNGStartingPosition(t *testing.T) {
	r := NewRenderer(32)
	e := variant.NewEngine()
	data, err := r.RenderPNG(context.Background(), e.Board(), Options{Header: "Alice vs Bob", TurnLabel: "white to move"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}
	if img.Bounds().Dx() < 8*32 {
		t.Fatalf("image too small: %v", img.Bounds())
	}
}

func TestRenderChangesAfterMove(t *testing.T) {
	r := NewRenderer(24)
	e := variant.NewEngine()
	before, err := r.RenderPNG(context.Background(), e.Board(), Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if !e.AttemptMove("e2", "e4") {
		t.Fatalf("expected e2e4 to be legal")
	}
	fr, fc, _ := variant.ParseSquare("e2")
	tr, tc, _ := variant.ParseSquare("e4")
	after, err := r.RenderPNG(context.Background(), e.Board(), Options{
		Highlight: &Highlight{FromRow: fr, FromCol: fc, ToRow: tr, ToCol: tc},
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if bytes.Equal(before, after) {
		t.Fatalf("expected the rendered board to change after a move")
	}
}

func TestRenderHonorsContext(t *testing.T) {
	r := NewRenderer(24)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, variant.NewEngine().Board(), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
