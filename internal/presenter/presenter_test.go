package presenter

import (
	"strings"
	"testing"

	"github.com/ellecpu/king-of-hills/internal/variant"
	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

func TestBoardGuides(t *testing.T) {
	eng := variant.NewEngine()
	out := Board(eng.String())
	if !strings.HasPrefix(out, "8  r n b q k b n r") {
		t.Fatalf("missing rank 8 guide:\n%s", out)
	}
	if !strings.Contains(out, "1  R N B Q K B N R") {
		t.Fatalf("missing rank 1 guide:\n%s", out)
	}
	if !strings.HasSuffix(out, "a b c d e f g h") {
		t.Fatalf("missing file guide:\n%s", out)
	}
}

func TestMatchActive(t *testing.T) {
	eng := variant.NewEngine()
	view := kohdto.MatchView{
		WhiteName: "Alice", BlackName: "Bob",
		Status: "ACTIVE", Turn: "black",
		Moves:     []string{"e2e4"},
		BoardDump: eng.String(),
	}
	out := Match(view)
	if !strings.Contains(out, "[Alice vs Bob]") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "Black to move (last: e2e4)") {
		t.Fatalf("missing turn line:\n%s", out)
	}
}

func TestResultVariants(t *testing.T) {
	base := kohdto.MatchView{
		WhiteID: "w", WhiteName: "Alice",
		BlackID: "b", BlackName: "Bob",
		Winner: "b",
	}
	cases := []struct {
		outcome string
		want    string
	}{
		{"hill", "Bob wins: king reached the center"},
		{"regicide", "Bob wins: captured the enemy king"},
		{"resign", "Bob wins: Alice resigned"},
	}
	for _, tc := range cases {
		view := base
		view.Outcome = tc.outcome
		if got := Result(view); got != tc.want {
			t.Errorf("outcome %s = %q, want %q", tc.outcome, got, tc.want)
		}
	}
}
