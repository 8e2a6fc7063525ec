// Package presenter formats match state for plain-text surfaces such as
// the CLI and chat relays.
package presenter

import (
	"fmt"
	"strings"

	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

// Board renders the textual board with file and rank guides.
func Board(dump string) string {
	lines := strings.Split(strings.TrimRight(dump, "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		rank := 8 - i
		b.WriteString(fmt.Sprintf("%d  %s\n", rank, line))
	}
	b.WriteString("\n   a b c d e f g h")
	return b.String()
}

// Match builds the full status block shown after every move.
func Match(view kohdto.MatchView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s vs %s]\n", view.WhiteName, view.BlackName)
	b.WriteString(Board(view.BoardDump))
	b.WriteString("\n\n")

	switch view.Status {
	case "ACTIVE":
		fmt.Fprintf(&b, "%s to move", capitalize(view.Turn))
		if n := len(view.Moves); n > 0 {
			fmt.Fprintf(&b, " (last: %s)", view.Moves[n-1])
		}
	default:
		b.WriteString(Result(view))
	}

	if len(view.CapturedByWhite) > 0 {
		fmt.Fprintf(&b, "\nWhite captured: %s", strings.Join(view.CapturedByWhite, " "))
	}
	if len(view.CapturedByBlack) > 0 {
		fmt.Fprintf(&b, "\nBlack captured: %s", strings.Join(view.CapturedByBlack, " "))
	}
	return b.String()
}

// Result describes how a finished match ended.
func Result(view kohdto.MatchView) string {
	winner := view.WhiteName
	loser := view.BlackName
	if view.Winner == view.BlackID {
		winner, loser = view.BlackName, view.WhiteName
	}
	switch view.Outcome {
	case "hill":
		return fmt.Sprintf("%s wins: king reached the center", winner)
	case "regicide":
		return fmt.Sprintf("%s wins: captured the enemy king", winner)
	case "resign":
		return fmt.Sprintf("%s wins: %s resigned", winner, loser)
	}
	return fmt.Sprintf("%s wins", winner)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
