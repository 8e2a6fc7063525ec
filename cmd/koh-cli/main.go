// koh-cli plays a match from the terminal. Without flags it runs a
// local hot-seat game; with -server it talks to a running koh-server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ellecpu/king-of-hills/internal/presenter"
	"github.com/ellecpu/king-of-hills/internal/variant"
	"github.com/ellecpu/king-of-hills/pkg/kohclient"
	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

func main() {
	server := flag.String("server", "", "base URL of a koh-server; empty for local hot-seat play")
	matchID := flag.String("match", "", "existing match ID to join (remote mode)")
	playerID := flag.String("player", "cli-white", "player ID to move as (remote mode)")
	flag.Parse()

	if *server == "" {
		runLocal()
		return
	}
	if err := runRemote(*server, *matchID, *playerID); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runLocal() {
	eng := variant.NewEngine()
	in := bufio.NewScanner(os.Stdin)

	fmt.Println("Hot-seat game. Enter moves as two squares, e.g. \"e2 e4\". \"quit\" exits.")
	for eng.State() == variant.InProgress {
		fmt.Println()
		fmt.Println(presenter.Board(eng.String()))
		fmt.Printf("\n%s> ", eng.Turn())
		if !in.Scan() {
			return
		}
		from, to, ok := splitMove(in.Text())
		if !ok {
			if strings.EqualFold(strings.TrimSpace(in.Text()), "quit") {
				return
			}
			fmt.Println("enter exactly two squares")
			continue
		}
		if !eng.AttemptMove(from, to) {
			fmt.Println("move rejected")
		}
	}

	fmt.Println()
	fmt.Println(presenter.Board(eng.String()))
	switch eng.State() {
	case variant.WhiteWon:
		fmt.Println("\nWhite wins")
	case variant.BlackWon:
		fmt.Println("\nBlack wins")
	}
}

func runRemote(server, matchID, playerID string) error {
	ctx := context.Background()
	client := kohclient.NewClient(server, kohclient.WithTimeout(10*time.Second))

	var view *kohdto.MatchView
	var err error
	if matchID == "" {
		view, err = client.CreateMatch(ctx, kohdto.CreateMatchRequest{
			WhiteID: playerID, WhiteName: playerID,
			BlackID: "cli-black", BlackName: "cli-black",
		})
		if err != nil {
			return err
		}
		fmt.Println("created match", view.ID)
	} else {
		view, err = client.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
	}

	updates := make(chan kohdto.MatchView, 8)
	w := client.Watch(view.ID, func(v kohdto.MatchView) { updates <- v })
	if err := w.Connect(ctx); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Stop()

	go func() {
		for v := range updates {
			fmt.Println()
			fmt.Println(presenter.Match(v))
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	fmt.Printf("Playing as %s. Moves as \"e2 e4\", \"resign\" or \"quit\".\n", playerID)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return nil
		}
		line := strings.TrimSpace(in.Text())
		switch strings.ToLower(line) {
		case "quit":
			return nil
		case "resign":
			final, err := client.Resign(ctx, view.ID, playerID)
			if err != nil {
				return err
			}
			fmt.Println(presenter.Result(*final))
			return nil
		}

		from, to, ok := splitMove(line)
		if !ok {
			fmt.Println("enter exactly two squares")
			continue
		}
		res, err := client.PlayMove(ctx, view.ID, kohdto.MoveRequest{
			PlayerID: playerID, From: from, To: to,
		})
		if err != nil {
			return err
		}
		if !res.Accepted {
			fmt.Println("move rejected:", res.Reason)
			continue
		}
		if res.Match != nil && res.Match.Status != "ACTIVE" {
			fmt.Println(presenter.Result(*res.Match))
			return nil
		}
	}
}

func splitMove(line string) (from, to string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}
