package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/lazharichir/elevens/board"
	"github.com/lazharichir/elevens/store"
)

func main() {
	game := flag.String("game", "elevens", "game to simulate: elevens or thirteens")
	n := flag.Int("n", 1000, "number of games")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed of the first game; game i uses seed+i")
	dbPath := flag.String("db", "", "optional SQLite database to record results in")
	verbose := flag.Bool("v", false, "print every final board")
	flag.Parse()

	handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
	logger := slog.New(handler)

	rules, err := board.RulesFor(*game)
	if err != nil {
		logger.Error("unknown game", "game", *game, "known", board.Games())
		os.Exit(2)
	}
	if *n < 1 {
		logger.Error("nothing to simulate", "n", *n)
		os.Exit(2)
	}

	var st *store.Store
	if *dbPath != "" {
		st, err = store.Open(*dbPath)
		if err != nil {
			logger.Error("failed to open results database", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer st.Close()
	}

	printBanner(rules)

	bar, _ := pterm.DefaultProgressbar.WithTotal(*n).WithTitle("Playing " + rules.Name()).Start()
	outcomes := make([]outcome, 0, *n)
	for i := 0; i < *n; i++ {
		o, err := playOne(rules, *seed+int64(i))
		if err != nil {
			bar.Stop()
			logger.Error("simulation failed", "seed", *seed+int64(i), "error", err)
			os.Exit(1)
		}
		outcomes = append(outcomes, o)
		if *verbose {
			pterm.Println(finalBoardPanel(o))
		}
		bar.Increment()
	}
	bar.Stop()

	if st != nil {
		ctx := context.Background()
		for _, o := range outcomes {
			if _, err := st.RecordResult(ctx, o.result(uuid.NewString())); err != nil {
				logger.Error("failed to record result", "seed", o.Seed, "error", err)
				os.Exit(1)
			}
		}
		stats, err := st.Stats(ctx, rules.Name())
		if err != nil {
			logger.Error("failed to load stats", "error", err)
			os.Exit(1)
		}
		logger.Info("results recorded", "path", *dbPath, "games", len(outcomes), "allTimePlayed", stats.Played)
	}

	printSummary(rules, summarize(outcomes))
}
