package main

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"

	"github.com/lazharichir/elevens/board"
)

func printBanner(rules board.Rules) {
	pterm.DefaultHeader.WithFullWidth().Println(fmt.Sprintf("%s solitaire simulation", rules.Name()))
	pterm.Info.Printfln("Board of %d slots, removing groups until none is left", rules.Size())
}

func finalBoardPanel(o outcome) string {
	title := pterm.LightRed("|LOST|")
	if o.Won {
		title = pterm.LightGreen("|WON|")
	}
	box := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTitle(fmt.Sprintf("%s seed %d", title, o.Seed)).WithTitleTopCenter()
	return box.Sprint(o.Final + pterm.Sprintf("plays: %d, cards left: %d", o.Plays, o.CardsLeft))
}

func printSummary(rules board.Rules, s summary) {
	data := pterm.TableData{
		{"Game", "Played", "Won", "Win rate", "Avg plays", "Best finish"},
		{
			rules.Name(),
			fmt.Sprint(s.Games),
			fmt.Sprint(s.Wins),
			fmt.Sprintf("%.2f%%", 100*s.WinRate()),
			fmt.Sprintf("%.1f", s.AveragePlays()),
			fmt.Sprintf("%d cards left", s.BestCardsLeft),
		},
	}
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()

	left := make([]int, 0, len(s.CardsLeft))
	for k := range s.CardsLeft {
		left = append(left, k)
	}
	sort.Ints(left)

	bars := make(pterm.Bars, 0, len(left))
	for _, k := range left {
		bars = append(bars, pterm.Bar{Label: fmt.Sprint(k), Value: s.CardsLeft[k]})
	}
	pterm.Println()
	pterm.Info.Println("Games by cards left at the end")
	pterm.DefaultBarChart.WithHorizontal().WithBars(bars).WithShowValue().Render()
}
