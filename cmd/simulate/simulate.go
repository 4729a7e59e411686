package main

import (
	"github.com/lazharichir/elevens/board"
	"github.com/lazharichir/elevens/cards"
	"github.com/lazharichir/elevens/store"
)

type outcome struct {
	Game      string
	Seed      int64
	Won       bool
	Plays     int
	CardsLeft int
	Final     string
}

func (o outcome) result(gameID string) store.Result {
	return store.Result{
		GameID:    gameID,
		Game:      o.Game,
		Seed:      o.Seed,
		Won:       o.Won,
		Plays:     o.Plays,
		CardsLeft: o.CardsLeft,
	}
}

// playOne deals a game from seed and takes the first legal group until none is left.
func playOne(rules board.Rules, seed int64) (outcome, error) {
	b, err := board.New(rules, cards.NewSeededSource(seed))
	if err != nil {
		return outcome{}, err
	}

	o := outcome{Game: rules.Name(), Seed: seed}
	for b.PlayIfPossible() {
		o.Plays++
	}
	o.Won = b.GameIsWon()
	o.CardsLeft = b.DeckSize() + len(b.CardIndexes())
	o.Final = b.String()
	return o, nil
}

type summary struct {
	Games         int
	Wins          int
	TotalPlays    int
	BestCardsLeft int
	// CardsLeft[k] counts the games that ended with k cards undealt or on the board.
	CardsLeft map[int]int
}

func (s summary) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}

func (s summary) AveragePlays() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.TotalPlays) / float64(s.Games)
}

func summarize(outcomes []outcome) summary {
	s := summary{CardsLeft: map[int]int{}, BestCardsLeft: -1}
	for _, o := range outcomes {
		s.Games++
		if o.Won {
			s.Wins++
		}
		s.TotalPlays += o.Plays
		s.CardsLeft[o.CardsLeft]++
		if s.BestCardsLeft < 0 || o.CardsLeft < s.BestCardsLeft {
			s.BestCardsLeft = o.CardsLeft
		}
	}
	return s
}
