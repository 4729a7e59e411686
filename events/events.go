package events

import "github.com/lazharichir/elevens/cards"

// GameStarted is recorded when a board is dealt, including after a restart.
type GameStarted struct {
	GameID string   `json:"gameId"`
	Game   string   `json:"game"`
	Seed   int64    `json:"seed"`
	Board  []string `json:"board"`
}

func (e GameStarted) EventName() string { return "game-started" }
func (e GameStarted) gameID() string { return e.GameID }

// GroupRemoved is recorded when a legal group leaves the board.
type GroupRemoved struct {
	GameID string       `json:"gameId"`
	Slots  []int        `json:"slots"`
	Cards  []cards.Card `json:"cards"`
	Auto   bool         `json:"auto"`
}

func (e GroupRemoved) EventName() string { return "group-removed" }
func (e GroupRemoved) gameID() string { return e.GameID }

// SlotRefilled is recorded when a card is dealt into an emptied slot.
type SlotRefilled struct {
	GameID string     `json:"gameId"`
	Slot   int        `json:"slot"`
	Card   cards.Card `json:"card"`
}

func (e SlotRefilled) EventName() string { return "slot-refilled" }
func (e SlotRefilled) gameID() string { return e.GameID }

// SlotEmptied is recorded when the deck could not refill a slot.
type SlotEmptied struct {
	GameID string `json:"gameId"`
	Slot   int    `json:"slot"`
}

func (e SlotEmptied) EventName() string { return "slot-emptied" }
func (e SlotEmptied) gameID() string { return e.GameID }

// GameEnded is recorded once no legal group is left on the board.
type GameEnded struct {
	GameID    string `json:"gameId"`
	Game      string `json:"game"`
	Won       bool   `json:"won"`
	Plays     int    `json:"plays"`
	CardsLeft int    `json:"cardsLeft"`
}

func (e GameEnded) EventName() string { return "game-ended" }
func (e GameEnded) gameID() string { return e.GameID }
