package board

import (
	"fmt"
	"strings"

	"github.com/lazharichir/elevens/cards"
)

// Slot is one board position. The zero Slot is empty.
type Slot struct {
	card     cards.Card
	occupied bool
}

func occupied(c cards.Card) Slot { return Slot{card: c, occupied: true} }

// Card returns the card in the slot, or false if the slot is empty
func (s Slot) Card() (cards.Card, bool) { return s.card, s.occupied }

func (s Slot) IsEmpty() bool { return !s.occupied }

// SlotChange reports one slot losing its card, and what replaced it.
type SlotChange struct {
	Index   int
	Removed cards.Card
	Dealt   cards.Card
	// Emptied is set when the deck had nothing left to deal into the slot.
	Emptied bool
}

type ChangeHandler func(SlotChange)

// Board is a fixed row of card slots refilled from a deck. What may be
// removed from it is decided by its Rules.
type Board struct {
	rules    Rules
	slots    []Slot
	deck     *cards.Deck
	handlers []ChangeHandler
}

// New creates a board for rules, shuffling a fresh deck from src and
// dealing one card into every slot.
func New(rules Rules, src cards.Source) (*Board, error) {
	deck, err := rules.Layout().NewDeck(src)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s deck: %w", rules.Name(), err)
	}
	return NewWithDeck(rules, deck), nil
}

// NewWithDeck creates a board dealing from the given deck as it stands.
func NewWithDeck(rules Rules, deck *cards.Deck) *Board {
	b := &Board{
		rules: rules,
		slots: make([]Slot, rules.Size()),
		deck:  deck,
	}
	b.dealMyCards()
	return b
}

// NewGame reshuffles the whole deck and deals a fresh board.
func (b *Board) NewGame() {
	b.deck.Shuffle()
	b.dealMyCards()
}

func (b *Board) dealMyCards() {
	for i := range b.slots {
		if c, ok := b.deck.Deal(); ok {
			b.slots[i] = occupied(c)
		} else {
			b.slots[i] = Slot{}
		}
	}
}

// OnChange registers a handler called for every slot ReplaceSelectedCards touches.
func (b *Board) OnChange(handler ChangeHandler) {
	b.handlers = append(b.handlers, handler)
}

func (b *Board) Rules() Rules { return b.rules }

// Size returns the number of slots
func (b *Board) Size() int { return len(b.slots) }

// DeckSize returns the number of undealt cards
func (b *Board) DeckSize() int { return b.deck.Size() }

// CardAt returns the card in slot index, or false for an empty slot. Indexes
// outside the board are reported as empty.
func (b *Board) CardAt(index int) (cards.Card, bool) {
	if index < 0 || index >= len(b.slots) {
		return cards.Card{}, false
	}
	return b.slots[index].Card()
}

// Slot returns slot index
func (b *Board) Slot(index int) (Slot, error) {
	if err := b.checkIndex(index); err != nil {
		return Slot{}, err
	}
	return b.slots[index], nil
}

// Slots returns a copy of every slot
func (b *Board) Slots() []Slot {
	return append([]Slot(nil), b.slots...)
}

// CardIndexes returns the indexes of occupied slots in ascending order.
func (b *Board) CardIndexes() []int {
	indexes := make([]int, 0, len(b.slots))
	for i, s := range b.slots {
		if !s.IsEmpty() {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// ReplaceSelectedCards deals a new card into each given slot, or empties the
// slot once the deck has run out. Nothing changes if any index is invalid.
func (b *Board) ReplaceSelectedCards(indexes []int) error {
	for _, index := range indexes {
		if err := b.checkIndex(index); err != nil {
			return err
		}
	}

	for _, index := range indexes {
		change := SlotChange{Index: index, Removed: b.slots[index].card}
		if c, ok := b.deck.Deal(); ok {
			b.slots[index] = occupied(c)
			change.Dealt = c
		} else {
			b.slots[index] = Slot{}
			change.Emptied = true
		}
		for _, handler := range b.handlers {
			handler(change)
		}
	}
	return nil
}

// IsEmpty reports whether every slot is empty
func (b *Board) IsEmpty() bool {
	for _, s := range b.slots {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// GameIsWon reports whether every card has been dealt and removed.
func (b *Board) GameIsWon() bool {
	return b.deck.IsEmpty() && b.IsEmpty()
}

func (b *Board) IsLegal(selection []int) bool {
	return b.rules.IsLegal(b, selection)
}

func (b *Board) AnotherPlayIsPossible() bool {
	return AnotherPlayIsPossible(b.rules, b)
}

func (b *Board) FindLegalGroup(candidates []int) []int {
	return b.rules.FindLegalGroup(b, candidates)
}

// Hint returns a legal group among the occupied slots, or nil.
func (b *Board) Hint() []int {
	return b.FindLegalGroup(b.CardIndexes())
}

// AutoPlay removes the group Hint finds and returns it.
func (b *Board) AutoPlay() ([]int, bool) {
	group := b.Hint()
	if len(group) == 0 {
		return nil, false
	}
	if err := b.ReplaceSelectedCards(group); err != nil {
		return nil, false
	}
	return group, true
}

// PlayIfPossible makes the first legal play it finds and reports whether it did.
func (b *Board) PlayIfPossible() bool {
	_, played := b.AutoPlay()
	return played
}

// Play removes a player's selection, which must be a legal group of
// distinct occupied slots.
func (b *Board) Play(selection []int) error {
	seen := make(map[int]bool, len(selection))
	for _, index := range selection {
		if err := b.checkIndex(index); err != nil {
			return err
		}
		if b.slots[index].IsEmpty() {
			return fmt.Errorf("%w: %d", ErrEmptySlot, index)
		}
		if seen[index] {
			return fmt.Errorf("%w: slot %d selected twice", ErrIllegalSelection, index)
		}
		seen[index] = true
	}

	if !b.IsLegal(selection) {
		return fmt.Errorf("%w: %v", ErrIllegalSelection, selection)
	}
	return b.ReplaceSelectedCards(selection)
}

func (b *Board) checkIndex(index int) error {
	if index < 0 || index >= len(b.slots) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, index, len(b.slots))
	}
	return nil
}

func (b *Board) String() string {
	var s strings.Builder
	for i, slot := range b.slots {
		if c, ok := slot.Card(); ok {
			fmt.Fprintf(&s, "%d: %s\n", i, c)
		} else {
			fmt.Fprintf(&s, "%d: --\n", i)
		}
	}
	return s.String()
}
