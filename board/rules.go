package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lazharichir/elevens/cards"
)

var (
	ErrSlotOutOfRange   = errors.New("slot index out of range")
	ErrEmptySlot        = errors.New("slot is empty")
	ErrIllegalSelection = errors.New("selection is not a legal group")
	ErrUnknownGame      = errors.New("unknown game")
)

// View is the read-only board state a rule engine searches.
type View interface {
	// CardAt returns the card in a slot, or false if the slot is empty.
	CardAt(index int) (cards.Card, bool)
	// CardIndexes returns the occupied slot indexes in ascending order.
	CardIndexes() []int
}

// Rules decides which groups of cards can be removed from a board.
type Rules interface {
	Name() string
	// Size is the number of slots on the board.
	Size() int
	// Layout is the deck the board deals from.
	Layout() Layout
	// IsLegal reports whether exactly the selected slots form a removable group.
	IsLegal(v View, selection []int) bool
	// FindLegalGroup returns the first removable group among candidates, in
	// the order the game prefers, or nil.
	FindLegalGroup(v View, candidates []int) []int
}

// Layout describes a deck: PointValues[i] is the value of Ranks[i].
type Layout struct {
	Ranks       []cards.Rank
	Suits       []cards.Suit
	PointValues []int
}

// Values maps each rank to its point value
func (l Layout) Values() map[cards.Rank]int {
	values := make(map[cards.Rank]int, len(l.Ranks))
	for i, r := range l.Ranks {
		if i < len(l.PointValues) {
			values[r] = l.PointValues[i]
		}
	}
	return values
}

// NewDeck builds and shuffles a deck for this layout
func (l Layout) NewDeck(src cards.Source) (*cards.Deck, error) {
	return cards.NewDeck(l.Ranks, l.Suits, l.PointValues, src)
}

// AnotherPlayIsPossible reports whether any legal group exists among the
// occupied slots.
func AnotherPlayIsPossible(r Rules, v View) bool {
	return len(r.FindLegalGroup(v, v.CardIndexes())) > 0
}

// RulesFor returns the rule engine registered under name
func RulesFor(name string) (Rules, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "elevens":
		return Elevens{}, nil
	case "thirteens":
		return Thirteens{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
}

// Games lists the names accepted by RulesFor
func Games() []string {
	return []string{Elevens{}.Name(), Thirteens{}.Name()}
}

// findPairSum scans pairs (i<j) in list order and returns the first whose
// point values add up to target. Empty slots never pair.
func findPairSum(v View, indexes []int, target int) []int {
	for i := 0; i < len(indexes); i++ {
		first, ok := v.CardAt(indexes[i])
		if !ok {
			continue
		}
		for j := i + 1; j < len(indexes); j++ {
			second, ok := v.CardAt(indexes[j])
			if !ok {
				continue
			}
			if first.PointValue()+second.PointValue() == target {
				return []int{indexes[i], indexes[j]}
			}
		}
	}
	return nil
}

var standardRanks = []cards.Rank{
	cards.Ace, cards.Two, cards.Three, cards.Four, cards.Five, cards.Six, cards.Seven,
	cards.Eight, cards.Nine, cards.Ten, cards.Jack, cards.Queen, cards.King,
}

var standardSuits = []cards.Suit{cards.Spades, cards.Hearts, cards.Diamonds, cards.Clubs}
