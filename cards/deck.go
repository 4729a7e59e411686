package cards

import (
	"errors"
	"fmt"
	"strings"
)

// Deck is a shuffled deck of cards. Cards are dealt from the top, which is
// the highest undealt index; cards[size:] have been dealt, most recent first.
type Deck struct {
	cards []Card
	size  int
	src   Source
}

// NewDeck pairs every rank with every suit, rank-major, giving each card the
// point value at the rank's position, then shuffles the result.
func NewDeck(ranks []Rank, suits []Suit, values []int, src Source) (*Deck, error) {
	if len(ranks) != len(values) {
		return nil, fmt.Errorf("deck needs one point value per rank: %d ranks, %d values", len(ranks), len(values))
	}
	if src == nil {
		return nil, errors.New("deck needs a random source")
	}

	d := &Deck{
		cards: make([]Card, 0, len(ranks)*len(suits)),
		src:   src,
	}
	for i, rank := range ranks {
		for _, suit := range suits {
			d.cards = append(d.cards, NewCard(rank, suit, values[i]))
		}
	}
	d.size = len(d.cards)
	d.Shuffle()

	return d, nil
}

// NewStackedDeck creates an unshuffled deck dealing cs in order: cs[0] comes
// out first. Shuffle on a stacked deck keeps the original order.
func NewStackedDeck(cs ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cs))}
	for i, c := range cs {
		d.cards[len(cs)-1-i] = c
	}
	d.size = len(d.cards)
	return d
}

// IsEmpty reports whether every card has been dealt
func (d *Deck) IsEmpty() bool {
	return d.size == 0
}

// Size returns the number of undealt cards
func (d *Deck) Size() int {
	return d.size
}

// Len returns the total number of cards, dealt or not
func (d *Deck) Len() int {
	return len(d.cards)
}

// Shuffle randomly permutes all the cards and puts the dealt ones back.
func (d *Deck) Shuffle() {
	if d.src != nil {
		for i := len(d.cards) - 1; i > 0; i-- {
			j := d.src.Intn(i + 1)
			d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
		}
	}
	d.size = len(d.cards)
}

// Deal returns the top undealt card, or false when the deck is empty
func (d *Deck) Deal() (Card, bool) {
	if d.IsEmpty() {
		return Card{}, false
	}
	d.size--
	return d.cards[d.size], true
}

// Undealt returns the undealt cards, next to deal first
func (d *Deck) Undealt() Stack {
	out := make(Stack, 0, d.size)
	for k := d.size - 1; k >= 0; k-- {
		out = append(out, d.cards[k])
	}
	return out
}

// Dealt returns the dealt cards, first dealt first
func (d *Deck) Dealt() Stack {
	out := make(Stack, 0, len(d.cards)-d.size)
	for k := len(d.cards) - 1; k >= d.size; k-- {
		out = append(out, d.cards[k])
	}
	return out
}

func (d *Deck) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "size = %d\nUndealt cards: \n", d.size)
	writeRows(&b, d.Undealt())
	b.WriteString("\nDealt cards: \n")
	writeRows(&b, d.Dealt())
	b.WriteString("\n")
	return b.String()
}

// writeRows prints two cards per line so a whole deck fits on a console
func writeRows(b *strings.Builder, s Stack) {
	for i := 0; i < len(s); i += 2 {
		end := min(i+2, len(s))
		b.WriteString(s[i:end].String())
		if end < len(s) {
			b.WriteString(",\n")
		}
	}
}
