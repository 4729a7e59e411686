package cards

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// AllSuits lists the suits in deck construction order.
var AllSuits = []Suit{Spades, Hearts, Diamonds, Clubs}

var suitLabels = map[Suit]string{
	Spades:   "spades",
	Hearts:   "hearts",
	Diamonds: "diamonds",
	Clubs:    "clubs",
}

var suitSymbols = map[Suit]string{
	Spades:   "s",
	Hearts:   "h",
	Diamonds: "d",
	Clubs:    "c",
}

// String returns the suit label, e.g. "spades"
func (s Suit) String() string {
	if label, ok := suitLabels[s]; ok {
		return label
	}
	return "suit(" + strconv.Itoa(int(s)) + ")"
}

// Rank represents a card rank
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// AllRanks lists the ranks ace through king.
var AllRanks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// String returns the rank label: "ace", "2".."10", "jack", "queen", "king"
func (r Rank) String() string {
	switch r {
	case Ace:
		return "ace"
	case Jack:
		return "jack"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	if r >= Two && r <= Ten {
		return strconv.Itoa(int(r))
	}
	return "rank(" + strconv.Itoa(int(r)) + ")"
}

func (r Rank) short() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	return strconv.Itoa(int(r))
}

// Card is an immutable playing card. Its point value is game specific.
type Card struct {
	rank       Rank
	suit       Suit
	pointValue int
}

// NewCard creates a card
func NewCard(rank Rank, suit Suit, pointValue int) Card {
	return Card{rank: rank, suit: suit, pointValue: pointValue}
}

func (c Card) Rank() Rank { return c.rank }

func (c Card) Suit() Suit { return c.suit }

func (c Card) PointValue() int { return c.pointValue }

// IsZero reports whether c is the zero Card, which never comes out of a deck.
func (c Card) IsZero() bool { return c.rank == 0 }

// Short returns the compact form parsed by CardFromString, e.g. "10s" or "Jh".
func (c Card) Short() string { return c.rank.short() + suitSymbols[c.suit] }

// Matches reports whether both cards have the same rank and suit.
// The point value is ignored.
func (c Card) Matches(other Card) bool {
	return c.rank == other.rank && c.suit == other.suit
}

// String returns the string representation of a card
func (c Card) String() string {
	return fmt.Sprintf("%s of %s (point value = %d)", c.rank, c.suit, c.pointValue)
}

type cardJSON struct {
	Rank       string `json:"rank"`
	Suit       string `json:"suit"`
	PointValue int    `json:"pointValue"`
	Label      string `json:"label"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{
		Rank:       c.rank.String(),
		Suit:       c.suit.String(),
		PointValue: c.pointValue,
		Label:      c.Short(),
	})
}

// CardFromString creates a card from its short form, e.g. "10♠", "10s" or "Qh".
// The point value is looked up in values, keyed by rank; missing ranks score 0.
func CardFromString(s string, values map[Rank]int) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card shorthand: %s", s)
	}

	var suit Suit
	var rest string
	switch {
	case strings.HasSuffix(s, "♠"):
		suit, rest = Spades, s[:len(s)-len("♠")]
	case strings.HasSuffix(s, "♥"):
		suit, rest = Hearts, s[:len(s)-len("♥")]
	case strings.HasSuffix(s, "♦"):
		suit, rest = Diamonds, s[:len(s)-len("♦")]
	case strings.HasSuffix(s, "♣"):
		suit, rest = Clubs, s[:len(s)-len("♣")]
	default:
		rest = s[:len(s)-1]
		switch s[len(s)-1:] {
		case "s", "S":
			suit = Spades
		case "h", "H":
			suit = Hearts
		case "d", "D":
			suit = Diamonds
		case "c", "C":
			suit = Clubs
		default:
			return Card{}, fmt.Errorf("invalid card suit: %s", s[len(s)-1:])
		}
	}

	var rank Rank
	switch rest {
	case "A", "a":
		rank = Ace
	case "K", "k":
		rank = King
	case "Q", "q":
		rank = Queen
	case "J", "j":
		rank = Jack
	default:
		n, err := strconv.Atoi(rest)
		if err != nil || n < 2 || n > 10 || rest[0] == '+' || rest[0] == '0' {
			return Card{}, fmt.Errorf("invalid card value: %s", rest)
		}
		rank = Rank(n)
	}

	return NewCard(rank, suit, values[rank]), nil
}
