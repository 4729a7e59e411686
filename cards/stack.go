package cards

import "strings"

// Stack represents an ordered run of cards, top first
type Stack []Card

// NewStack creates a new stack from the given cards
func NewStack(cards ...Card) Stack {
	return Stack(cards)
}

// Contains reports whether a card matching c is in the stack
func (s Stack) Contains(c Card) bool {
	for _, card := range s {
		if card.Matches(c) {
			return true
		}
	}
	return false
}

// Shorts returns the short form of every card in the stack
func (s Stack) Shorts() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Short()
	}
	return out
}

func (s Stack) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
