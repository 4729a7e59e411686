package board

import "github.com/lazharichir/elevens/cards"

// Thirteens removes pairs worth 13 together, or a king on its own.
type Thirteens struct{}

func (Thirteens) Name() string { return "thirteens" }

func (Thirteens) Size() int { return 10 }

func (Thirteens) Layout() Layout {
	return Layout{
		Ranks:       append([]cards.Rank(nil), standardRanks...),
		Suits:       append([]cards.Suit(nil), standardSuits...),
		PointValues: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 0},
	}
}

func (Thirteens) IsLegal(v View, selection []int) bool {
	switch len(selection) {
	case 2:
		return len(findPairSum(v, selection, 13)) > 0
	case 1:
		return len(findKing(v, selection)) > 0
	default:
		return false
	}
}

// FindLegalGroup prefers a 13-pair over a lone king.
func (Thirteens) FindLegalGroup(v View, candidates []int) []int {
	if pair := findPairSum(v, candidates, 13); len(pair) > 0 {
		return pair
	}
	return findKing(v, candidates)
}

// findKing returns the first slot holding a zero-point card. Kings are the
// only such cards in a Thirteens deck.
func findKing(v View, indexes []int) []int {
	for _, place := range indexes {
		if c, ok := v.CardAt(place); ok && c.PointValue() == 0 {
			return []int{place}
		}
	}
	return nil
}
