package board

import "github.com/lazharichir/elevens/cards"

// Elevens removes pairs of cards worth 11 together, or a jack, a queen and a
// king. Face cards are worth nothing so they can only leave as a JQK group.
type Elevens struct{}

func (Elevens) Name() string { return "elevens" }

func (Elevens) Size() int { return 9 }

func (Elevens) Layout() Layout {
	return Layout{
		Ranks:       append([]cards.Rank(nil), standardRanks...),
		Suits:       append([]cards.Suit(nil), standardSuits...),
		PointValues: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 0, 0, 0},
	}
}

func (Elevens) IsLegal(v View, selection []int) bool {
	switch len(selection) {
	case 2:
		return len(findPairSum(v, selection, 11)) > 0
	case 3:
		return len(findJQK(v, selection)) > 0
	default:
		return false
	}
}

// FindLegalGroup prefers an 11-pair over a JQK group.
func (Elevens) FindLegalGroup(v View, candidates []int) []int {
	if pair := findPairSum(v, candidates, 11); len(pair) > 0 {
		return pair
	}
	return findJQK(v, candidates)
}

// findJQK keeps the first jack, queen and king seen in indexes and returns
// them as [jack, queen, king], or nil unless all three turned up. Later
// duplicates of a rank are ignored.
func findJQK(v View, indexes []int) []int {
	j, q, k := -1, -1, -1
	for _, place := range indexes {
		c, ok := v.CardAt(place)
		if !ok {
			continue
		}
		switch {
		case c.Rank() == cards.Jack && j == -1:
			j = place
		case c.Rank() == cards.Queen && q == -1:
			q = place
		case c.Rank() == cards.King && k == -1:
			k = place
		}
	}

	if j > -1 && q > -1 && k > -1 {
		return []int{j, q, k}
	}
	return nil
}
