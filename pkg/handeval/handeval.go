// Package handeval is the one concrete HandEvaluator wired into the
// runtime by default, adapting github.com/chehsunliu/poker. It is
// grounded on the teacher's pkg/poker/hand_evaluator.go conversion
// logic, stripped of its pokerrpc coupling and exposed behind
// poker.HandEvaluator instead of being called directly by game logic.
package handeval

import (
	"fmt"
	"sort"

	chehsunliu "github.com/chehsunliu/poker"

	"github.com/pokerauthority/core/pkg/poker"
)

// Evaluator is the chehsunliu-backed poker.HandEvaluator.
type Evaluator struct{}

// New returns the default evaluator.
func New() *Evaluator { return &Evaluator{} }

var _ poker.HandEvaluator = (*Evaluator)(nil)

func convertCard(card poker.Card) (chehsunliu.Card, error) {
	var rankChar byte
	switch poker.Value(card.GetValue()) {
	case poker.Two:
		rankChar = '2'
	case poker.Three:
		rankChar = '3'
	case poker.Four:
		rankChar = '4'
	case poker.Five:
		rankChar = '5'
	case poker.Six:
		rankChar = '6'
	case poker.Seven:
		rankChar = '7'
	case poker.Eight:
		rankChar = '8'
	case poker.Nine:
		rankChar = '9'
	case poker.Ten:
		rankChar = 'T'
	case poker.Jack:
		rankChar = 'J'
	case poker.Queen:
		rankChar = 'Q'
	case poker.King:
		rankChar = 'K'
	case poker.Ace:
		rankChar = 'A'
	default:
		return chehsunliu.Card{}, fmt.Errorf("invalid rank: %v", card.GetValue())
	}

	var suitChar byte
	switch poker.Suit(card.GetSuit()) {
	case poker.Spades:
		suitChar = 's'
	case poker.Hearts:
		suitChar = 'h'
	case poker.Diamonds:
		suitChar = 'd'
	case poker.Clubs:
		suitChar = 'c'
	default:
		return chehsunliu.Card{}, fmt.Errorf("invalid suit: %v", card.GetSuit())
	}

	return chehsunliu.NewCard(string([]byte{rankChar, suitChar})), nil
}

func rankClassToHandRank(rankClass int32) poker.HandRank {
	switch rankClass {
	case 1:
		return poker.StraightFlush
	case 2:
		return poker.FourOfAKind
	case 3:
		return poker.FullHouse
	case 4:
		return poker.Flush
	case 5:
		return poker.Straight
	case 6:
		return poker.ThreeOfAKind
	case 7:
		return poker.TwoPair
	case 8:
		return poker.Pair
	default:
		return poker.HighCard
	}
}

// Evaluate implements poker.HandEvaluator.
func (e *Evaluator) Evaluate(holeCards, communityCards []poker.Card) (poker.HandValue, error) {
	all := make([]poker.Card, 0, len(holeCards)+len(communityCards))
	all = append(all, holeCards...)
	all = append(all, communityCards...)

	hand := make([]chehsunliu.Card, 0, len(all))
	for _, c := range all {
		cc, err := convertCard(c)
		if err != nil {
			return poker.HandValue{}, fmt.Errorf("convert card: %w", err)
		}
		hand = append(hand, cc)
	}

	rank := chehsunliu.Evaluate(hand)
	rankClass := chehsunliu.RankClass(rank)

	best, err := bestFive(all, hand, int32(rank))
	if err != nil {
		return poker.HandValue{}, err
	}

	return poker.HandValue{
		Rank:            rankClassToHandRank(rankClass),
		Score:           int(rank),
		BestHand:        best,
		HandDescription: chehsunliu.RankString(rank),
	}, nil
}

// bestFive finds the 5-card subset of all (already mirrored into
// chehsunliu form as hand) that reproduces the given overall rank.
func bestFive(all []poker.Card, hand []chehsunliu.Card, wantRank int32) ([]poker.Card, error) {
	if len(all) <= 5 {
		return all, nil
	}
	idxCombos := combinations(len(all), 5)
	for _, idx := range idxCombos {
		combo := make([]chehsunliu.Card, 5)
		for i, x := range idx {
			combo[i] = hand[x]
		}
		if int32(chehsunliu.Evaluate(combo)) == wantRank {
			out := make([]poker.Card, 5)
			for i, x := range idx {
				out[i] = all[x]
			}
			return out, nil
		}
	}
	// Unreachable in practice for a well-formed 6/7-card evaluation.
	sorted := append([]poker.Card{}, all...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GetValue() > sorted[j].GetValue() })
	return sorted[:5], nil
}

func combinations(n, k int) [][]int {
	var out [][]int
	var cur []int
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == k {
			combo := make([]int, k)
			copy(combo, cur)
			out = append(out, combo)
			return
		}
		for i := start; i <= n-(k-len(cur)); i++ {
			cur = append(cur, i)
			rec(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

// Compare implements poker.HandEvaluator. chehsunliu ranks lower
// values as stronger hands, so the comparison is inverted relative to
// the raw Score.
func (e *Evaluator) Compare(a, b poker.HandValue) int {
	if a.Score > b.Score {
		return -1
	}
	if a.Score < b.Score {
		return 1
	}
	return 0
}
