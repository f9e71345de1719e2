package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddValues(t *testing.T) {
	values := AddValues([]int{}, [2]int{1, 11})
	assert.Equal(t, []int{1, 11}, values)

	values = AddValues(values, [2]int{1, 11})
	assert.Equal(t, []int{2, 22}, values)

	values = AddValues(values, [2]int{9, 9})
	assert.Equal(t, []int{11, 31}, values)
}

func TestBestScore(t *testing.T) {
	testCases := []struct {
		name     string
		values   []int
		expected int
	}{
		{name: "Empty", values: nil, expected: 0},
		{name: "No aces", values: []int{17, 17}, expected: 17},
		{name: "Soft ace", values: []int{7, 17}, expected: 17},
		{name: "Natural", values: []int{11, 21}, expected: 21},
		{name: "Two aces", values: []int{2, 22}, expected: 12},
		{name: "Two aces and nine", values: []int{11, 31}, expected: 21},
		{name: "Ace forced low", values: []int{15, 25}, expected: 15},
		{name: "Bust", values: []int{24, 24}, expected: 24},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, BestScore(tc.values))
		})
	}
}

func TestSettle(t *testing.T) {
	seat := func(values ...int) *Seat {
		return &Seat{Hand: []string{"x", "y", "z"}, Values: values}
	}
	natural := &Seat{Hand: []string{"AS", "KS"}, Values: []int{11, 21}}

	testCases := []struct {
		name     string
		player   *Seat
		dealer   *Seat
		expected Outcome
	}{
		{name: "Player busts", player: seat(23, 23), dealer: seat(25, 25), expected: OutcomeLose},
		{name: "Dealer busts", player: seat(12, 12), dealer: seat(22, 22), expected: OutcomeWin},
		{name: "Higher score", player: seat(20, 20), dealer: seat(18, 18), expected: OutcomeWin},
		{name: "Lower score", player: seat(17, 17), dealer: seat(19, 19), expected: OutcomeLose},
		{name: "Equal score", player: seat(18, 18), dealer: seat(8, 18), expected: OutcomePush},
		{name: "Player natural", player: natural, dealer: seat(21, 21), expected: OutcomeBlackjack},
		{name: "Both natural", player: natural, dealer: natural, expected: OutcomePush},
		{name: "Dealer natural", player: seat(21, 21), dealer: natural, expected: OutcomeLose},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Settle(tc.player, tc.dealer))
		})
	}
}
