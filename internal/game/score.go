package game

const (
	BlackjackScore = 21
	DealerStandsOn = 17
)

// Outcome is a player's result against the dealer for one round
type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLose      Outcome = "lose"
	OutcomePush      Outcome = "push"
	OutcomeBlackjack Outcome = "blackjack"
)

// AddValues adds a card's low/high pair to a running value pair.
// values[0] counts every ace as 1, values[1] counts every ace as 11.
func AddValues(values []int, pair [2]int) []int {
	out := []int{pair[0], pair[1]}
	if len(values) == 2 {
		out[0] += values[0]
		out[1] += values[1]
	}
	return out
}

// BestScore reduces a value pair to a single score: the highest total not
// over 21, else the low total. When the hand holds an ace, counting exactly
// one of them high (low+10) is also a candidate.
func BestScore(values []int) int {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	low, high := values[0], values[1]
	best := low

	candidates := []int{high}
	if high > low {
		candidates = append(candidates, low+10)
	}

	for _, c := range candidates {
		if c <= BlackjackScore && c > best {
			best = c
		}
	}

	return best
}

// IsBust reports whether even the all-low total exceeds 21
func IsBust(values []int) bool {
	return len(values) > 0 && values[0] > BlackjackScore
}

// IsNatural reports whether a hand is a two-card 21
func IsNatural(seat *Seat) bool {
	return len(seat.Hand) == 2 && BestScore(seat.Values) == BlackjackScore
}

// Settle compares one player's seat against the dealer's
func Settle(player, dealer *Seat) Outcome {
	playerScore := BestScore(player.Values)
	dealerScore := BestScore(dealer.Values)

	switch {
	case IsBust(player.Values):
		return OutcomeLose
	case IsNatural(player):
		if IsNatural(dealer) {
			return OutcomePush
		}
		return OutcomeBlackjack
	case IsNatural(dealer):
		return OutcomeLose
	case IsBust(dealer.Values):
		return OutcomeWin
	case playerScore > dealerScore:
		return OutcomeWin
	case playerScore == dealerScore:
		return OutcomePush
	default:
		return OutcomeLose
	}
}
