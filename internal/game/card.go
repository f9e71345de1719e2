package game

// Suit is the symbolic name of a card suit
type Suit string

// Value is the symbolic name of a card rank
type Value string

const (
	Clubs    Suit = "CLUBS"
	Spades   Suit = "SPADES"
	Hearts   Suit = "HEARTS"
	Diamonds Suit = "DIAMONDS"
)

const (
	Ace   Value = "ACE"
	Two   Value = "TWO"
	Three Value = "THREE"
	Four  Value = "FOUR"
	Five  Value = "FIVE"
	Six   Value = "SIX"
	Seven Value = "SEVEN"
	Eight Value = "EIGHT"
	Nine  Value = "NINE"
	Ten   Value = "TEN"
	Jack  Value = "JACK"
	Queen Value = "QUEEN"
	King  Value = "KING"
)

// DefaultImageBase is where card front images are served from
const DefaultImageBase = "https://apiof-cards.vercel.app/static/poker/fronts/"

// Rank describes one of the 13 ranks
type Rank struct {
	Value Value
	Code  string
	// Blackjack holds the low and high point value; only the ace differs
	Blackjack [2]int
}

// SuitInfo describes one of the 4 suits
type SuitInfo struct {
	Suit Suit
	Code string
}

// Ranks in catalog order
var Ranks = []Rank{
	{Value: Ace, Code: "A", Blackjack: [2]int{1, 11}},
	{Value: Two, Code: "2", Blackjack: [2]int{2, 2}},
	{Value: Three, Code: "3", Blackjack: [2]int{3, 3}},
	{Value: Four, Code: "4", Blackjack: [2]int{4, 4}},
	{Value: Five, Code: "5", Blackjack: [2]int{5, 5}},
	{Value: Six, Code: "6", Blackjack: [2]int{6, 6}},
	{Value: Seven, Code: "7", Blackjack: [2]int{7, 7}},
	{Value: Eight, Code: "8", Blackjack: [2]int{8, 8}},
	{Value: Nine, Code: "9", Blackjack: [2]int{9, 9}},
	{Value: Ten, Code: "10", Blackjack: [2]int{10, 10}},
	{Value: Jack, Code: "J", Blackjack: [2]int{10, 10}},
	{Value: Queen, Code: "Q", Blackjack: [2]int{10, 10}},
	{Value: King, Code: "K", Blackjack: [2]int{10, 10}},
}

// Suits in catalog order
var Suits = []SuitInfo{
	{Suit: Clubs, Code: "C"},
	{Suit: Spades, Code: "S"},
	{Suit: Hearts, Code: "H"},
	{Suit: Diamonds, Code: "D"},
}

// Card is the full record of a card as returned to callers
type Card struct {
	Image string `json:"image"`
	Value Value  `json:"value"`
	Suit  Suit   `json:"suit"`
	Code  string `json:"code"`
}

// Catalog is the fixed lookup table of the 52 unique card codes.
// It is never mutated after NewCatalog returns.
type Catalog struct {
	codes []string
	cards map[string]Card
	ranks map[Value]Rank
}

// NewCatalog builds the rank x suit catalog
func NewCatalog(imageBase string) *Catalog {
	if imageBase == "" {
		imageBase = DefaultImageBase
	}

	c := &Catalog{
		codes: make([]string, 0, len(Ranks)*len(Suits)),
		cards: make(map[string]Card, len(Ranks)*len(Suits)),
		ranks: make(map[Value]Rank, len(Ranks)),
	}

	for _, rank := range Ranks {
		c.ranks[rank.Value] = rank
		for _, suit := range Suits {
			code := rank.Code + suit.Code
			c.codes = append(c.codes, code)
			c.cards[code] = Card{
				Image: imageBase + code + ".png",
				Value: rank.Value,
				Suit:  suit.Suit,
				Code:  code,
			}
		}
	}

	return c
}

// Size returns the number of unique cards
func (c *Catalog) Size() int {
	return len(c.codes)
}

// Codes returns a copy of all codes in catalog order
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.codes))
	copy(out, c.codes)
	return out
}

// Lookup returns the card for a code
func (c *Catalog) Lookup(code string) (Card, bool) {
	card, ok := c.cards[code]
	return card, ok
}

// Resolve maps codes to full card records. Unknown codes resolve to nil.
func (c *Catalog) Resolve(codes []string) []*Card {
	out := make([]*Card, len(codes))
	for i, code := range codes {
		if card, ok := c.cards[code]; ok {
			out[i] = &card
		}
	}
	return out
}

// BlackjackValues returns the low/high point pair for a code
func (c *Catalog) BlackjackValues(code string) ([2]int, bool) {
	card, ok := c.cards[code]
	if !ok {
		return [2]int{}, false
	}
	return c.ranks[card.Value].Blackjack, true
}
