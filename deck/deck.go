package deck

import "math/rand"

// Standard deck size: per colour one zero, two each of 1-9, two skips,
// two reverses, two draw-twos (25 x 4), plus four wilds and four
// wild-draw-fours.
const StandardSize = 108

// ExtendedSize is the standard deck plus roughly half a second set.
const ExtendedSize = StandardSize + extendedExtra

const extendedExtra = 4*(9+3) + 4 // per colour: one each 1-9, one skip/reverse/draw-two; plus 2+2 wilds

// Deck represents an ordered pile of cards. The draw end is the back
// of the slice.
type Deck []Card

// New builds the standard 108-card deck and shuffles it with rng.
// Randomness is injected so games (and tests) control their own seed.
func New(rng *rand.Rand) Deck {
	d := standardSet()
	d.Shuffle(rng)
	return d
}

// NewExtended builds the standard deck plus a partial second set, for
// larger or longer games, then shuffles.
func NewExtended(rng *rand.Rand) Deck {
	d := standardSet()
	for _, color := range ChromaticColors {
		for v := 1; v <= 9; v++ {
			d = append(d, NewCard(color, Number, v))
		}
		d = append(d, NewCard(color, Skip, 0))
		d = append(d, NewCard(color, Reverse, 0))
		d = append(d, NewCard(color, DrawTwo, 0))
	}
	for i := 0; i < 2; i++ {
		d = append(d, NewCard(Wild, WildCard, 0))
		d = append(d, NewCard(Wild, WildDrawFour, 0))
	}
	d.Shuffle(rng)
	return d
}

func standardSet() Deck {
	cards := make(Deck, 0, StandardSize)
	for _, color := range ChromaticColors {
		cards = append(cards, NewCard(color, Number, 0))
		for v := 1; v <= 9; v++ {
			cards = append(cards, NewCard(color, Number, v))
			cards = append(cards, NewCard(color, Number, v))
		}
		for i := 0; i < 2; i++ {
			cards = append(cards, NewCard(color, Skip, 0))
			cards = append(cards, NewCard(color, Reverse, 0))
			cards = append(cards, NewCard(color, DrawTwo, 0))
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, NewCard(Wild, WildCard, 0))
		cards = append(cards, NewCard(Wild, WildDrawFour, 0))
	}
	return cards
}

// Shuffle performs an unbiased Fisher-Yates shuffle in place.
func (d Deck) Shuffle(rng *rand.Rand) {
	for i := len(d) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d[i], d[j] = d[j], d[i]
	}
}

// Deal deals n cards from the draw end of the deck, until it is empty.
func (d *Deck) Deal(n int) []Card {
	numCardsInDeck := len(*d)
	if n < 0 || n > numCardsInDeck {
		return []Card{}
	}
	startingIndex := numCardsInDeck - n
	subSlice := (*d)[startingIndex:numCardsInDeck]
	*d = (*d)[:startingIndex]
	return subSlice
}

// PlaceBottom returns the card to the front (bottom) of the deck.
func (d *Deck) PlaceBottom(c Card) {
	*d = append(Deck{c}, (*d)...)
}
