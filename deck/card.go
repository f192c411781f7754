package deck

import (
	"fmt"

	uuid "github.com/satori/go.uuid"
)

// Color represents a card's colour. Wild is the colourless state of
// wild cards while they sit in the deck or a hand; once played they
// carry one of the four chromatic colours.
type Color int

var colorNames = []string{"Red", "Yellow", "Green", "Blue", "Wild"}

const (
	Red Color = iota
	Yellow
	Green
	Blue
	Wild
)

// ChromaticColors are the colours a player may nominate for a wild card.
var ChromaticColors = []Color{Red, Yellow, Green, Blue}

func (c Color) String() string {
	if c < Red || c > Wild {
		return "Unknown"
	}
	return colorNames[c]
}

// Chromatic reports whether c is one of the four playable colours.
func (c Color) Chromatic() bool {
	return c >= Red && c <= Blue
}

// CardType represents the kind of card
type CardType int

var cardTypeNames = []string{"Number", "Skip", "Reverse", "DrawTwo", "Wild", "WildDrawFour"}

const (
	Number CardType = iota
	Skip
	Reverse
	DrawTwo
	WildCard
	WildDrawFour
)

func (ct CardType) String() string {
	if ct < Number || ct > WildDrawFour {
		return "Unknown"
	}
	return cardTypeNames[ct]
}

// Card represents a single Uno card. Value is only meaningful for
// Number cards (0-9). A card moves between deck, hands and the
// discard pile by identity; the only mutation it ever sees is a
// colour assignment when a wild card is played.
type Card struct {
	ID    string   `json:"id"`
	Color Color    `json:"color"`
	Type  CardType `json:"type"`
	Value int      `json:"value"`
}

// NewCard constructs a card with a fresh identifier.
func NewCard(color Color, cardType CardType, value int) Card {
	return Card{
		ID:    uuid.NewV4().String(),
		Color: color,
		Type:  cardType,
		Value: value,
	}
}

// IsWild reports whether the card is a wild or wild-draw-four.
func (c Card) IsWild() bool {
	return c.Type == WildCard || c.Type == WildDrawFour
}

func (c Card) String() string {
	if c.Type == Number {
		return fmt.Sprintf("%s %d", c.Color, c.Value)
	}
	if c.IsWild() && !c.Color.Chromatic() {
		return c.Type.String()
	}
	return fmt.Sprintf("%s %s", c.Color, c.Type)
}
