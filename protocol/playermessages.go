package protocol

import (
	"github.com/rjsanjaymandal/uno/deck"
)

// PlayerInfo identifies a participant to other participants.
type PlayerInfo struct {
	PlayerID  string `json:"playerID"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	HandSize  int    `json:"handSize"`
	CalledLow bool   `json:"calledLow"`
}

// InboundMessage is a message from a player to the server. CardID and
// Color are only meaningful for PlayCard (Color only when the card is
// a wild).
type InboundMessage struct {
	PlayerID string     `json:"playerID"`
	RoomID   string     `json:"roomID"`
	Command  Cmd        `json:"command"`
	CardID   string     `json:"cardID,omitempty"`
	Color    deck.Color `json:"color,omitempty"`
}

// OutboundMessage is a message from the server to one player. Hand
// carries only the recipient's own cards; everyone else appears in
// Players with a hand size.
type OutboundMessage struct {
	Command            Cmd          `json:"command"`
	RoomID             string       `json:"roomID"`
	Version            int64        `json:"version"`
	Status             string       `json:"status"`
	Players            []PlayerInfo `json:"players"`
	Hand               []deck.Card  `json:"hand,omitempty"`
	TopCard            *deck.Card   `json:"topCard,omitempty"`
	DeckCount          int          `json:"deckCount"`
	DiscardCount       int          `json:"discardCount"`
	CurrentPlayerIndex int          `json:"currentPlayerIndex"`
	Direction          int          `json:"direction"`
	TurnStartedAt      int64        `json:"turnStartedAt"` // unix seconds, shared timeout base
	WinnerID           string       `json:"winnerID,omitempty"`
	LastAction         string       `json:"lastAction,omitempty"`
	Message            string       `json:"message,omitempty"`
	Error              string       `json:"error,omitempty"`
}
