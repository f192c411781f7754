package game

import (
	"math/rand"

	"github.com/rjsanjaymandal/uno/deck"
	"github.com/rjsanjaymandal/uno/protocol"
)

// Action is a single intent an actor wants to submit.
type Action struct {
	Command protocol.Cmd
	CardID  string
	Color   deck.Color
}

// Actor produces the next intent for the given player. The rules
// engine never distinguishes bots from humans; policies differ only
// in how they choose.
type Actor interface {
	ChooseAction(g *Game, playerID string) Action
}

// BotPolicy plays the first legal card in hand order, choosing a
// uniformly random chromatic colour for wilds. With no legal card it
// draws once, then ends its turn rather than attempting a follow-up
// play. Deterministic apart from the injected rng.
type BotPolicy struct {
	rng *rand.Rand
}

func NewBotPolicy(rng *rand.Rand) *BotPolicy {
	return &BotPolicy{rng: rng}
}

func (b *BotPolicy) ChooseAction(g *Game, playerID string) Action {
	idx, err := g.playerIndex(playerID)
	if err != nil || g.TopCard() == nil {
		return Action{Command: protocol.Null}
	}

	// A bot treats its own draw as turn-ending: no follow-up play.
	if g.HasDrawnThisTurn {
		return Action{Command: protocol.PassTurn}
	}

	top := *g.TopCard()
	for _, c := range g.Players[idx].Hand {
		if !IsValidMove(c, top) {
			continue
		}
		action := Action{Command: protocol.PlayCard, CardID: c.ID}
		if c.IsWild() {
			action.Color = deck.ChromaticColors[b.rng.Intn(len(deck.ChromaticColors))]
		} else {
			action.Color = c.Color
		}
		return action
	}

	return Action{Command: protocol.DrawCard}
}
