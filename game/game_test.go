package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/rjsanjaymandal/uno/deck"
	utils "github.com/rjsanjaymandal/uno/internal"
	"github.com/rjsanjaymandal/uno/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startedGame builds a game with n players, started by the host, with
// a deterministic random source.
func startedGame(t *testing.T, n int, seed int64) *Game {
	t.Helper()

	settings := DefaultSettings()
	settings.MaxPlayers = n

	g := NewGame("TEST", settings, rand.New(rand.NewSource(seed)))
	for i := 0; i < n; i++ {
		utils.AssertNoError(t, g.AddPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("player-%d", i), ""))
	}
	utils.AssertNoError(t, g.Start("p0"))
	return g
}

// giveTurnCard plants a card in the current player's hand and makes
// the top of the discard pile accept it.
func giveTurnCard(g *Game, card deck.Card, top deck.Card) deck.Card {
	g.Discard = append(g.Discard, top)
	p := g.CurrentPlayer()
	p.Hand = append(p.Hand, card)
	return card
}

func assertConservation(t *testing.T, g *Game, want int) {
	t.Helper()
	utils.AssertEqual(t, g.TotalCards(), want)
}

func TestNewGame(t *testing.T) {
	t.Run("starts waiting with a shuffled standard deck", func(t *testing.T) {
		g := NewGame("ABCD", DefaultSettings(), rand.New(rand.NewSource(1)))

		utils.AssertEqual(t, g.Status, StatusWaiting)
		utils.AssertEqual(t, len(g.Deck), deck.StandardSize)
		utils.AssertEqual(t, g.Direction, Clockwise)
		utils.AssertEqual(t, g.Version, int64(1))
	})

	t.Run("extended deck when configured", func(t *testing.T) {
		settings := DefaultSettings()
		settings.ExtendedDeck = true
		g := NewGame("ABCD", settings, rand.New(rand.NewSource(1)))

		utils.AssertEqual(t, len(g.Deck), deck.ExtendedSize)
	})
}

func TestAddPlayer(t *testing.T) {
	g := NewGame("ABCD", DefaultSettings(), rand.New(rand.NewSource(1)))

	t.Run("players join while waiting", func(t *testing.T) {
		version := g.Version
		utils.AssertNoError(t, g.AddPlayer("p0", "host", ""))
		utils.AssertNoError(t, g.AddPlayer("p1", "guest", ""))
		utils.AssertEqual(t, len(g.Players), 2)
		utils.AssertEqual(t, g.Version, version+2)
	})

	t.Run("full room rejects joiners", func(t *testing.T) {
		utils.AssertNoError(t, g.AddPlayer("p2", "c", ""))
		utils.AssertNoError(t, g.AddPlayer("p3", "d", ""))
		utils.AssertErrorIs(t, g.AddPlayer("p4", "e", ""), ErrRoomFull)
	})

	t.Run("no joining once playing", func(t *testing.T) {
		utils.AssertNoError(t, g.Start("p0"))
		utils.AssertErrorIs(t, g.AddPlayer("p5", "f", ""), ErrGameInProgress)
	})
}

func TestStart(t *testing.T) {
	t.Run("needs two players", func(t *testing.T) {
		g := NewGame("AAAA", DefaultSettings(), rand.New(rand.NewSource(1)))
		utils.AssertNoError(t, g.AddPlayer("p0", "solo", ""))
		utils.AssertErrorIs(t, g.Start("p0"), ErrTooFewPlayers)
	})

	t.Run("only the host may start", func(t *testing.T) {
		g := NewGame("AAAA", DefaultSettings(), rand.New(rand.NewSource(1)))
		utils.AssertNoError(t, g.AddPlayer("p0", "host", ""))
		utils.AssertNoError(t, g.AddPlayer("p1", "guest", ""))
		utils.AssertErrorIs(t, g.Start("p1"), ErrNotHost)
	})

	t.Run("deals hands and flips a number card", func(t *testing.T) {
		// 108-card deck, 2 players, 7 cards each
		for seed := int64(0); seed < 20; seed++ {
			g := startedGame(t, 2, seed)

			utils.AssertEqual(t, g.Status, StatusPlaying)
			utils.AssertEqual(t, len(g.Players[0].Hand), 7)
			utils.AssertEqual(t, len(g.Players[1].Hand), 7)
			utils.AssertEqual(t, len(g.Discard), 1)
			utils.AssertEqual(t, len(g.Deck), 93)
			utils.AssertEqual(t, g.TopCard().Type, deck.Number)
			utils.AssertEqual(t, g.CurrentPlayerIndex, 0)
			assertConservation(t, g, deck.StandardSize)
		}
	})

	t.Run("cannot start twice", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		utils.AssertErrorIs(t, g.Start("p0"), ErrGameInProgress)
	})
}

func TestPlayCard(t *testing.T) {
	t.Run("rejects a player out of turn without state change", func(t *testing.T) {
		g := startedGame(t, 3, 1)
		version := g.Version
		card := g.Players[1].Hand[0]

		utils.AssertErrorIs(t, g.PlayCard("p1", card.ID, card.Color), ErrNotYourTurn)
		utils.AssertEqual(t, g.Version, version)
		utils.AssertEqual(t, len(g.Players[1].Hand), 7)
	})

	t.Run("rejects an illegal card without state change", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		top := *g.TopCard()
		// a colour and value guaranteed not to match the top card
		color := deck.Red
		if top.Color == deck.Red {
			color = deck.Blue
		}
		card := giveTurnCard(g, deck.NewCard(color, deck.Number, (top.Value+1)%10), top)
		version := g.Version

		utils.AssertErrorIs(t, g.PlayCard("p0", card.ID, card.Color), ErrInvalidMove)
		utils.AssertEqual(t, g.Version, version)
	})

	t.Run("rejects a card not in hand", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		utils.AssertErrorIs(t, g.PlayCard("p0", "no-such-card", deck.Red), ErrUnknownCard)
	})

	t.Run("number card advances the turn one step", func(t *testing.T) {
		g := startedGame(t, 3, 1)
		top := *g.TopCard()
		card := giveTurnCard(g, deck.NewCard(top.Color, deck.Number, top.Value), top)
		version := g.Version

		utils.AssertNoError(t, g.PlayCard("p0", card.ID, card.Color))

		utils.AssertEqual(t, g.CurrentPlayerIndex, 1)
		utils.AssertEqual(t, g.TopCard().ID, card.ID)
		utils.AssertEqual(t, g.Version, version+1)
		assertConservation(t, g, deck.StandardSize+2) // two planted cards
	})

	t.Run("skip jumps the next player", func(t *testing.T) {
		// 3 players, direction +1, skip lands on index 2
		g := startedGame(t, 3, 1)
		top := *g.TopCard()
		card := giveTurnCard(g, deck.NewCard(top.Color, deck.Skip, 0), top)

		utils.AssertNoError(t, g.PlayCard("p0", card.ID, card.Color))

		utils.AssertEqual(t, g.CurrentPlayerIndex, 2)
	})

	t.Run("draw two feeds and skips the victim", func(t *testing.T) {
		
		g := startedGame(t, 3, 1)
		top := *g.TopCard()
		card := giveTurnCard(g, deck.NewCard(top.Color, deck.DrawTwo, 0), top)

		utils.AssertNoError(t, g.PlayCard("p0", card.ID, card.Color))

		utils.AssertEqual(t, len(g.Players[1].Hand), 9)
		utils.AssertEqual(t, g.CurrentPlayerIndex, 2)
		assertConservation(t, g, deck.StandardSize+2)
	})

	t.Run("wild draw four against the direction of play", func(t *testing.T) {
		// 4 players, direction -1, victim is index 3
		g := startedGame(t, 4, 1)
		g.Direction = CounterClockwise
		top := *g.TopCard()
		card := giveTurnCard(g, deck.NewCard(deck.Wild, deck.WildDrawFour, 0), top)

		utils.AssertNoError(t, g.PlayCard("p0", card.ID, deck.Green))

		utils.AssertEqual(t, len(g.Players[3].Hand), 11)
		utils.AssertEqual(t, g.CurrentPlayerIndex, 2)
		utils.AssertEqual(t, g.TopCard().Color, deck.Green)
	})

	t.Run("wild needs a chromatic colour", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		top := *g.TopCard()
		card := giveTurnCard(g, deck.NewCard(deck.Wild, deck.WildCard, 0), top)
		version := g.Version

		utils.AssertErrorIs(t, g.PlayCard("p0", card.ID, deck.Wild), ErrWildNeedsColor)
		utils.AssertEqual(t, g.Version, version)

		utils.AssertNoError(t, g.PlayCard("p0", card.ID, deck.Yellow))
		utils.AssertEqual(t, g.TopCard().Color, deck.Yellow)
	})

	t.Run("reverse flips the direction", func(t *testing.T) {
		g := startedGame(t, 3, 1)
		top := *g.TopCard()
		card := giveTurnCard(g, deck.NewCard(top.Color, deck.Reverse, 0), top)

		utils.AssertNoError(t, g.PlayCard("p0", card.ID, card.Color))

		utils.AssertEqual(t, g.Direction, CounterClockwise)
		utils.AssertEqual(t, g.CurrentPlayerIndex, 2)
	})

	t.Run("two-player reverse is a skip", func(t *testing.T) {
		reverseGame := startedGame(t, 2, 3)
		top := *reverseGame.TopCard()
		reverse := giveTurnCard(reverseGame, deck.NewCard(top.Color, deck.Reverse, 0), top)
		utils.AssertNoError(t, reverseGame.PlayCard("p0", reverse.ID, reverse.Color))

		skipGame := startedGame(t, 2, 3)
		top = *skipGame.TopCard()
		skip := giveTurnCard(skipGame, deck.NewCard(top.Color, deck.Skip, 0), top)
		utils.AssertNoError(t, skipGame.PlayCard("p0", skip.ID, skip.Color))

		utils.AssertEqual(t, reverseGame.CurrentPlayerIndex, skipGame.CurrentPlayerIndex)
		utils.AssertEqual(t, reverseGame.CurrentPlayerIndex, 0)
	})

	t.Run("emptying a hand wins regardless of turn advancement", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		top := *g.TopCard()
		card := deck.NewCard(top.Color, deck.Number, top.Value)
		g.Players[0].Hand = []deck.Card{card}
		g.Discard = append(g.Discard, top)

		utils.AssertNoError(t, g.PlayCard("p0", card.ID, card.Color))

		utils.AssertEqual(t, g.Status, StatusFinished)
		utils.AssertEqual(t, g.WinnerID, "p0")
	})

	t.Run("no play once finished", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		g.Status = StatusFinished
		card := g.Players[0].Hand[0]
		utils.AssertErrorIs(t, g.PlayCard("p0", card.ID, card.Color), ErrGameNotInProgress)
	})
}

func TestDrawCard(t *testing.T) {
	t.Run("draw keeps the turn and sets the flag", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		version := g.Version

		utils.AssertNoError(t, g.DrawCard("p0"))

		utils.AssertEqual(t, len(g.Players[0].Hand), 8)
		utils.AssertEqual(t, g.CurrentPlayerIndex, 0)
		utils.AssertTrue(t, g.HasDrawnThisTurn)
		utils.AssertEqual(t, g.Version, version+1)
		assertConservation(t, g, deck.StandardSize)
	})

	t.Run("at most one draw per turn", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		utils.AssertNoError(t, g.DrawCard("p0"))
		utils.AssertErrorIs(t, g.DrawCard("p0"), ErrAlreadyDrawn)
	})

	t.Run("empty deck reshuffles all but the top discard", func(t *testing.T) {
		// empty deck, 6 discards -> 5 in deck, 1 discard
		g := startedGame(t, 2, 1)
		total := g.TotalCards()
		g.Deck = append(g.Deck, g.Discard...)
		g.Discard = nil
		g.Discard = append(g.Discard, g.Deck.Deal(6)...)
		top := g.Discard[len(g.Discard)-1]
		rest := g.Deck.Deal(len(g.Deck))
		g.Players[0].Hand = append(g.Players[0].Hand, rest...)

		utils.AssertEqual(t, len(g.Deck), 0)
		handBefore := len(g.Players[0].Hand)

		utils.AssertNoError(t, g.DrawCard("p0"))

		utils.AssertEqual(t, len(g.Discard), 1)
		utils.AssertEqual(t, g.Discard[0].ID, top.ID)
		utils.AssertEqual(t, len(g.Deck), 4) // 5 reshuffled, 1 drawn
		utils.AssertEqual(t, len(g.Players[0].Hand), handBefore+1)
		assertConservation(t, g, total)
	})

	t.Run("no cards anywhere is an error", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		g.Players[0].Hand = append(g.Players[0].Hand, g.Deck.Deal(len(g.Deck))...)
		version := g.Version

		utils.AssertErrorIs(t, g.DrawCard("p0"), ErrNoCardsLeft)
		utils.AssertEqual(t, g.Version, version)
	})
}

func TestPassTurn(t *testing.T) {
	t.Run("pass requires a prior draw", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		utils.AssertErrorIs(t, g.PassTurn("p0"), ErrMustDrawFirst)
	})

	t.Run("pass after a draw advances one step", func(t *testing.T) {
		g := startedGame(t, 3, 1)
		utils.AssertNoError(t, g.DrawCard("p0"))
		version := g.Version

		utils.AssertNoError(t, g.PassTurn("p0"))

		utils.AssertEqual(t, g.CurrentPlayerIndex, 1)
		utils.AssertEqual(t, g.HasDrawnThisTurn, false)
		utils.AssertEqual(t, g.Version, version+1)
	})

	t.Run("only the current player may pass", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		utils.AssertErrorIs(t, g.PassTurn("p1"), ErrNotYourTurn)
	})
}

func TestCallLow(t *testing.T) {
	g := startedGame(t, 2, 1)

	t.Run("rejected with more than one card", func(t *testing.T) {
		utils.AssertErrorIs(t, g.CallLow("p1"), ErrCannotCallLow)
	})

	t.Run("accepted on the last card", func(t *testing.T) {
		extra := g.Players[1].Hand[1:]
		g.Players[1].Hand = g.Players[1].Hand[:1]
		g.Deck = append(g.Deck, extra...)

		utils.AssertNoError(t, g.CallLow("p1"))
		utils.AssertTrue(t, g.Players[1].CalledLow)
	})

	t.Run("cleared again when the hand grows", func(t *testing.T) {
		g.CurrentPlayerIndex = 1
		utils.AssertNoError(t, g.DrawCard("p1"))
		utils.AssertEqual(t, g.Players[1].CalledLow, false)
	})
}

func TestRemovePlayer(t *testing.T) {
	t.Run("leaving while waiting just drops the player", func(t *testing.T) {
		g := NewGame("AAAA", DefaultSettings(), rand.New(rand.NewSource(1)))
		utils.AssertNoError(t, g.AddPlayer("p0", "a", ""))
		utils.AssertNoError(t, g.AddPlayer("p1", "b", ""))
		version := g.Version

		utils.AssertNoError(t, g.RemovePlayer("p0"))

		utils.AssertEqual(t, len(g.Players), 1)
		utils.AssertEqual(t, g.Players[0].ID, "p1")
		utils.AssertEqual(t, g.Version, version+1)
	})

	t.Run("current player leaving wraps the index", func(t *testing.T) {
		// 4 players, current index 3 leaves -> index 0
		g := startedGame(t, 4, 1)
		g.CurrentPlayerIndex = 3

		utils.AssertNoError(t, g.RemovePlayer("p3"))

		utils.AssertEqual(t, len(g.Players), 3)
		utils.AssertEqual(t, g.CurrentPlayerIndex, 0)
		assertConservation(t, g, deck.StandardSize)
	})

	t.Run("leaver before the current player closes the gap", func(t *testing.T) {
		g := startedGame(t, 4, 1)
		g.CurrentPlayerIndex = 2

		utils.AssertNoError(t, g.RemovePlayer("p0"))

		utils.AssertEqual(t, g.CurrentPlayerIndex, 1)
		utils.AssertEqual(t, g.CurrentPlayer().ID, "p2")
	})

	t.Run("leaver after the current player keeps the index", func(t *testing.T) {
		g := startedGame(t, 4, 1)
		g.CurrentPlayerIndex = 1

		utils.AssertNoError(t, g.RemovePlayer("p3"))

		utils.AssertEqual(t, g.CurrentPlayerIndex, 1)
		utils.AssertEqual(t, g.CurrentPlayer().ID, "p1")
	})

	t.Run("attrition down to one player finishes the game", func(t *testing.T) {
		g := startedGame(t, 2, 1)

		utils.AssertNoError(t, g.RemovePlayer("p0"))

		utils.AssertEqual(t, g.Status, StatusFinished)
		utils.AssertEqual(t, g.WinnerID, "p1")
	})

	t.Run("players stay on the results screen after the game", func(t *testing.T) {
		g := startedGame(t, 2, 1)
		utils.AssertNoError(t, g.RemovePlayer("p0"))

		utils.AssertNoError(t, g.RemovePlayer("p1"))
		utils.AssertEqual(t, len(g.Players), 1)
	})
}

// TestSimulatedGame drives full games with bot policies and checks the
// core invariants after every accepted transition.
func TestSimulatedGame(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			numPlayers := 2 + rng.Intn(3)

			settings := DefaultSettings()
			g := NewGame("SIM0", settings, rng)
			bots := map[string]*BotPolicy{}
			for i := 0; i < numPlayers; i++ {
				id := fmt.Sprintf("bot-%d", i)
				require.NoError(t, g.AddPlayer(id, id, ""))
				bots[id] = NewBotPolicy(rng)
			}
			require.NoError(t, g.Start("bot-0"))

			total := g.TotalCards()
			version := g.Version

			for turns := 0; g.Status == StatusPlaying && turns < 5000; turns++ {
				actor := g.CurrentPlayer()
				action := bots[actor.ID].ChooseAction(g, actor.ID)

				var err error
				switch action.Command {
				case protocol.PlayCard:
					err = g.PlayCard(actor.ID, action.CardID, action.Color)
				case protocol.DrawCard:
					err = g.DrawCard(actor.ID)
				case protocol.PassTurn:
					err = g.PassTurn(actor.ID)
				default:
					t.Fatalf("bot produced unexpected action %v", action.Command)
				}
				require.NoError(t, err)

				// conservation, version monotonicity, index bounds
				assert.Equal(t, total, g.TotalCards())
				assert.Equal(t, version+1, g.Version)
				version = g.Version
				assert.GreaterOrEqual(t, g.CurrentPlayerIndex, 0)
				assert.Less(t, g.CurrentPlayerIndex, len(g.Players))
			}

			if g.Status == StatusFinished {
				winner, err := g.playerIndex(g.WinnerID)
				require.NoError(t, err)
				assert.Empty(t, g.Players[winner].Hand)
			}
		})
	}
}
