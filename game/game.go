package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rjsanjaymandal/uno/deck"
)

// Status represents the lifecycle phase of a room's game state.
// waiting -> playing -> finished, never backwards.
type Status int

const (
	StatusWaiting Status = iota
	StatusPlaying
	StatusFinished
)

var statusNames = []string{"waiting", "playing", "finished"}

func (s Status) String() string {
	if s < StatusWaiting || s > StatusFinished {
		return ""
	}
	return statusNames[s]
}

// TurnWindow is how long the active player has to act before the
// server submits a draw on their behalf.
const TurnWindow = 120 * time.Second

// Player is a participant in one game.
type Player struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Avatar    string      `json:"avatar,omitempty"`
	Hand      []deck.Card `json:"hand"`
	CalledLow bool        `json:"calledLow"`
}

// Game is the full state of one room's game. It is the single shared
// mutable record: hands, deck and discard pile are sub-fields and are
// always written together in one versioned update.
//
// Every accepted transition bumps Version by exactly one; the store
// rejects writes made against a stale version.
type Game struct {
	RoomID             string      `json:"roomID"`
	Players            []Player    `json:"players"`
	Deck               deck.Deck   `json:"deck"`
	Discard            []deck.Card `json:"discard"`
	CurrentPlayerIndex int         `json:"currentPlayerIndex"`
	Direction          int         `json:"direction"`
	Status             Status      `json:"status"`
	Version            int64       `json:"version"`
	TurnStartedAt      time.Time   `json:"turnStartedAt"`
	HasDrawnThisTurn   bool        `json:"hasDrawnThisTurn"`
	WinnerID           string      `json:"winnerID,omitempty"`
	LastAction         string      `json:"lastAction,omitempty"`
	Settings           Settings    `json:"settings"`

	rng *rand.Rand
}

// NewGame constructs a game in the waiting phase. rng drives all
// shuffling and may be nil, in which case a time-seeded source is
// used. Construction counts as the first version.
func NewGame(roomID string, settings Settings, rng *rand.Rand) *Game {
	g := &Game{
		RoomID:    roomID,
		Players:   []Player{},
		Discard:   []deck.Card{},
		Direction: Clockwise,
		Status:    StatusWaiting,
		Version:   1,
		Settings:  settings.normalise(),
		rng:       rng,
	}
	if g.Settings.ExtendedDeck {
		g.Deck = deck.NewExtended(g.rand())
	} else {
		g.Deck = deck.New(g.rand())
	}
	return g
}

// SetRand reattaches a random source, e.g. after the game has been
// loaded from a store (the source does not survive serialisation).
func (g *Game) SetRand(rng *rand.Rand) {
	g.rng = rng
}

func (g *Game) rand() *rand.Rand {
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g.rng
}

// TopCard returns the currently active card, or nil before the game
// has started.
func (g *Game) TopCard() *deck.Card {
	if len(g.Discard) == 0 {
		return nil
	}
	return &g.Discard[len(g.Discard)-1]
}

// CurrentPlayer returns the active player, or nil when the game holds
// no players.
func (g *Game) CurrentPlayer() *Player {
	if len(g.Players) == 0 || g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return &g.Players[g.CurrentPlayerIndex]
}

// TotalCards counts every card across deck, hands and discard pile.
// It is constant for the lifetime of one game.
func (g *Game) TotalCards() int {
	total := len(g.Deck) + len(g.Discard)
	for i := range g.Players {
		total += len(g.Players[i].Hand)
	}
	return total
}

// TurnExpired reports whether the active player has exceeded the turn
// window at the given instant. Derived from the shared TurnStartedAt
// so every participant computes the same answer.
func (g *Game) TurnExpired(now time.Time) bool {
	return g.Status == StatusPlaying && now.Sub(g.TurnStartedAt) >= TurnWindow
}

func (g *Game) playerIndex(playerID string) (int, error) {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			return i, nil
		}
	}
	return -1, ErrUnknownPlayer
}

// AddPlayer appends a participant during the waiting phase.
func (g *Game) AddPlayer(id, name, avatar string) error {
	if g.Status != StatusWaiting {
		return ErrGameInProgress
	}
	if len(g.Players) >= g.Settings.MaxPlayers {
		return ErrRoomFull
	}
	g.Players = append(g.Players, Player{ID: id, Name: name, Avatar: avatar, Hand: []deck.Card{}})
	g.LastAction = fmt.Sprintf("%s joined", name)
	g.Version++
	return nil
}

// Start deals hands and flips the starting card. Only the host (the
// player at index 0) may start, and at least two players must be
// present. The starting card must be a plain number card so the first
// move has unambiguous legality; anything else drawn goes back to the
// bottom of the deck.
func (g *Game) Start(actorID string) error {
	if g.Status != StatusWaiting {
		return ErrGameInProgress
	}
	if len(g.Players) < minPlayers {
		return ErrTooFewPlayers
	}
	if len(g.Players) == 0 || g.Players[0].ID != actorID {
		return ErrNotHost
	}

	for i := range g.Players {
		g.Players[i].Hand = append(g.Players[i].Hand, g.Deck.Deal(g.Settings.StartingHandSize)...)
	}

	for {
		dealt := g.Deck.Deal(1)
		if len(dealt) == 0 {
			// unreachable with any sane hand size, but never loop forever
			return ErrNoCardsLeft
		}
		c := dealt[0]
		if c.Type == deck.Number {
			g.Discard = append(g.Discard, c)
			break
		}
		g.Deck.PlaceBottom(c)
	}

	g.Status = StatusPlaying
	g.CurrentPlayerIndex = 0
	g.Direction = Clockwise
	g.HasDrawnThisTurn = false
	g.TurnStartedAt = time.Now()
	g.LastAction = "game started"
	g.Version++
	return nil
}

// PlayCard plays the identified card from the actor's hand onto the
// discard pile, applying its effect. chosen is the colour nominated
// for a wild card and is ignored otherwise.
func (g *Game) PlayCard(actorID, cardID string, chosen deck.Color) error {
	if g.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	idx, err := g.playerIndex(actorID)
	if err != nil {
		return err
	}
	if idx != g.CurrentPlayerIndex {
		return ErrNotYourTurn
	}

	actor := &g.Players[idx]
	cardIdx := -1
	for i, c := range actor.Hand {
		if c.ID == cardID {
			cardIdx = i
			break
		}
	}
	if cardIdx == -1 {
		return ErrUnknownCard
	}

	card := actor.Hand[cardIdx]
	if !IsValidMove(card, *g.TopCard()) {
		return ErrInvalidMove
	}
	if card.IsWild() {
		if !chosen.Chromatic() {
			return ErrWildNeedsColor
		}
		card.Color = chosen
	}

	// All validation passed; from here the transition is applied in full.
	actor.Hand = append(actor.Hand[:cardIdx], actor.Hand[cardIdx+1:]...)
	if len(actor.Hand) > 1 {
		actor.CalledLow = false
	}
	g.Discard = append(g.Discard, card)
	g.LastAction = fmt.Sprintf("%s played %s", actor.Name, card)

	skipNext := false
	switch card.Type {
	case deck.Reverse:
		g.Direction *= -1
		// With two players a reversed order has the same neighbour on
		// both sides, so the reverse acts as a skip: the opponent loses
		// their turn and the actor goes again.
		if len(g.Players) == 2 {
			skipNext = true
		}
	case deck.Skip:
		skipNext = true
	case deck.DrawTwo:
		g.forceDraw(NextPlayerIndex(g.CurrentPlayerIndex, len(g.Players), g.Direction), 2)
		skipNext = true
	case deck.WildDrawFour:
		g.forceDraw(NextPlayerIndex(g.CurrentPlayerIndex, len(g.Players), g.Direction), 4)
		skipNext = true
	}

	g.CurrentPlayerIndex = NextPlayerIndex(g.CurrentPlayerIndex, len(g.Players), g.Direction)
	if skipNext {
		g.CurrentPlayerIndex = NextPlayerIndex(g.CurrentPlayerIndex, len(g.Players), g.Direction)
	}
	g.HasDrawnThisTurn = false
	g.TurnStartedAt = time.Now()
	g.Version++

	if len(actor.Hand) == 0 {
		g.Status = StatusFinished
		g.WinnerID = actor.ID
		g.LastAction = fmt.Sprintf("%s won", actor.Name)
	}
	return nil
}

// DrawCard moves one card from the deck to the actor's hand. The turn
// is not advanced: the actor keeps it to play the drawn card or pass.
// At most one draw per turn.
func (g *Game) DrawCard(actorID string) error {
	if g.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	idx, err := g.playerIndex(actorID)
	if err != nil {
		return err
	}
	if idx != g.CurrentPlayerIndex {
		return ErrNotYourTurn
	}
	if g.HasDrawnThisTurn {
		return ErrAlreadyDrawn
	}
	if len(g.Deck) == 0 && len(g.Discard) < 2 {
		return ErrNoCardsLeft
	}

	actor := &g.Players[idx]
	actor.Hand = append(actor.Hand, g.drawOne())
	actor.CalledLow = false
	g.HasDrawnThisTurn = true
	g.LastAction = fmt.Sprintf("%s drew a card", actor.Name)
	g.Version++
	return nil
}

// PassTurn ends the actor's turn without playing. A pass is only
// legal after an unfruitful draw.
func (g *Game) PassTurn(actorID string) error {
	if g.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	idx, err := g.playerIndex(actorID)
	if err != nil {
		return err
	}
	if idx != g.CurrentPlayerIndex {
		return ErrNotYourTurn
	}
	if !g.HasDrawnThisTurn {
		return ErrMustDrawFirst
	}

	g.CurrentPlayerIndex = NextPlayerIndex(g.CurrentPlayerIndex, len(g.Players), g.Direction)
	g.HasDrawnThisTurn = false
	g.TurnStartedAt = time.Now()
	g.LastAction = fmt.Sprintf("%s passed", g.Players[idx].Name)
	g.Version++
	return nil
}

// CallLow announces that the actor is down to their last card.
func (g *Game) CallLow(actorID string) error {
	if g.Status != StatusPlaying {
		return ErrGameNotInProgress
	}
	idx, err := g.playerIndex(actorID)
	if err != nil {
		return err
	}
	if len(g.Players[idx].Hand) != 1 {
		return ErrCannotCallLow
	}
	g.Players[idx].CalledLow = true
	g.LastAction = fmt.Sprintf("%s called low", g.Players[idx].Name)
	g.Version++
	return nil
}

// RemovePlayer handles a participant leaving during the waiting or
// playing phase. Mid-game, attrition down to one player finishes the
// game in that player's favour; otherwise the current-player index is
// renumbered so the conceptual turn owner is preserved. A departing
// player's cards go back under the deck so every card stays in play.
// After the game has finished, players are kept for the results view.
func (g *Game) RemovePlayer(playerID string) error {
	if g.Status == StatusFinished {
		return nil
	}
	idx, err := g.playerIndex(playerID)
	if err != nil {
		return err
	}

	leaver := g.Players[idx]
	for _, c := range leaver.Hand {
		g.Deck.PlaceBottom(c)
	}
	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	g.LastAction = fmt.Sprintf("%s left", leaver.Name)

	if g.Status == StatusWaiting {
		g.CurrentPlayerIndex = 0
		g.Version++
		return nil
	}

	if len(g.Players) == 1 {
		g.Status = StatusFinished
		g.WinnerID = g.Players[0].ID
		g.LastAction = fmt.Sprintf("%s won", g.Players[0].Name)
		g.Version++
		return nil
	}

	if idx < g.CurrentPlayerIndex {
		g.CurrentPlayerIndex--
	}
	if g.CurrentPlayerIndex >= len(g.Players) {
		g.CurrentPlayerIndex = 0
	}
	g.HasDrawnThisTurn = false
	g.TurnStartedAt = time.Now()
	g.Version++
	return nil
}

// drawOne takes the next card off the deck, reshuffling the discard
// pile (minus its top card) back into the deck first if the deck is
// exhausted. Callers must ensure a card exists somewhere.
func (g *Game) drawOne() deck.Card {
	if len(g.Deck) == 0 {
		g.reshuffleFromDiscard()
	}
	return g.Deck.Deal(1)[0]
}

func (g *Game) reshuffleFromDiscard() {
	if len(g.Discard) < 2 {
		return
	}
	top := g.Discard[len(g.Discard)-1]
	g.Deck = append(g.Deck, g.Discard[:len(g.Discard)-1]...)
	g.Discard = []deck.Card{top}
	g.Deck.Shuffle(g.rand())
}

// forceDraw deals n penalty cards to the player at victimIdx, as far
// as the deck and discard pile can supply them.
func (g *Game) forceDraw(victimIdx, n int) {
	victim := &g.Players[victimIdx]
	for i := 0; i < n; i++ {
		if len(g.Deck) == 0 && len(g.Discard) < 2 {
			return
		}
		victim.Hand = append(victim.Hand, g.drawOne())
	}
	if len(victim.Hand) > 1 {
		victim.CalledLow = false
	}
}
