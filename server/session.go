package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rjsanjaymandal/uno/game"
	"github.com/rjsanjaymandal/uno/protocol"
	"github.com/rjsanjaymandal/uno/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	botIDPrefix = "bot-"

	// how often the watchdog re-derives elapsed turn time from the
	// shared TurnStartedAt
	watchdogInterval = 5 * time.Second

	// small pause before a bot acts, so humans can follow along
	botDelay = 700 * time.Millisecond

	clientSendBuffer = 16
)

// session fans a room's change notifications out to the websocket
// clients connected to this server instance, drives any bot players,
// and runs the turn-timeout watchdog. All game state stays in the
// store; the session never holds a mutable copy.
type session struct {
	roomID string
	srv    *GameServer
	log    *logrus.Entry

	bots map[string]*game.BotPolicy

	mu      sync.Mutex
	clients map[*client]bool

	ctx    context.Context
	cancel context.CancelFunc
}

type client struct {
	playerID string
	conn     *websocket.Conn
	send     chan []byte
}

// session returns the running session for roomID, creating one if
// this instance has not seen the room yet. Bot players are recognised
// by their ID prefix, so a session rebuilt after a restart still
// drives them.
func (s *GameServer) session(roomID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[roomID]; ok {
		return sess, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		roomID:  roomID,
		srv:     s,
		log:     s.log.WithField("room", roomID),
		bots:    map[string]*game.BotPolicy{},
		clients: map[*client]bool{},
		ctx:     ctx,
		cancel:  cancel,
	}

	g, err := s.store.Load(ctx, roomID)
	if err != nil {
		cancel()
		return nil, err
	}
	for i, p := range g.Players {
		if strings.HasPrefix(p.ID, botIDPrefix) {
			sess.bots[p.ID] = game.NewBotPolicy(rand.New(rand.NewSource(time.Now().UnixNano() + int64(i))))
		}
	}

	updates, cancelWatch, err := s.store.Watch(ctx, roomID)
	if err != nil {
		cancel()
		return nil, err
	}

	s.sessions[roomID] = sess
	go sess.run(updates, cancelWatch)
	go sess.watchdog()
	return sess, nil
}

func (s *GameServer) dropSession(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[roomID]; ok {
		sess.cancel()
		delete(s.sessions, roomID)
	}
}

// HandleWS upgrades a client connection and attaches it to its room's
// session.
func (s *GameServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := strings.ToUpper(r.URL.Query().Get("room"))
	playerID := r.URL.Query().Get("player")
	if roomID == "" || playerID == "" {
		writeError(w, http.StatusBadRequest, "missing room or player ID")
		return
	}

	g, err := s.store.Load(r.Context(), roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		writeError(w, http.StatusNotFound, unknownRoomMsg(roomID))
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}

	sess, err := s.session(roomID)
	if err != nil {
		s.serverError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("websocket upgrade failed")
		return
	}

	c := &client{playerID: playerID, conn: conn, send: make(chan []byte, clientSendBuffer)}
	sess.register(c)

	// the joiner sees the current state immediately, not on the next
	// transition
	c.enqueue(buildOutbound(g, playerID))

	go c.writePump()
	go sess.readPump(c)
}

func (sess *session) register(c *client) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.clients[c] = true
}

func (sess *session) unregister(c *client) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.clients[c] {
		delete(sess.clients, c)
		close(c.send)
	}
}

// run applies each change notification: fan out to clients, then give
// a bot the turn if one holds it.
func (sess *session) run(updates <-chan *game.Game, cancelWatch func()) {
	defer cancelWatch()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case g, ok := <-updates:
			if !ok {
				return
			}
			sess.broadcast(g)
			if g.Status == game.StatusFinished {
				continue
			}
			sess.maybeDriveBot(g)
		}
	}
}

func (sess *session) broadcast(g *game.Game) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for c := range sess.clients {
		c.enqueue(buildOutbound(g, c.playerID))
	}
}

// maybeDriveBot submits the bot's chosen intent when the active player
// is one of this session's bots. The store's conditional write makes a
// duplicate submission harmless: the loser of the version race is
// rejected.
func (sess *session) maybeDriveBot(g *game.Game) {
	if g.Status != game.StatusPlaying {
		return
	}
	current := g.CurrentPlayer()
	if current == nil {
		return
	}
	policy, ok := sess.bots[current.ID]
	if !ok {
		return
	}
	botID := current.ID

	time.AfterFunc(botDelay, func() {
		err := sess.srv.applyChange(sess.ctx, sess.roomID, func(g *game.Game) error {
			if g.Status != game.StatusPlaying || g.CurrentPlayer() == nil || g.CurrentPlayer().ID != botID {
				return nil
			}
			action := policy.ChooseAction(g, botID)
			switch action.Command {
			case protocol.PlayCard:
				return g.PlayCard(botID, action.CardID, action.Color)
			case protocol.DrawCard:
				return g.DrawCard(botID)
			case protocol.PassTurn:
				return g.PassTurn(botID)
			}
			return nil
		})
		if err != nil && !errors.Is(err, store.ErrVersionConflict) {
			sess.log.WithError(err).WithField("bot", botID).Warn("bot action failed")
		}
	})
}

// watchdog enforces the turn window. Elapsed time is derived from
// the shared TurnStartedAt, so any instance watching the room reaches
// the same verdict; the store's conditional write lets only one of
// them act on it.
func (sess *session) watchdog() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			err := sess.srv.applyChange(sess.ctx, sess.roomID, func(g *game.Game) error {
				if !g.TurnExpired(time.Now()) {
					return errNoTimeout
				}
				current := g.CurrentPlayer()
				if current == nil {
					return errNoTimeout
				}
				// forced continuation, not a forfeit: the engine draws
				// on the player's behalf. A player who already drew and
				// stalled is passed instead, or the room would wedge.
				err := g.DrawCard(current.ID)
				if errors.Is(err, game.ErrAlreadyDrawn) {
					return g.PassTurn(current.ID)
				}
				return err
			})
			if err == nil {
				sess.log.Info("turn timed out, forced draw")
				continue
			}
			if errors.Is(err, store.ErrRoomNotFound) {
				sess.srv.dropSession(sess.roomID)
				return
			}
			if !errors.Is(err, errNoTimeout) && !errors.Is(err, store.ErrVersionConflict) {
				sess.log.WithError(err).Warn("watchdog action failed")
			}
		}
	}
}

var errNoTimeout = errors.New("turn has not expired")

// readPump parses inbound intents from one client and applies them.
// Rules rejections go back to the submitting client only. A closed
// socket counts as leaving the room, same as an explicit Leave.
func (sess *session) readPump(c *client) {
	defer func() {
		sess.unregister(c)
		c.conn.Close()
		sess.removeOnDisconnect(c.playerID)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg protocol.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(protocol.OutboundMessage{Command: protocol.Error, Error: "malformed message"})
			continue
		}
		msg.PlayerID = c.playerID
		msg.RoomID = sess.roomID

		if err := sess.apply(msg); err != nil {
			c.enqueue(protocol.OutboundMessage{Command: protocol.Error, Error: err.Error()})
		}
	}
}

func (sess *session) removeOnDisconnect(playerID string) {
	err := sess.srv.applyChange(sess.ctx, sess.roomID, func(g *game.Game) error {
		return g.RemovePlayer(playerID)
	})
	// already gone, or the room itself is: nothing to record
	if err != nil && !errors.Is(err, game.ErrUnknownPlayer) && !errors.Is(err, store.ErrRoomNotFound) {
		sess.log.WithError(err).WithField("player", playerID).Warn("failed to remove disconnected player")
	}
}

// apply translates one inbound intent into an engine transition.
func (sess *session) apply(msg protocol.InboundMessage) error {
	return sess.srv.applyChange(sess.ctx, sess.roomID, func(g *game.Game) error {
		switch msg.Command {
		case protocol.Start:
			return g.Start(msg.PlayerID)
		case protocol.PlayCard:
			return g.PlayCard(msg.PlayerID, msg.CardID, msg.Color)
		case protocol.DrawCard:
			return g.DrawCard(msg.PlayerID)
		case protocol.PassTurn:
			return g.PassTurn(msg.PlayerID)
		case protocol.CallLow:
			return g.CallLow(msg.PlayerID)
		case protocol.Leave:
			return g.RemovePlayer(msg.PlayerID)
		default:
			return fmt.Errorf("unsupported command %q", msg.Command)
		}
	})
}

func (c *client) enqueue(msg protocol.OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// slow consumer; the next full-state update supersedes this one
	}
}

func (c *client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
