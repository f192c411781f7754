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

	"github.com/sirupsen/logrus"

	"github.com/rjsanjaymandal/uno/deck"
	"github.com/rjsanjaymandal/uno/game"
	"github.com/rjsanjaymandal/uno/protocol"
	"github.com/rjsanjaymandal/uno/store"
)

type NewRoomReq struct {
	Name     string         `json:"name"`
	Avatar   string         `json:"avatar"`
	Bots     int            `json:"bots"`
	Settings *game.Settings `json:"settings"`
}

type RoomRes struct {
	RoomID   string   `json:"room_id"`
	PlayerID string   `json:"player_id"`
	Name     string   `json:"name"`
	Host     bool     `json:"is_host"`
	Players  []string `json:"players"`
}

type JoinRoomReq struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type GetRoomRes struct {
	RoomID  string `json:"room_id"`
	Status  string `json:"status"`
	Players int    `json:"players"`
}

type ListRoomsRes struct {
	Rooms []string `json:"rooms"`
}

// GameServer serves the room lifecycle over HTTP and the in-game
// protocol over websockets. All state lives in the store; the server
// holds only per-room fan-out sessions.
type GameServer struct {
	store store.GameStore
	http.Server

	log *logrus.Entry

	mu       sync.Mutex
	rng      *rand.Rand
	sessions map[string]*session
}

// NewServer creates a new GameServer backed by the given store.
func NewServer(gs store.GameStore) *GameServer {
	s := &GameServer{
		store:    gs,
		log:      logrus.WithField("component", "server"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: map[string]*session{},
	}

	router := http.NewServeMux()
	router.Handle("/new", http.HandlerFunc(s.HandleNewRoom))
	router.Handle("/join", http.HandlerFunc(s.HandleJoinRoom))
	router.Handle("/game/", http.HandlerFunc(s.HandleFindRoom))
	router.Handle("/rooms", http.HandlerFunc(s.HandleListRooms))
	router.Handle("/ws", http.HandlerFunc(s.HandleWS))

	s.Handler = router
	return s
}

// ServeHTTP serves http
func (s *GameServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler.ServeHTTP(w, r)
}

func (s *GameServer) newRoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewRoomCode(s.rng)
}

// HandleNewRoom handles a request to create a new room
func (s *GameServer) HandleNewRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var data NewRoomReq
	err := json.NewDecoder(r.Body).Decode(&data)
	defer r.Body.Close()
	if err != nil {
		writeParseError(err, w)
		return
	}
	if data.Name == "" {
		writeError(w, http.StatusBadRequest, "missing player name")
		return
	}

	settings := game.DefaultSettings()
	if data.Settings != nil {
		settings = *data.Settings
	}

	playerID := NewID()
	var g *game.Game
	// collision on the 4-char code is possible, roll again
	for attempt := 0; ; attempt++ {
		g = game.NewGame(s.newRoomCode(), settings, nil)
		if err := g.AddPlayer(playerID, data.Name, data.Avatar); err != nil {
			s.serverError(w, err)
			return
		}
		for i := 0; i < data.Bots; i++ {
			if err := g.AddPlayer(fmt.Sprintf("%s%d", botIDPrefix, i+1), fmt.Sprintf("Bot %d", i+1), ""); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		err = s.store.Create(r.Context(), g)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrRoomExists) || attempt >= 5 {
			s.serverError(w, err)
			return
		}
	}

	if _, err := s.session(g.RoomID); err != nil {
		s.serverError(w, err)
		return
	}

	s.log.WithFields(logrus.Fields{"room": g.RoomID, "bots": data.Bots}).Info("room created")

	writeJSON(w, http.StatusCreated, RoomRes{
		RoomID:   g.RoomID,
		PlayerID: playerID,
		Name:     data.Name,
		Host:     true,
		Players:  playerNames(g),
	})
}

// HandleJoinRoom handles a request to join an existing room
func (s *GameServer) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var data JoinRoomReq
	err := json.NewDecoder(r.Body).Decode(&data)
	defer r.Body.Close()
	if err != nil {
		writeParseError(err, w)
		return
	}
	if data.RoomID == "" {
		writeError(w, http.StatusBadRequest, "missing room ID")
		return
	}
	if data.Name == "" {
		writeError(w, http.StatusBadRequest, "missing player name")
		return
	}

	roomID := strings.ToUpper(data.RoomID)
	playerID := NewID()

	var joined *game.Game
	err = s.applyChange(r.Context(), roomID, func(g *game.Game) error {
		if err := g.AddPlayer(playerID, data.Name, data.Avatar); err != nil {
			return err
		}
		joined = g
		return nil
	})
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, unknownRoomMsg(roomID))
		return
	case errors.Is(err, game.ErrRoomFull):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, game.ErrGameInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.serverError(w, err)
		return
	}

	if _, err := s.session(roomID); err != nil {
		s.serverError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RoomRes{
		RoomID:   roomID,
		PlayerID: playerID,
		Name:     data.Name,
		Players:  playerNames(joined),
	})
}

// HandleFindRoom reports whether a room exists and what phase it is in
func (s *GameServer) HandleFindRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	roomID := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/game/"))
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "missing room ID")
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

	writeJSON(w, http.StatusOK, GetRoomRes{
		RoomID:  roomID,
		Status:  g.Status.String(),
		Players: len(g.Players),
	})
}

// HandleListRooms lists public rooms still waiting for players
func (s *GameServer) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	rooms, err := s.store.ListPublic(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListRoomsRes{Rooms: rooms})
}

// applyChange runs a load-mutate-save round against the store,
// retrying once when a concurrent writer wins the version race. A
// rules-engine rejection aborts before anything is written.
func (s *GameServer) applyChange(ctx context.Context, roomID string, mutate func(*game.Game) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var g *game.Game
		g, err = s.store.Load(ctx, roomID)
		if err != nil {
			return err
		}
		observed := g.Version

		if err = mutate(g); err != nil {
			return err
		}
		// a transition that changed nothing has nothing to persist
		if g.Version == observed {
			return nil
		}

		err = s.store.Save(ctx, g, observed)
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return err
}

func (s *GameServer) serverError(w http.ResponseWriter, err error) {
	s.log.WithError(err).Error("internal error")
	w.WriteHeader(http.StatusInternalServerError)
}

func playerNames(g *game.Game) []string {
	names := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		names = append(names, p.Name)
	}
	return names
}

func unknownRoomMsg(roomID string) string {
	return fmt.Sprintf("unknown room '%s'", roomID)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

func writeParseError(err error, w http.ResponseWriter) {
	if err.Error() == "EOF" {
		writeError(w, http.StatusBadRequest, "missing request body")
		return
	}
	writeError(w, http.StatusBadRequest, "malformed request body")
}

// buildOutbound renders the shared state for one recipient. Only the
// recipient's own hand is serialized; opponents appear as hand sizes.
func buildOutbound(g *game.Game, playerID string) protocol.OutboundMessage {
	cmd := protocol.State
	if g.Status == game.StatusFinished {
		cmd = protocol.GameOver
	}
	msg := protocol.OutboundMessage{
		Command:            cmd,
		RoomID:             g.RoomID,
		Version:            g.Version,
		Status:             g.Status.String(),
		DeckCount:          len(g.Deck),
		DiscardCount:       len(g.Discard),
		CurrentPlayerIndex: g.CurrentPlayerIndex,
		Direction:          g.Direction,
		TurnStartedAt:      g.TurnStartedAt.Unix(),
		WinnerID:           g.WinnerID,
		LastAction:         g.LastAction,
		TopCard:            g.TopCard(),
	}
	for _, p := range g.Players {
		msg.Players = append(msg.Players, protocol.PlayerInfo{
			PlayerID:  p.ID,
			Name:      p.Name,
			Avatar:    p.Avatar,
			HandSize:  len(p.Hand),
			CalledLow: p.CalledLow,
		})
		if p.ID == playerID {
			msg.Hand = append([]deck.Card{}, p.Hand...)
		}
	}
	return msg
}
