package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rjsanjaymandal/uno/game"
)

const watchBuffer = 32

// InMemoryGameStore keeps room records as serialized snapshots,
// guarded by a mutex. It backs the local/bot-only mode and tests;
// snapshot storage gives callers the same copy semantics as a remote
// store, so nothing can mutate a record behind the versioning.
type InMemoryGameStore struct {
	mu       sync.Mutex
	records  map[string][]byte
	versions map[string]int64
	watchers map[string][]chan *game.Game
}

// NewInMemoryGameStore constructs an InMemoryGameStore
func NewInMemoryGameStore() *InMemoryGameStore {
	return &InMemoryGameStore{
		records:  map[string][]byte{},
		versions: map[string]int64{},
		watchers: map[string][]chan *game.Game{},
	}
}

func (s *InMemoryGameStore) Create(ctx context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[g.RoomID]; ok {
		return ErrRoomExists
	}
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	s.records[g.RoomID] = data
	s.versions[g.RoomID] = g.Version
	return nil
}

func (s *InMemoryGameStore) Load(ctx context.Context, roomID string) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.records[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return decode(data)
}

func (s *InMemoryGameStore) Save(ctx context.Context, g *game.Game, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.versions[g.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if current != expectedVersion || g.Version <= expectedVersion {
		return ErrVersionConflict
	}

	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	s.records[g.RoomID] = data
	s.versions[g.RoomID] = g.Version

	for _, ch := range s.watchers[g.RoomID] {
		update, err := decode(data)
		if err != nil {
			continue
		}
		select {
		case ch <- update:
		default:
			// a watcher this far behind can catch up from the next
			// full-state update
		}
	}
	return nil
}

func (s *InMemoryGameStore) Watch(ctx context.Context, roomID string) (<-chan *game.Game, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[roomID]; !ok {
		return nil, nil, ErrRoomNotFound
	}

	ch := make(chan *game.Game, watchBuffer)
	s.watchers[roomID] = append(s.watchers[roomID], ch)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		watchers := s.watchers[roomID]
		for i, w := range watchers {
			if w == ch {
				s.watchers[roomID] = append(watchers[:i], watchers[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel, nil
}

func (s *InMemoryGameStore) ListPublic(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for roomID, data := range s.records {
		g, err := decode(data)
		if err != nil {
			continue
		}
		if g.Settings.Public && g.Status == game.StatusWaiting {
			ids = append(ids, roomID)
		}
	}
	return ids, nil
}

func (s *InMemoryGameStore) Delete(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[roomID]; !ok {
		return ErrRoomNotFound
	}
	delete(s.records, roomID)
	delete(s.versions, roomID)
	for _, ch := range s.watchers[roomID] {
		close(ch)
	}
	delete(s.watchers, roomID)
	return nil
}

func decode(data []byte) (*game.Game, error) {
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
