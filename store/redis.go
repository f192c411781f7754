package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rjsanjaymandal/uno/game"
)

const (
	roomKeyPrefix = "uno:room:"
	publicSetKey  = "uno:rooms:public"

	// rooms that see no write for this long are abandoned
	roomTTL = 24 * time.Hour
)

// RedisGameStore keeps one JSON record per room in Redis and fans out
// accepted writes over pub/sub. The conditional write runs inside a
// WATCH transaction: a concurrent writer invalidates the transaction
// and the save surfaces as ErrVersionConflict instead of silently
// overwriting.
type RedisGameStore struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewRedisGameStore constructs a RedisGameStore from a redis URL
// (redis://[user:pass@]host:port/db).
func NewRedisGameStore(url string) (*RedisGameStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisGameStore{
		client: redis.NewClient(opts),
		log:    logrus.WithField("component", "store"),
	}, nil
}

func roomKey(roomID string) string {
	return roomKeyPrefix + roomID
}

func roomChannel(roomID string) string {
	return roomKeyPrefix + roomID + ":events"
}

func (s *RedisGameStore) Create(ctx context.Context, g *game.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, roomKey(g.RoomID), data, roomTTL).Result()
	if err != nil {
		return fmt.Errorf("creating room record: %w", err)
	}
	if !ok {
		return ErrRoomExists
	}

	if g.Settings.Public {
		if err := s.client.SAdd(ctx, publicSetKey, g.RoomID).Err(); err != nil {
			s.log.WithError(err).WithField("room", g.RoomID).Warn("failed to index public room")
		}
	}
	return nil
}

func (s *RedisGameStore) Load(ctx context.Context, roomID string) (*game.Game, error) {
	data, err := s.client.Get(ctx, roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading room record: %w", err)
	}
	return decode(data)
}

func (s *RedisGameStore) Save(ctx context.Context, g *game.Game, expectedVersion int64) error {
	if g.Version <= expectedVersion {
		return ErrVersionConflict
	}
	key := roomKey(g.RoomID)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		if stored.Version != expectedVersion {
			return ErrVersionConflict
		}

		payload, err := json.Marshal(g)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, roomTTL)
			pipe.Publish(ctx, roomChannel(g.RoomID), payload)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// another writer slipped in between read and write
		return ErrVersionConflict
	}
	return err
}

func (s *RedisGameStore) Watch(ctx context.Context, roomID string) (<-chan *game.Game, func(), error) {
	if _, err := s.Load(ctx, roomID); err != nil {
		return nil, nil, err
	}

	sub := s.client.Subscribe(ctx, roomChannel(roomID))
	ch := make(chan *game.Game, watchBuffer)

	go func() {
		defer close(ch)
		var lastVersion int64
		for msg := range sub.Channel() {
			update, err := decode([]byte(msg.Payload))
			if err != nil {
				s.log.WithError(err).WithField("room", roomID).Warn("dropping malformed update")
				continue
			}
			// monotonic apply: redelivered or reordered messages are
			// ignored, only strictly newer state goes through
			if update.Version <= lastVersion {
				continue
			}
			lastVersion = update.Version
			select {
			case ch <- update:
			default:
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return ch, cancel, nil
}

func (s *RedisGameStore) ListPublic(ctx context.Context) ([]string, error) {
	roomIDs, err := s.client.SMembers(ctx, publicSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing public rooms: %w", err)
	}

	joinable := []string{}
	for _, roomID := range roomIDs {
		g, err := s.Load(ctx, roomID)
		if errors.Is(err, ErrRoomNotFound) {
			// expired room, drop it from the index
			s.client.SRem(ctx, publicSetKey, roomID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if g.Status == game.StatusWaiting {
			joinable = append(joinable, roomID)
		}
	}
	return joinable, nil
}

func (s *RedisGameStore) Delete(ctx context.Context, roomID string) error {
	deleted, err := s.client.Del(ctx, roomKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("deleting room record: %w", err)
	}
	s.client.SRem(ctx, publicSetKey, roomID)
	if deleted == 0 {
		return ErrRoomNotFound
	}
	return nil
}
