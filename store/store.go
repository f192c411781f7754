package store

import (
	"context"
	"errors"

	"github.com/rjsanjaymandal/uno/game"
)

var (
	ErrRoomNotFound    = errors.New("unknown room ID")
	ErrRoomExists      = errors.New("room ID already in use")
	ErrVersionConflict = errors.New("game state has moved on, write rejected")
)

// GameStore is the shared-record contract for one game state per
// room. Hands, deck and discard pile are sub-fields of that single
// record and are always written together.
//
// Save is a conditional write: it succeeds only when the stored
// version still equals expectedVersion (the version the writer last
// observed), otherwise ErrVersionConflict. The engine bumps the
// version on every accepted transition, so writers race at most on
// version numbers, never on partial records.
type GameStore interface {
	// Create stores a brand new room record.
	Create(ctx context.Context, g *game.Game) error
	// Load returns an independent copy of the room's current state.
	Load(ctx context.Context, roomID string) (*game.Game, error)
	// Save replaces the room record, gated on expectedVersion.
	Save(ctx context.Context, g *game.Game, expectedVersion int64) error
	// Watch subscribes to accepted changes for one room. Updates
	// arrive in version order; stale or duplicate versions are never
	// delivered. The returned func cancels the subscription.
	Watch(ctx context.Context, roomID string) (<-chan *game.Game, func(), error)
	// ListPublic returns the room IDs of joinable public rooms.
	ListPublic(ctx context.Context) ([]string, error)
	// Delete removes the room record.
	Delete(ctx context.Context, roomID string) error
}
