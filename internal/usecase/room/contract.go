package room

import (
	"context"

	"github.com/recallhq/recall/internal/domain"
)

// Repository persists watch rooms per scope.
type Repository interface {
	Get(ctx context.Context, scopeID string) (domain.WatchRoom, error)
	Put(ctx context.Context, room *domain.WatchRoom) error
	Delete(ctx context.Context, scopeID string) error
}

// RoomProvider creates rooms and probes their liveness.
type RoomProvider interface {
	CreateRoom(ctx context.Context, preloadURL string) (string, error)
	RoomAlive(ctx context.Context, roomURL string) bool
}
