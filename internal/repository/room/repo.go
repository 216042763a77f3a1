package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/recallhq/recall/internal/db"
	"github.com/recallhq/recall/internal/domain"
)

var roomKeyPrefix = domain.KeyPrefix + "room:"

// DefaultTTL bounds how long a room record stays resolvable. Expired rooms
// simply disappear; callers create a fresh one.
const DefaultTTL = 24 * time.Hour

// store is the consumer interface for room records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo persists watch rooms as JSON values with a TTL.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a room repository. ttl <= 0 falls back to DefaultTTL.
func New(s store, ttl time.Duration) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{store: s, ttl: ttl}
}

// Get returns the room bound to a scope.
func (r *Repo) Get(ctx context.Context, scopeID string) (domain.WatchRoom, error) {
	data, err := r.store.Get(ctx, roomKey(scopeID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.WatchRoom{}, domain.ErrRoomNotFound
		}
		return domain.WatchRoom{}, fmt.Errorf("get room %s: %w", scopeID, err)
	}

	var room domain.WatchRoom
	if err := json.Unmarshal(data, &room); err != nil {
		return domain.WatchRoom{}, fmt.Errorf("unmarshal room %s: %w", scopeID, err)
	}
	return room, nil
}

// Put stores a room with the repository TTL.
func (r *Repo) Put(ctx context.Context, room *domain.WatchRoom) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, roomKey(room.ScopeID), data, r.ttl); err != nil {
		return fmt.Errorf("set room %s: %w", room.ScopeID, err)
	}
	return nil
}

// Delete drops the room bound to a scope. Missing rooms are not an error.
func (r *Repo) Delete(ctx context.Context, scopeID string) error {
	if err := r.store.Del(ctx, roomKey(scopeID)); err != nil {
		return fmt.Errorf("del room %s: %w", scopeID, err)
	}
	return nil
}

func roomKey(scopeID string) string {
	return roomKeyPrefix + scopeID
}
