package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
)

// Service hands out one shared watch room per scope: an existing live room
// is reused, a dead or missing one is replaced.
type Service struct {
	repo     Repository
	provider RoomProvider
	logger   *zap.Logger
}

// New creates a room service.
func New(repo Repository, provider RoomProvider, logger *zap.Logger) *Service {
	return &Service{repo: repo, provider: provider, logger: logger}
}

// GetOrCreate returns the scope's room, creating a fresh one when none
// exists or the stored one no longer resolves. The second return reports
// whether a new room was created.
func (s *Service) GetOrCreate(
	ctx context.Context, scopeID, requesterID, preloadURL string,
) (domain.WatchRoom, bool, error) {
	existing, err := s.repo.Get(ctx, scopeID)
	switch {
	case err == nil:
		if s.provider.RoomAlive(ctx, existing.RoomURL) {
			return existing, false, nil
		}
		s.logger.Info("Stored room is dead, replacing",
			zap.String("scope_id", scopeID),
			zap.String("room_url", existing.RoomURL),
		)
		if delErr := s.repo.Delete(ctx, scopeID); delErr != nil {
			s.logger.Warn("Failed to drop dead room record", zap.String("scope_id", scopeID), zap.Error(delErr))
		}
	case errors.Is(err, domain.ErrRoomNotFound):
		// fall through to creation
	default:
		return domain.WatchRoom{}, false, fmt.Errorf("load room: %w", err)
	}

	url, err := s.provider.CreateRoom(ctx, preloadURL)
	if err != nil {
		return domain.WatchRoom{}, false, fmt.Errorf("create room: %w", err)
	}

	created := domain.WatchRoom{
		ScopeID:   scopeID,
		RoomURL:   url,
		CreatedBy: requesterID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, &created); err != nil {
		// The room exists upstream even if we failed to record it; still
		// hand it to the caller.
		s.logger.Error("Failed to persist room record", zap.String("scope_id", scopeID), zap.Error(err))
	}
	return created, true, nil
}

// Delete drops the scope's room record.
func (s *Service) Delete(ctx context.Context, scopeID string) error {
	if err := s.repo.Delete(ctx, scopeID); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}
