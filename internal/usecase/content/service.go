package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
	"github.com/recallhq/recall/internal/guard"
)

// Default query limits.
const (
	DefaultSearchLimit   = 10
	DefaultListLimit     = 50
	DefaultMinSimilarity = 0.1
	MaxLimit             = 100
)

// Service composes validation, embedding and guarded persistence into the
// externally visible content operations. Mutating and diagnostic calls
// return OperationResult; query calls return plain slices that degrade to
// empty on infrastructure failure.
type Service struct {
	repo          Repository
	embedder      Embedder
	batchEmbedder BatchEmbedder
	policy        *guard.Policy
	logger        *zap.Logger
}

// New creates a content service.
func New(repo Repository, emb Embedder, batchEmb BatchEmbedder, policy *guard.Policy, logger *zap.Logger) *Service {
	return &Service{
		repo:          repo,
		embedder:      emb,
		batchEmbedder: batchEmb,
		policy:        policy,
		logger:        logger,
	}
}

// BatchItem is one entry of a batch save request.
type BatchItem struct {
	Text    string `json:"text"`
	OwnerID string `json:"owner_id"`
	ScopeID string `json:"scope_id"`
}

// Save validates, embeds and persists a new record. No partial record is
// ever written: validation and embedding both complete before the insert.
func (s *Service) Save(ctx context.Context, text, ownerID, scopeID string) domain.OperationResult {
	outcome := domain.ValidateContent(text)
	if !outcome.IsValid {
		return domain.ErrorResult(domain.CodeInvalid, "Content validation failed", outcome.Errors...)
	}

	embedded, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("Embedding failed on save", zap.String("owner_id", ownerID), zap.Error(err))
		return domain.ErrorResult(domain.CodeUnavailable, "Failed to generate embedding for your content. Please try again.")
	}

	now := time.Now().UTC()
	rec := &domain.ContentRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ScopeID:   scopeID,
		Text:      strings.TrimSpace(text),
		Embedding: embedded.Embedding,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = guard.Do(ctx, s.policy, guard.Save, func(opCtx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.Insert(opCtx, rec)
	})
	if err != nil {
		return domain.ErrorResult(domain.CodeUnavailable, "Database error while saving content", err.Error())
	}

	data := map[string]any{"id": rec.ID}
	if len(outcome.Warnings) > 0 {
		data["warnings"] = outcome.Warnings
	}

	s.logger.Info("Content saved",
		zap.String("id", rec.ID),
		zap.String("owner_id", ownerID),
		zap.String("scope_id", scopeID),
	)
	return domain.SuccessResult("Content saved successfully!", data)
}

// Search embeds the query and returns scope-filtered matches ordered by
// similarity descending, recency breaking ties. Embedding or store failure
// yields an empty list, never an error.
func (s *Service) Search(
	ctx context.Context, queryText, scopeID string, limit int, minSimilarity float64,
) []domain.SearchMatch {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}

	embedded, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		s.logger.Warn("Embedding failed on search", zap.String("scope_id", scopeID), zap.Error(err))
		return []domain.SearchMatch{}
	}

	matches, _ := guard.Do(ctx, s.policy, guard.Search,
		func(opCtx context.Context) ([]domain.SearchMatch, error) {
			return s.repo.SearchSimilar(opCtx, scopeID, embedded.Embedding, limit, minSimilarity)
		},
		guard.WithFallbackFunc(func() []domain.SearchMatch { return []domain.SearchMatch{} }),
	)
	if matches == nil {
		matches = []domain.SearchMatch{}
	}
	return matches
}

// Delete removes a record after confirming the requester owns it. The
// lookup, ownership check and delete run inside one guarded call so no
// caller observes a deletion whose ownership was never checked.
func (s *Service) Delete(ctx context.Context, contentID, requesterID string) domain.OperationResult {
	_, err := guard.Do(ctx, s.policy, guard.Delete, func(opCtx context.Context) (struct{}, error) {
		rec, err := s.repo.Get(opCtx, contentID)
		if err != nil {
			return struct{}{}, err
		}
		if rec.OwnerID != requesterID {
			return struct{}{}, fmt.Errorf("delete %s by %s: %w", contentID, requesterID, domain.ErrNotOwner)
		}
		return struct{}{}, s.repo.Delete(opCtx, contentID)
	})

	switch {
	case err == nil:
		s.logger.Info("Content deleted", zap.String("id", contentID), zap.String("requester_id", requesterID))
		return domain.SuccessResult("Content deleted successfully!", nil)
	case errors.Is(err, domain.ErrContentNotFound):
		return domain.ErrorResult(domain.CodeNotFound, "Content not found")
	case errors.Is(err, domain.ErrNotOwner):
		return domain.ErrorResult(domain.CodeForbidden, "You can only delete your own content")
	default:
		return domain.ErrorResult(domain.CodeUnavailable, "Database error while deleting content", err.Error())
	}
}

// Edit validates the replacement text, confirms ownership, re-embeds and
// atomically swaps text+embedding, bumping updated_at. ID and created_at
// are untouched.
func (s *Service) Edit(ctx context.Context, contentID, newText, requesterID string) domain.OperationResult {
	outcome := domain.ValidateContent(newText)
	if !outcome.IsValid {
		return domain.ErrorResult(domain.CodeInvalid, "Content validation failed", outcome.Errors...)
	}

	embedded, err := s.embedder.Embed(ctx, newText)
	if err != nil {
		s.logger.Warn("Embedding failed on edit", zap.String("id", contentID), zap.Error(err))
		return domain.ErrorResult(domain.CodeUnavailable, "Failed to generate embedding for new content. Please try again.")
	}

	_, err = guard.Do(ctx, s.policy, guard.Edit, func(opCtx context.Context) (struct{}, error) {
		rec, err := s.repo.Get(opCtx, contentID)
		if err != nil {
			return struct{}{}, err
		}
		if rec.OwnerID != requesterID {
			return struct{}{}, fmt.Errorf("edit %s by %s: %w", contentID, requesterID, domain.ErrNotOwner)
		}
		return struct{}{}, s.repo.Update(
			opCtx, contentID, strings.TrimSpace(newText), embedded.Embedding, time.Now().UTC(),
		)
	})

	switch {
	case err == nil:
		s.logger.Info("Content updated", zap.String("id", contentID), zap.String("requester_id", requesterID))
		return domain.SuccessResult("Content updated successfully!", nil)
	case errors.Is(err, domain.ErrContentNotFound):
		return domain.ErrorResult(domain.CodeNotFound, "Content not found")
	case errors.Is(err, domain.ErrNotOwner):
		return domain.ErrorResult(domain.CodeForbidden, "You can only edit your own content")
	default:
		return domain.ErrorResult(domain.CodeUnavailable, "Database error while updating content", err.Error())
	}
}

// ListByOwner returns an owner's records within a scope, newest first.
// Failure yields an empty list.
func (s *Service) ListByOwner(ctx context.Context, ownerID, scopeID string, limit int) []domain.ContentRecord {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	recs, _ := guard.Do(ctx, s.policy, guard.List,
		func(opCtx context.Context) ([]domain.ContentRecord, error) {
			return s.repo.ListByOwner(opCtx, scopeID, ownerID, 0, limit)
		},
		guard.WithFallbackFunc(func() []domain.ContentRecord { return []domain.ContentRecord{} }),
	)
	if recs == nil {
		recs = []domain.ContentRecord{}
	}
	return recs
}

// BatchSave validates every item first, embeds the batch in bounded chunks
// and persists the successful ones in a single pipelined write. Items whose
// chunk failed embedding are reported, not silently dropped.
func (s *Service) BatchSave(ctx context.Context, items []BatchItem) domain.OperationResult {
	if len(items) == 0 {
		return domain.ErrorResult(domain.CodeInvalid, "No content provided for batch save")
	}

	var validationErrors []string
	for i, item := range items {
		outcome := domain.ValidateContent(item.Text)
		if !outcome.IsValid {
			validationErrors = append(validationErrors,
				fmt.Sprintf("Item %d: %s", i+1, strings.Join(outcome.Errors, ", ")))
		}
	}
	if len(validationErrors) > 0 {
		return domain.ErrorResult(domain.CodeInvalid, "Batch validation failed", validationErrors...)
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}

	batch, err := s.batchEmbedder.BatchEmbed(ctx, texts)
	if err != nil {
		s.logger.Warn("Batch embedding failed", zap.Int("items", len(items)), zap.Error(err))
		return domain.ErrorResult(domain.CodeUnavailable, "Failed to generate embeddings for batch content. Please try again.")
	}

	now := time.Now().UTC()
	recs := make([]*domain.ContentRecord, 0, len(items))
	failed := 0
	for i, item := range items {
		if batch.Embeddings[i] == nil {
			failed++
			continue
		}
		recs = append(recs, &domain.ContentRecord{
			ID:        uuid.NewString(),
			OwnerID:   item.OwnerID,
			ScopeID:   item.ScopeID,
			Text:      strings.TrimSpace(item.Text),
			Embedding: batch.Embeddings[i],
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if len(recs) == 0 {
		return domain.ErrorResult(domain.CodeUnavailable, "Failed to save batch content")
	}

	_, err = guard.Do(ctx, s.policy, guard.BatchSave, func(opCtx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.InsertMulti(opCtx, recs)
	})
	if err != nil {
		return domain.ErrorResult(domain.CodeUnavailable, "Database error during batch save", err.Error())
	}

	s.logger.Info("Batch saved", zap.Int("saved", len(recs)), zap.Int("failed", failed))
	data := map[string]any{"saved_count": len(recs)}
	if failed > 0 {
		data["failed_count"] = failed
	}
	return domain.SuccessResult(fmt.Sprintf("Successfully saved %d items!", len(recs)), data)
}

// ScopeStats reports how many records a scope holds.
func (s *Service) ScopeStats(ctx context.Context, scopeID string) domain.OperationResult {
	count, err := guard.Do(ctx, s.policy, guard.List, func(opCtx context.Context) (int, error) {
		return s.repo.CountByScope(opCtx, scopeID)
	})
	if err != nil {
		return domain.ErrorResult(domain.CodeUnavailable, "Database error while counting content", err.Error())
	}
	return domain.SuccessResult("Scope statistics", map[string]any{"count": count})
}

// TestConnection is a diagnostic ping through the store with the test budget.
func (s *Service) TestConnection(ctx context.Context) domain.OperationResult {
	_, err := guard.Do(ctx, s.policy, guard.Test, func(opCtx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.Ping(opCtx)
	})
	if err != nil {
		return domain.ErrorResult(domain.CodeUnavailable, "Database connection failed. Please check your configuration.", err.Error())
	}
	return domain.SuccessResult("Database connection successful!", map[string]any{"status": "connected"})
}
