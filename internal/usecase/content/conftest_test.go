package content

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
	"github.com/recallhq/recall/internal/guard"
)

// mockRepo implements Repository for tests.
type mockRepo struct {
	insertFn      func(ctx context.Context, rec *domain.ContentRecord) error
	insertMultiFn func(ctx context.Context, recs []*domain.ContentRecord) error
	getFn         func(ctx context.Context, id string) (domain.ContentRecord, error)
	updateFn      func(ctx context.Context, id, text string, embedding []float32, updatedAt time.Time) error
	deleteFn      func(ctx context.Context, id string) error
	searchFn      func(ctx context.Context, scopeID string, vector []float32, limit int, minSim float64) (
		[]domain.SearchMatch, error,
	)
	listFn  func(ctx context.Context, scopeID, ownerID string, offset, limit int) ([]domain.ContentRecord, error)
	countFn func(ctx context.Context, scopeID string) (int, error)
	pingFn  func(ctx context.Context) error
}

func (m *mockRepo) Insert(ctx context.Context, rec *domain.ContentRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec)
	}
	return nil
}

func (m *mockRepo) InsertMulti(ctx context.Context, recs []*domain.ContentRecord) error {
	if m.insertMultiFn != nil {
		return m.insertMultiFn(ctx, recs)
	}
	return nil
}

func (m *mockRepo) Get(ctx context.Context, id string) (domain.ContentRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.ContentRecord{}, domain.ErrContentNotFound
}

func (m *mockRepo) Update(
	ctx context.Context, id, text string, embedding []float32, updatedAt time.Time,
) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, text, embedding, updatedAt)
	}
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRepo) SearchSimilar(
	ctx context.Context, scopeID string, vector []float32, limit int, minSim float64,
) ([]domain.SearchMatch, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, scopeID, vector, limit, minSim)
	}
	return []domain.SearchMatch{}, nil
}

func (m *mockRepo) ListByOwner(
	ctx context.Context, scopeID, ownerID string, offset, limit int,
) ([]domain.ContentRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, scopeID, ownerID, offset, limit)
	}
	return []domain.ContentRecord{}, nil
}

func (m *mockRepo) CountByScope(ctx context.Context, scopeID string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, scopeID)
	}
	return 0, nil
}

func (m *mockRepo) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// mockEmbedder implements Embedder and BatchEmbedder for tests.
type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	calls       int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockEmbedder) {
	t.Helper()
	repo := &mockRepo{}
	emb := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	svc := New(repo, emb, emb, guard.NewPolicy(zap.NewNop()), zap.NewNop())
	return svc, repo, emb
}

// validText passes every validation rule.
const validText = "Meeting notes: discuss Q3 roadmap and staffing plan"
