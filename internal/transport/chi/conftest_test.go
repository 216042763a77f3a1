package chi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
	"github.com/recallhq/recall/internal/guard"
	contentuc "github.com/recallhq/recall/internal/usecase/content"
	healthuc "github.com/recallhq/recall/internal/usecase/health"
	roomuc "github.com/recallhq/recall/internal/usecase/room"
)

// --- Mocks ---

type mockRepo struct {
	insertFn        func(ctx context.Context, rec *domain.ContentRecord) error
	insertMultiFn   func(ctx context.Context, recs []*domain.ContentRecord) error
	getFn           func(ctx context.Context, id string) (domain.ContentRecord, error)
	updateFn        func(ctx context.Context, id, text string, embedding []float32, updatedAt time.Time) error
	deleteFn        func(ctx context.Context, id string) error
	searchSimilarFn func(ctx context.Context, scopeID string, vector []float32, limit int, minSimilarity float64) (
		[]domain.SearchMatch, error,
	)
	listByOwnerFn  func(ctx context.Context, scopeID, ownerID string, offset, limit int) ([]domain.ContentRecord, error)
	countByScopeFn func(ctx context.Context, scopeID string) (int, error)
	pingFn         func(ctx context.Context) error
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

func (m *mockRepo) Update(ctx context.Context, id, text string, embedding []float32, updatedAt time.Time) error {
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
	ctx context.Context, scopeID string, vector []float32, limit int, minSimilarity float64,
) ([]domain.SearchMatch, error) {
	if m.searchSimilarFn != nil {
		return m.searchSimilarFn(ctx, scopeID, vector, limit, minSimilarity)
	}
	return []domain.SearchMatch{}, nil
}

func (m *mockRepo) ListByOwner(
	ctx context.Context, scopeID, ownerID string, offset, limit int,
) ([]domain.ContentRecord, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, scopeID, ownerID, offset, limit)
	}
	return []domain.ContentRecord{}, nil
}

func (m *mockRepo) CountByScope(ctx context.Context, scopeID string) (int, error) {
	if m.countByScopeFn != nil {
		return m.countByScopeFn(ctx, scopeID)
	}
	return 0, nil
}

func (m *mockRepo) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	batchFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 3}, nil
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.batchFn != nil {
		return m.batchFn(ctx, texts)
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type mockRoomRepo struct {
	getFn    func(ctx context.Context, scopeID string) (domain.WatchRoom, error)
	putFn    func(ctx context.Context, room *domain.WatchRoom) error
	deleteFn func(ctx context.Context, scopeID string) error
}

func (m *mockRoomRepo) Get(ctx context.Context, scopeID string) (domain.WatchRoom, error) {
	if m.getFn != nil {
		return m.getFn(ctx, scopeID)
	}
	return domain.WatchRoom{}, domain.ErrRoomNotFound
}

func (m *mockRoomRepo) Put(ctx context.Context, room *domain.WatchRoom) error {
	if m.putFn != nil {
		return m.putFn(ctx, room)
	}
	return nil
}

func (m *mockRoomRepo) Delete(ctx context.Context, scopeID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, scopeID)
	}
	return nil
}

type mockRoomProvider struct {
	createFn func(ctx context.Context, preloadURL string) (string, error)
	aliveFn  func(ctx context.Context, roomURL string) bool
}

func (m *mockRoomProvider) CreateRoom(ctx context.Context, preloadURL string) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, preloadURL)
	}
	return "https://w2g.tv/rooms/abc123", nil
}

func (m *mockRoomProvider) RoomAlive(ctx context.Context, roomURL string) bool {
	if m.aliveFn != nil {
		return m.aliveFn(ctx, roomURL)
	}
	return true
}

// --- Test fixture ---

type fixture struct {
	repo     *mockRepo
	embedder *mockEmbedder
	roomRepo *mockRoomRepo
	provider *mockRoomProvider
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := &mockRepo{}
	embedder := &mockEmbedder{}
	roomRepo := &mockRoomRepo{}
	provider := &mockRoomProvider{}

	log := zap.NewNop()
	policy := guard.NewPolicy(log)
	contentSvc := contentuc.New(repo, embedder, embedder, policy, log)
	roomSvc := roomuc.New(roomRepo, provider, log)
	healthSvc := healthuc.New(repo, nil)

	srv := NewServer(contentSvc, roomSvc, healthSvc, log)
	r := chirouter.NewRouter()
	srv.Mount(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &fixture{repo: repo, embedder: embedder, roomRepo: roomRepo, provider: provider, server: ts}
}
