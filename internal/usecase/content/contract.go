package content

import (
	"context"
	"time"

	"github.com/recallhq/recall/internal/domain"
)

// Repository defines the storage contract for content records.
type Repository interface {
	Insert(ctx context.Context, rec *domain.ContentRecord) error
	InsertMulti(ctx context.Context, recs []*domain.ContentRecord) error
	Get(ctx context.Context, id string) (domain.ContentRecord, error)
	Update(ctx context.Context, id, text string, embedding []float32, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	SearchSimilar(ctx context.Context, scopeID string, vector []float32, limit int, minSimilarity float64) (
		[]domain.SearchMatch, error,
	)
	ListByOwner(ctx context.Context, scopeID, ownerID string, offset, limit int) ([]domain.ContentRecord, error)
	CountByScope(ctx context.Context, scopeID string) (int, error)
	Ping(ctx context.Context) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder vectorizes several texts in bounded provider batches.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
