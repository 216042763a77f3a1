package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/db"
	"github.com/recallhq/recall/internal/domain"
)

// IndexName is the FT index over content records.
const IndexName = domain.KeyPrefix + "content:idx"

const keyPrefix = domain.KeyPrefix + "content:"

// store is the consumer interface for content records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string, tags map[string]string) (int, error)
	Ping(ctx context.Context) error
}

// Repo implements usecase/content.Repository over hash records plus an FT
// vector index.
type Repo struct {
	store store
	cfg   domain.VectorConfig
}

// New creates a content repository.
func New(s store, cfg domain.VectorConfig) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the content FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     IndexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: fieldOwnerID, Type: db.IndexFieldTag},
			{Name: fieldScopeID, Type: db.IndexFieldTag},
			{Name: fieldCreatedAt, Type: db.IndexFieldNumeric},
			{Name: fieldUpdatedAt, Type: db.IndexFieldNumeric},
			{
				Name:           fieldVector,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorAlgorithm(strings.ToUpper(r.cfg.Algorithm)),
				VectorDim:      r.cfg.Dimensions,
				VectorDistance: db.DistanceMetric(strings.ToUpper(r.cfg.DistanceMetric)),
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Insert persists a new record in a single HSET.
func (r *Repo) Insert(ctx context.Context, rec *domain.ContentRecord) error {
	if err := r.store.HSet(ctx, recordKey(rec.ID), buildHashFields(rec)); err != nil {
		return fmt.Errorf("hset %s: %w", rec.ID, err)
	}
	return nil
}

// InsertMulti persists several records in one pipelined round trip.
func (r *Repo) InsertMulti(ctx context.Context, recs []*domain.ContentRecord) error {
	if len(recs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(recs))
	for i, rec := range recs {
		items[i] = db.HashSetItem{Key: recordKey(rec.ID), Fields: buildHashFields(rec)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi: %w", err)
	}
	return nil
}

// Get returns a record by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.ContentRecord, error) {
	fields, err := r.store.HGetAll(ctx, recordKey(id))
	if err != nil {
		return domain.ContentRecord{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.ContentRecord{}, domain.ErrContentNotFound
	}
	return parseHashFields(id, fields), nil
}

// Update replaces a record's text and embedding in a single HSET so readers
// never observe text from one version and a vector from another. Identity
// and creation fields are left untouched.
func (r *Repo) Update(ctx context.Context, id, text string, embedding []float32, updatedAt time.Time) error {
	key := recordKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", id, err)
	}
	if !exists {
		return domain.ErrContentNotFound
	}

	fields := map[string]string{
		fieldContent:   text,
		fieldVector:    vectorToBytes(embedding),
		fieldUpdatedAt: strconv.FormatInt(updatedAt.UnixMilli(), 10),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", id, err)
	}
	return nil
}

// Delete removes a record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := recordKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", id, err)
	}
	if !exists {
		return domain.ErrContentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}
	return nil
}

// SearchSimilar runs a scope-filtered KNN query and returns matches at or
// above minSimilarity, ordered by similarity descending with newer records
// winning ties.
func (r *Repo) SearchSimilar(
	ctx context.Context, scopeID string, vector []float32, limit int, minSimilarity float64,
) ([]domain.SearchMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: IndexName,
		Tags:      map[string]string{fieldScopeID: scopeID},
		Vector:    vector,
		K:         limit,
		ReturnFields: []string{
			fieldContent, fieldVector, fieldOwnerID, fieldScopeID, fieldCreatedAt, fieldUpdatedAt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	matches := make([]domain.SearchMatch, 0, len(result.Entries))
	for _, entry := range result.Entries {
		rec := parseHashFields(recordID(entry.Key), entry.Fields)

		sim := entry.Score
		if !entry.HasScore {
			// Backend returned no distance; recompute from the stored vector.
			sim = domain.CosineSimilarity(vector, rec.Embedding)
		}
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, domain.SearchMatch{Record: rec, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Record.CreatedAt.After(matches[j].Record.CreatedAt)
	})

	return matches, nil
}

// ListByOwner returns an owner's records within a scope, newest first.
func (r *Repo) ListByOwner(ctx context.Context, scopeID, ownerID string, offset, limit int) ([]domain.ContentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	result, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: IndexName,
		Tags: map[string]string{
			fieldScopeID: scopeID,
			fieldOwnerID: ownerID,
		},
		Offset:   offset,
		Limit:    limit,
		SortBy:   fieldCreatedAt,
		SortDesc: true,
		ReturnFields: []string{
			fieldContent, fieldOwnerID, fieldScopeID, fieldCreatedAt, fieldUpdatedAt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list search: %w", err)
	}

	recs := make([]domain.ContentRecord, 0, len(result.Entries))
	for _, entry := range result.Entries {
		recs = append(recs, parseHashFields(recordID(entry.Key), entry.Fields))
	}
	return recs, nil
}

// CountByScope returns the number of records in a scope.
func (r *Repo) CountByScope(ctx context.Context, scopeID string) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, map[string]string{fieldScopeID: scopeID})
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

// Ping reports storage reachability.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func recordKey(id string) string {
	return keyPrefix + id
}

func recordID(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}
