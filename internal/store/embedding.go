package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/config"
	"github.com/readnext/readnext/pkg/models"
)

// embeddingBackend is the similarity-search strategy. The pgvector backend
// uses an exact index; the array backend is a bounded linear scan. One of
// the two is chosen at construction time from the capability probe.
type embeddingBackend interface {
	upsert(ctx context.Context, emb models.Embedding) error
	get(ctx context.Context, bookID uuid.UUID) ([]float64, error)
	querySimilar(ctx context.Context, vec []float64, topK int) ([]models.SimilarBook, error)
	name() string
}

// EmbeddingStore holds one current fixed-dimension vector per book with
// last-write-wins upserts. Per-book reads go through a Redis cache;
// embeddings are stable data, unlike the per-request graph and profile.
type EmbeddingStore struct {
	backend  embeddingBackend
	cache    *redis.Client
	cacheTTL time.Duration
	dims     int
	logger   *logrus.Logger
}

func NewEmbeddingStore(db Querier, cache *redis.Client, usePgvector bool, cfg *config.RecommendationConfig, logger *logrus.Logger) *EmbeddingStore {
	var b embeddingBackend
	if usePgvector {
		b = &pgvectorBackend{db: db, dims: cfg.EmbeddingDimensions, logger: logger}
	} else {
		b = &arrayBackend{db: db, rowCap: cfg.ScanRowCap, logger: logger}
	}

	logger.WithField("backend", b.name()).Info("Embedding store initialized")

	return &EmbeddingStore{
		backend:  b,
		cache:    cache,
		cacheTTL: cfg.EmbeddingCacheTTL,
		dims:     cfg.EmbeddingDimensions,
		logger:   logger,
	}
}

// Upsert replaces the current vector for a book. The write is a single-row
// SQL upsert, so concurrent readers never observe a partial vector.
func (s *EmbeddingStore) Upsert(ctx context.Context, emb models.Embedding) error {
	if len(emb.Vector) != s.dims {
		return fmt.Errorf("%w: expected %d dimensions, got %d", models.ErrValidation, s.dims, len(emb.Vector))
	}

	if err := s.backend.upsert(ctx, emb); err != nil {
		return err
	}

	s.cacheSet(ctx, emb.BookID, emb.Vector)
	return nil
}

// GetEmbedding returns the current vector for a book, or a NotFound error
// when the book has no embedding.
func (s *EmbeddingStore) GetEmbedding(ctx context.Context, bookID uuid.UUID) ([]float64, error) {
	if vec, ok := s.cacheGet(ctx, bookID); ok {
		return vec, nil
	}

	vec, err := s.backend.get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, bookID, vec)
	return vec, nil
}

// QuerySimilar returns up to topK books by descending cosine similarity.
// With the array backend results are drawn from a capped sample and are
// therefore approximate.
func (s *EmbeddingStore) QuerySimilar(ctx context.Context, vec []float64, topK int) ([]models.SimilarBook, error) {
	return s.backend.querySimilar(ctx, vec, topK)
}

func (s *EmbeddingStore) cacheKey(bookID uuid.UUID) string {
	return "embedding:" + bookID.String()
}

func (s *EmbeddingStore) cacheGet(ctx context.Context, bookID uuid.UUID) ([]float64, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, s.cacheKey(bookID)).Result()
	if err != nil {
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (s *EmbeddingStore) cacheSet(ctx context.Context, bookID uuid.UUID, vec []float64) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(bookID), data, s.cacheTTL).Err(); err != nil {
		s.logger.WithError(err).Debug("Failed to cache embedding")
	}
}
