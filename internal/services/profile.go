package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/ml"
	"github.com/readnext/readnext/pkg/models"
)

// decayFloor keeps even half-year-old borrows contributing a little to the
// time-decayed profile: weight = max(0.1, 1 - daysAgo/180).
const (
	decayFloor   = 0.1
	decayHorizon = 180.0
)

// SemanticProfileBuilder aggregates the embeddings of a user's most recent
// borrows into one ephemeral taste vector. Two aggregation modes coexist:
// a simple mean for the plain semantic-recall path and a time-decayed
// weighted mean for the AI-enhanced path.
type SemanticProfileBuilder struct {
	history            BorrowHistory
	catalog            BookCatalog
	embeddings         EmbeddingProvider
	trendingSampleSize int
	logger             *logrus.Logger
}

func NewSemanticProfileBuilder(
	history BorrowHistory,
	catalog BookCatalog,
	embeddings EmbeddingProvider,
	trendingSampleSize int,
	logger *logrus.Logger,
) *SemanticProfileBuilder {
	return &SemanticProfileBuilder{
		history:            history,
		catalog:            catalog,
		embeddings:         embeddings,
		trendingSampleSize: trendingSampleSize,
		logger:             logger,
	}
}

// Build returns the profile for a user from their k most recent borrows.
// Cold start falls back to a catalog sample acting as a trending proxy;
// when that also yields nothing the build fails with NotFound.
func (b *SemanticProfileBuilder) Build(ctx context.Context, userID uuid.UUID, k int, timeDecayed bool) (*models.UserProfile, error) {
	records, err := b.history.RecentByUser(ctx, userID, k)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var sum []float64
	weightSum := 0.0
	sources := 0

	for _, rec := range records {
		vec, err := b.embeddings.GetEmbedding(ctx, rec.BookID)
		if err != nil {
			if !models.IsNotFound(err) {
				b.logger.WithError(err).WithField("book_id", rec.BookID).
					Warn("Failed to load embedding, skipping borrow record")
			}
			continue
		}

		weight := 1.0
		if timeDecayed {
			daysAgo := now.Sub(rec.BorrowedAt).Hours() / 24
			weight = 1 - daysAgo/decayHorizon
			if weight < decayFloor {
				weight = decayFloor
			}
		}

		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if !ml.WeightedMean(sum, vec, weight) {
			b.logger.WithField("book_id", rec.BookID).
				Warn("Embedding dimension mismatch, skipping borrow record")
			continue
		}
		weightSum += weight
		sources++
	}

	if sources == 0 {
		return b.buildTrendingFallback(ctx, userID)
	}

	ml.Scale(sum, weightSum)

	profile := &models.UserProfile{
		Vector:        sum,
		TopCategories: b.topCategories(ctx, records),
		SourceCount:   sources,
	}

	b.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"sources":      sources,
		"time_decayed": timeDecayed,
	}).Debug("Semantic profile built")

	return profile, nil
}

// buildTrendingFallback averages embeddings of an arbitrary catalog sample
// when the user has no usable borrow history.
func (b *SemanticProfileBuilder) buildTrendingFallback(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	books, err := b.catalog.Search(ctx, "", b.trendingSampleSize, 0)
	if err != nil {
		return nil, err
	}

	var sum []float64
	sources := 0
	for _, book := range books {
		vec, err := b.embeddings.GetEmbedding(ctx, book.ID)
		if err != nil {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if ml.WeightedMean(sum, vec, 1.0) {
			sources++
		}
	}

	if sources == 0 {
		return nil, models.NotFoundf("cannot build profile for user %s", userID)
	}

	ml.Scale(sum, float64(sources))

	b.logger.WithField("user_id", userID).Debug("Cold-start profile built from trending sample")

	return &models.UserProfile{Vector: sum, SourceCount: sources}, nil
}

// topCategories returns the up-to-3 most frequent categories among the
// source borrow records, most frequent first, name ascending on ties.
func (b *SemanticProfileBuilder) topCategories(ctx context.Context, records []models.BorrowRecord) []string {
	if len(records) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.BookID)
	}

	books, err := b.catalog.FindByIDs(ctx, ids)
	if err != nil {
		b.logger.WithError(err).Warn("Failed to load source books for category ranking")
		return nil
	}

	counts := make(map[string]int)
	for _, rec := range records {
		if book, ok := books[rec.BookID]; ok && book.Category != "" {
			counts[book.Category]++
		}
	}

	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})

	if len(cats) > 3 {
		cats = cats[:3]
	}
	return cats
}
