package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/config"
	"github.com/readnext/readnext/pkg/models"
)

// fakeHistory serves borrow records from memory, newest first as the store
// contract requires.
type fakeHistory struct {
	byUser map[uuid.UUID][]models.BorrowRecord
	byBook map[uuid.UUID][]models.BorrowRecord
}

func (f *fakeHistory) RecentByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.BorrowRecord, error) {
	records := f.byUser[userID]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (f *fakeHistory) BorrowersOfBook(_ context.Context, bookID uuid.UUID, limit int) ([]models.BorrowRecord, error) {
	records := f.byBook[bookID]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

type fakeCatalog struct {
	books         map[uuid.UUID]models.Book
	searchResults []models.Book
	sampleResults []models.Book
}

func (f *fakeCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.Book, error) {
	if book, ok := f.books[id]; ok {
		return &book, nil
	}
	return nil, models.NotFoundf("book %s not found", id)
}

func (f *fakeCatalog) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Book, error) {
	out := make(map[uuid.UUID]models.Book)
	for _, id := range ids {
		if book, ok := f.books[id]; ok {
			out[id] = book
		}
	}
	return out, nil
}

func (f *fakeCatalog) Search(_ context.Context, _ string, limit, _ int) ([]models.Book, error) {
	results := f.searchResults
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeCatalog) Sample(_ context.Context, n int) ([]models.Book, error) {
	results := f.sampleResults
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

type fakeEmbeddings struct {
	vectors       map[uuid.UUID][]float64
	similar       []models.SimilarBook
	lastQueryTopK int
}

func (f *fakeEmbeddings) Upsert(_ context.Context, emb models.Embedding) error {
	f.vectors[emb.BookID] = emb.Vector
	return nil
}

func (f *fakeEmbeddings) GetEmbedding(_ context.Context, bookID uuid.UUID) ([]float64, error) {
	if vec, ok := f.vectors[bookID]; ok {
		return vec, nil
	}
	return nil, models.NotFoundf("embedding for book %s not found", bookID)
}

func (f *fakeEmbeddings) QuerySimilar(_ context.Context, _ []float64, topK int) ([]models.SimilarBook, error) {
	f.lastQueryTopK = topK
	results := f.similar
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testRecConfig() *config.RecommendationConfig {
	return &config.RecommendationConfig{
		Lambda:              0.05,
		BehaviorWeight:      1.0,
		RestartProbability:  0.15,
		MaxIterations:       30,
		GraphWeight:         0.6,
		SemanticWeight:      0.4,
		TopN:                10,
		AITopN:              20,
		ProfileK:            10,
		AIProfileK:          5,
		MaxBooksPerUser:     50,
		MaxBorrowersPerBook: 30,
		CandidateMultiplier: 5,
		TrendingSampleSize:  20,
	}
}
