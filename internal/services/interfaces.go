package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/readnext/readnext/pkg/models"
)

// BorrowHistory is the borrowing-history collaborator. Records come back
// time-ordered descending.
type BorrowHistory interface {
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BorrowRecord, error)
	BorrowersOfBook(ctx context.Context, bookID uuid.UUID, limit int) ([]models.BorrowRecord, error)
}

// BookCatalog is the catalog collaborator.
type BookCatalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Book, error)
	Search(ctx context.Context, filter string, limit, offset int) ([]models.Book, error)
	Sample(ctx context.Context, n int) ([]models.Book, error)
}

// EmbeddingProvider is the vector-store collaborator.
type EmbeddingProvider interface {
	Upsert(ctx context.Context, emb models.Embedding) error
	GetEmbedding(ctx context.Context, bookID uuid.UUID) ([]float64, error)
	QuerySimilar(ctx context.Context, vec []float64, topK int) ([]models.SimilarBook, error)
}

// Recommender is what the HTTP layer consumes.
type Recommender interface {
	Recommend(ctx context.Context, userID uuid.UUID, params Params) (*models.RecommendationResponse, error)
}
