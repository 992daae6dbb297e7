package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/ml"
	"github.com/readnext/readnext/pkg/models"
)

// arrayBackend stores vectors as plain float8 arrays and answers similarity
// queries with a bounded in-process linear scan. The scan reads at most
// rowCap rows, so on corpora larger than the cap results are approximate:
// candidates come only from within the capped sample.
type arrayBackend struct {
	db     Querier
	rowCap int
	logger *logrus.Logger
}

func (b *arrayBackend) name() string { return "array-scan" }

func (b *arrayBackend) upsert(ctx context.Context, emb models.Embedding) error {
	_, err := b.db.Exec(ctx,
		`INSERT INTO book_embeddings (book_id, embedding, model_name, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (book_id) DO UPDATE
		 SET embedding = EXCLUDED.embedding,
		     model_name = EXCLUDED.model_name,
		     updated_at = now()`,
		emb.BookID, emb.Vector, emb.ModelName)
	if err != nil {
		return fmt.Errorf("upsert embedding for book %s: %w", emb.BookID, err)
	}
	return nil
}

func (b *arrayBackend) get(ctx context.Context, bookID uuid.UUID) ([]float64, error) {
	var vec []float64
	err := b.db.QueryRow(ctx,
		"SELECT embedding FROM book_embeddings WHERE book_id = $1", bookID).
		Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("embedding for book %s", bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding for book %s: %w", bookID, err)
	}
	return vec, nil
}

func (b *arrayBackend) querySimilar(ctx context.Context, vec []float64, topK int) ([]models.SimilarBook, error) {
	rows, err := b.db.Query(ctx,
		"SELECT book_id, embedding FROM book_embeddings LIMIT $1", b.rowCap)
	if err != nil {
		return nil, fmt.Errorf("embedding scan: %w", err)
	}
	defer rows.Close()

	var out []models.SimilarBook
	for rows.Next() {
		var bookID uuid.UUID
		var candidate []float64
		if err := rows.Scan(&bookID, &candidate); err != nil {
			b.logger.WithError(err).Warn("Failed to scan embedding row, skipping")
			continue
		}

		if len(candidate) != len(vec) {
			b.logger.WithFields(logrus.Fields{
				"book_id":  bookID,
				"expected": len(vec),
				"got":      len(candidate),
			}).Warn("Embedding dimension mismatch, scoring as zero")
		}

		out = append(out, models.SimilarBook{
			BookID:     bookID,
			Similarity: ml.Cosine(vec, candidate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].BookID.String() < out[j].BookID.String()
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
