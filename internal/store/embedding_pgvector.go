package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/pkg/models"
)

// pgvectorBackend answers similarity queries through the exact pgvector
// index, ordering with the cosine distance operator.
type pgvectorBackend struct {
	db     Querier
	dims   int
	logger *logrus.Logger
}

func (b *pgvectorBackend) name() string { return "pgvector" }

func (b *pgvectorBackend) upsert(ctx context.Context, emb models.Embedding) error {
	_, err := b.db.Exec(ctx,
		`INSERT INTO book_embeddings (book_id, embedding, model_name, updated_at)
		 VALUES ($1, $2::vector, $3, now())
		 ON CONFLICT (book_id) DO UPDATE
		 SET embedding = EXCLUDED.embedding,
		     model_name = EXCLUDED.model_name,
		     updated_at = now()`,
		emb.BookID, formatVector(emb.Vector), emb.ModelName)
	if err != nil {
		return fmt.Errorf("upsert embedding for book %s: %w", emb.BookID, err)
	}
	return nil
}

func (b *pgvectorBackend) get(ctx context.Context, bookID uuid.UUID) ([]float64, error) {
	var literal string
	err := b.db.QueryRow(ctx,
		"SELECT embedding::text FROM book_embeddings WHERE book_id = $1", bookID).
		Scan(&literal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("embedding for book %s", bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding for book %s: %w", bookID, err)
	}
	return parseVector(literal)
}

func (b *pgvectorBackend) querySimilar(ctx context.Context, vec []float64, topK int) ([]models.SimilarBook, error) {
	// A mismatched query vector could never score above 0 against the fixed
	// deployment dimension, so it yields no candidates instead of an error.
	if len(vec) != b.dims {
		b.logger.WithFields(logrus.Fields{
			"expected": b.dims,
			"got":      len(vec),
		}).Warn("Embedding dimension mismatch in similarity query")
		return nil, nil
	}

	rows, err := b.db.Query(ctx,
		`SELECT book_id, 1 - (embedding <=> $1::vector) AS similarity
		 FROM book_embeddings
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		formatVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector similarity query: %w", err)
	}
	defer rows.Close()

	var out []models.SimilarBook
	for rows.Next() {
		var sb models.SimilarBook
		if err := rows.Scan(&sb.BookID, &sb.Similarity); err != nil {
			b.logger.WithError(err).Warn("Failed to scan similarity row, skipping")
			continue
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}
