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

const bookColumns = "id, title, author, category, available_count, created_at"

type BookCatalogStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewBookCatalogStore(db Querier, logger *logrus.Logger) *BookCatalogStore {
	return &BookCatalogStore{db: db, logger: logger}
}

func (s *BookCatalogStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id = $1", id)

	var b models.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.AvailableCount, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("book %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find book %s: %w", id, err)
	}
	return &b, nil
}

func (s *BookCatalogStore) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Book, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Book{}, nil
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("find books by ids: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]models.Book, len(ids))
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.AvailableCount, &b.CreatedAt); err != nil {
			s.logger.WithError(err).Warn("Failed to scan book row, skipping")
			continue
		}
		out[b.ID] = b
	}
	return out, rows.Err()
}

// Search filters title, author and category with a case-insensitive
// substring match. An empty filter returns the newest catalog entries.
func (s *BookCatalogStore) Search(ctx context.Context, filter string, limit, offset int) ([]models.Book, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE $1 = '' OR title ILIKE '%' || $1 || '%'
		    OR author ILIKE '%' || $1 || '%'
		    OR category ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	return s.collect(rows)
}

// Sample returns up to n arbitrary catalog books. It backs the candidate
// pool of the deep-match path and the cold-start trending proxy.
func (s *BookCatalogStore) Sample(ctx context.Context, n int) ([]models.Book, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+bookColumns+" FROM books ORDER BY random() LIMIT $1", n)
	if err != nil {
		return nil, fmt.Errorf("sample books: %w", err)
	}
	defer rows.Close()

	return s.collect(rows)
}

func (s *BookCatalogStore) collect(rows pgx.Rows) ([]models.Book, error) {
	var out []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.AvailableCount, &b.CreatedAt); err != nil {
			s.logger.WithError(err).Warn("Failed to scan book row, skipping")
			continue
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
