package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/pkg/models"
)

type BorrowHistoryStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewBorrowHistoryStore(db Querier, logger *logrus.Logger) *BorrowHistoryStore {
	return &BorrowHistoryStore{db: db, logger: logger}
}

// RecentByUser returns the user's borrow records newest first.
func (s *BorrowHistoryStore) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BorrowRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, book_id, borrowed_at
		 FROM borrow_records
		 WHERE user_id = $1
		 ORDER BY borrowed_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("borrow history of user %s: %w", userID, err)
	}
	defer rows.Close()

	return s.collect(rows)
}

// BorrowersOfBook returns borrow records of a book, newest first.
func (s *BorrowHistoryStore) BorrowersOfBook(ctx context.Context, bookID uuid.UUID, limit int) ([]models.BorrowRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, book_id, borrowed_at
		 FROM borrow_records
		 WHERE book_id = $1
		 ORDER BY borrowed_at DESC
		 LIMIT $2`,
		bookID, limit)
	if err != nil {
		return nil, fmt.Errorf("borrowers of book %s: %w", bookID, err)
	}
	defer rows.Close()

	return s.collect(rows)
}

func (s *BorrowHistoryStore) collect(rows pgx.Rows) ([]models.BorrowRecord, error) {
	var out []models.BorrowRecord
	for rows.Next() {
		var r models.BorrowRecord
		if err := rows.Scan(&r.UserID, &r.BookID, &r.BorrowedAt); err != nil {
			s.logger.WithError(err).Warn("Failed to scan borrow record, skipping")
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
