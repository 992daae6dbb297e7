package models

import (
	"time"

	"github.com/google/uuid"
)

type Book struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Author         string    `json:"author" db:"author"`
	Category       string    `json:"category" db:"category"`
	AvailableCount int       `json:"available_count" db:"available_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// BorrowRecord is one borrow interaction between a user and a book.
type BorrowRecord struct {
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	BookID     uuid.UUID `json:"book_id" db:"book_id"`
	BorrowedAt time.Time `json:"borrowed_at" db:"borrowed_at"`
}

// Embedding is the current vector for a book. Upserts are last-write-wins;
// there is exactly one current vector per book.
type Embedding struct {
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	Vector    []float64 `json:"vector" db:"embedding"`
	ModelName string    `json:"model_name" db:"model_name"`
}

// SimilarBook is a single result of a vector similarity query.
type SimilarBook struct {
	BookID     uuid.UUID `json:"book_id"`
	Similarity float64   `json:"similarity"`
}
