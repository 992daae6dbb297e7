package models

import (
	"time"

	"github.com/google/uuid"
)

type PathType string

const (
	PathDirectBorrow  PathType = "DIRECT_BORROW"
	PathCollaborative PathType = "COLLABORATIVE"
	PathSemantic      PathType = "SEMANTIC"
)

// RecommendationPath is one provenance step explaining why a book was
// recommended, suitable for UI tooltips.
type RecommendationPath struct {
	Type         PathType   `json:"type"`
	SourceBookID *uuid.UUID `json:"source_book_id,omitempty"`
	TargetBookID uuid.UUID  `json:"target_book_id"`
	Contribution float64    `json:"contribution"`
}

// ScoredBook is an intermediate result produced by a single recall path
// before fusion.
type ScoredBook struct {
	BookID uuid.UUID            `json:"book_id"`
	Score  float64              `json:"score"`
	Reason string               `json:"reason"`
	Paths  []RecommendationPath `json:"paths,omitempty"`
}

// Recommendation is one fully hydrated entry of the final ranked list.
// Score is in display range [0,10].
type Recommendation struct {
	BookID         uuid.UUID            `json:"book_id"`
	Title          string               `json:"title"`
	Author         string               `json:"author"`
	Category       string               `json:"category"`
	AvailableCount int                  `json:"available_count"`
	Score          float64              `json:"score"`
	Reason         string               `json:"reason"`
	AIEnhanced     bool                 `json:"ai_enhanced"`
	Paths          []RecommendationPath `json:"paths,omitempty"`
}

type RecommendationResponse struct {
	UserID          uuid.UUID        `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
