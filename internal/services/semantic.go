package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/pkg/models"
)

// maxBorrowExclusion bounds how much history is loaded when excluding a
// user's own borrows from recall results.
const maxBorrowExclusion = 500

// SemanticRecall is the plain embedding-similarity path: simple-mean
// profile vector, nearest neighbours from the embedding store, own borrows
// excluded.
type SemanticRecall struct {
	profiles   *SemanticProfileBuilder
	history    BorrowHistory
	embeddings EmbeddingProvider
	logger     *logrus.Logger
}

func NewSemanticRecall(
	profiles *SemanticProfileBuilder,
	history BorrowHistory,
	embeddings EmbeddingProvider,
	logger *logrus.Logger,
) *SemanticRecall {
	return &SemanticRecall{
		profiles:   profiles,
		history:    history,
		embeddings: embeddings,
		logger:     logger,
	}
}

func (s *SemanticRecall) Recommend(ctx context.Context, userID uuid.UUID, topN, profileK int) ([]models.ScoredBook, error) {
	profile, err := s.profiles.Build(ctx, userID, profileK, false)
	if err != nil {
		return nil, err
	}

	borrowed, err := borrowedSet(ctx, s.history, userID)
	if err != nil {
		return nil, err
	}

	// Over-fetch so exclusion of own borrows still leaves topN candidates.
	similar, err := s.embeddings.QuerySimilar(ctx, profile.Vector, topN+len(borrowed))
	if err != nil {
		return nil, err
	}

	var out []models.ScoredBook
	for _, sb := range similar {
		if borrowed[sb.BookID] {
			continue
		}
		out = append(out, models.ScoredBook{
			BookID: sb.BookID,
			Score:  sb.Similarity,
			Reason: "Similar to books you borrowed recently",
			Paths: []models.RecommendationPath{{
				Type:         models.PathSemantic,
				TargetBookID: sb.BookID,
				Contribution: sb.Similarity,
			}},
		})
		if len(out) == topN {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"candidates": len(out),
	}).Debug("Semantic recall completed")

	return out, nil
}

func borrowedSet(ctx context.Context, history BorrowHistory, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	records, err := history.RecentByUser(ctx, userID, maxBorrowExclusion)
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]bool, len(records))
	for _, rec := range records {
		set[rec.BookID] = true
	}
	return set, nil
}
