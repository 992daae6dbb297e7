package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/ml"
	"github.com/readnext/readnext/pkg/models"
)

// Blend weights and rebias constants of the deep-match score. These are
// hard-coded heuristics, not learned parameters; changing them changes
// ranking behaviour, so they are kept verbatim pending externalized
// configuration.
const (
	blendCosine          = 0.5
	blendCategory        = 0.2
	blendDeepInteraction = 0.3

	categoryExactMatch = 1.0
	categoryMismatch   = 0.3
	categoryNoHistory  = 0.5

	diversityNewCategory = 0.15
	diversityNoHistory   = 0.1
)

// DeepMatchScore is the decomposition of one candidate's score.
type DeepMatchScore struct {
	Cosine          float64
	CategoryMatch   float64
	DeepInteraction float64
	MatchScore      float64
	DiversityBoost  float64
	Final           float64
}

// DeepMatchScorer blends cosine similarity, category affinity and a cheap
// bilinear interaction term standing in for a learned matching layer, then
// rebiases the blend through a sigmoid and applies a diversity boost.
type DeepMatchScorer struct{}

func (DeepMatchScorer) Score(profile *models.UserProfile, category string, bookVec []float64) DeepMatchScore {
	var s DeepMatchScore

	s.Cosine = ml.Cosine(profile.Vector, bookVec)

	switch {
	case len(profile.TopCategories) == 0:
		s.CategoryMatch = categoryNoHistory
	case profile.HasCategory(category):
		s.CategoryMatch = categoryExactMatch
	default:
		s.CategoryMatch = categoryMismatch
	}

	dot := ml.Dot(profile.Vector, bookVec)
	mean := ml.MeanElementwiseProduct(profile.Vector, bookVec)
	s.DeepInteraction = ml.Sigmoid((dot + mean) / 2)

	blend := blendCosine*s.Cosine + blendCategory*s.CategoryMatch + blendDeepInteraction*s.DeepInteraction
	s.MatchScore = ml.Sigmoid(2*blend - 1)

	switch {
	case len(profile.TopCategories) == 0:
		s.DiversityBoost = diversityNoHistory
	case !profile.HasCategory(category):
		s.DiversityBoost = diversityNewCategory
	}

	s.Final = s.MatchScore * (1 + s.DiversityBoost)
	return s
}

// DeepMatchRecall is the AI-enhanced path: a time-decayed profile scored
// against a catalog sample with the deep-match blend.
type DeepMatchRecall struct {
	profiles            *SemanticProfileBuilder
	catalog             BookCatalog
	history             BorrowHistory
	embeddings          EmbeddingProvider
	scorer              DeepMatchScorer
	candidateMultiplier int
	logger              *logrus.Logger
}

func NewDeepMatchRecall(
	profiles *SemanticProfileBuilder,
	catalog BookCatalog,
	history BorrowHistory,
	embeddings EmbeddingProvider,
	candidateMultiplier int,
	logger *logrus.Logger,
) *DeepMatchRecall {
	return &DeepMatchRecall{
		profiles:            profiles,
		catalog:             catalog,
		history:             history,
		embeddings:          embeddings,
		candidateMultiplier: candidateMultiplier,
		logger:              logger,
	}
}

func (s *DeepMatchRecall) Recommend(ctx context.Context, userID uuid.UUID, topN, profileK int) ([]models.ScoredBook, error) {
	profile, err := s.profiles.Build(ctx, userID, profileK, true)
	if err != nil {
		return nil, err
	}

	borrowed, err := borrowedSet(ctx, s.history, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.catalog.Sample(ctx, s.candidateMultiplier*topN)
	if err != nil {
		return nil, err
	}

	var out []models.ScoredBook
	for _, book := range candidates {
		if borrowed[book.ID] || book.AvailableCount <= 0 {
			continue
		}

		vec, err := s.embeddings.GetEmbedding(ctx, book.ID)
		if err != nil {
			// Candidates without an embedding are skipped; partial results
			// beat total failure.
			if !models.IsNotFound(err) {
				s.logger.WithError(err).WithField("book_id", book.ID).
					Warn("Failed to load candidate embedding, skipping")
			}
			continue
		}

		score := s.scorer.Score(profile, book.Category, vec)
		out = append(out, models.ScoredBook{
			BookID: book.ID,
			Score:  score.Final,
			Reason: reasonFor(score, book.Category),
			Paths: []models.RecommendationPath{{
				Type:         models.PathSemantic,
				TargetBookID: book.ID,
				Contribution: score.Final,
			}},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].BookID.String() < out[j].BookID.String()
	})
	if len(out) > topN {
		out = out[:topN]
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"candidates": len(out),
	}).Debug("Deep-match recall completed")

	return out, nil
}

func reasonFor(score DeepMatchScore, category string) string {
	switch {
	case score.DiversityBoost == diversityNewCategory:
		return fmt.Sprintf("A change of pace: %s is outside your recent categories", category)
	case score.DiversityBoost == diversityNoHistory:
		return "A broad pick to get your profile started"
	default:
		return fmt.Sprintf("Strong match for your taste in %s", category)
	}
}
