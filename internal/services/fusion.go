package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/readnext/readnext/internal/config"
	"github.com/readnext/readnext/internal/graph"
	"github.com/readnext/readnext/pkg/models"
)

// displayEpsilon is the score range below which min-max rescaling would
// degenerate; such batches fall back to score*10 with a 0.1 floor.
const displayEpsilon = 1e-9

// Params are the request parameters of one recommendation call. Unset or
// malformed float values arrive as -1 and take configured defaults; an
// explicit zero is meaningful for Lambda (no decay), BehaviorWeight and the
// fusion weights.
type Params struct {
	TopN               int
	Lambda             float64
	BehaviorWeight     float64
	RestartProbability float64
	MaxIterations      int
	ProfileK           int
	GraphWeight        float64
	SemanticWeight     float64
	AIEnhanced         bool
}

func (p Params) withDefaults(cfg *config.RecommendationConfig) Params {
	if p.TopN <= 0 {
		if p.AIEnhanced {
			p.TopN = cfg.AITopN
		} else {
			p.TopN = cfg.TopN
		}
	}
	if p.Lambda < 0 {
		p.Lambda = cfg.Lambda
	}
	if p.BehaviorWeight < 0 {
		p.BehaviorWeight = cfg.BehaviorWeight
	}
	if p.RestartProbability <= 0 || p.RestartProbability >= 1 {
		p.RestartProbability = cfg.RestartProbability
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = cfg.MaxIterations
	}
	if p.ProfileK <= 0 {
		if p.AIEnhanced {
			p.ProfileK = cfg.AIProfileK
		} else {
			p.ProfileK = cfg.ProfileK
		}
	}
	if p.GraphWeight < 0 {
		p.GraphWeight = cfg.GraphWeight
	}
	if p.SemanticWeight < 0 {
		p.SemanticWeight = cfg.SemanticWeight
	}
	if p.GraphWeight == 0 && p.SemanticWeight == 0 {
		p.GraphWeight = cfg.GraphWeight
		p.SemanticWeight = cfg.SemanticWeight
	}
	return p
}

// RecommendationService fuses the graph-diffusion path and the
// semantic/deep-match path into one explainable ranked list. It holds no
// per-user state: the graph and profile are rebuilt on every call.
type RecommendationService struct {
	graphBuilder *graph.Builder
	semantic     *SemanticRecall
	deep         *DeepMatchRecall
	catalog      BookCatalog
	history      BorrowHistory
	cfg          *config.RecommendationConfig
	metrics      *Metrics
	logger       *logrus.Logger
}

func NewRecommendationService(
	graphBuilder *graph.Builder,
	semantic *SemanticRecall,
	deep *DeepMatchRecall,
	catalog BookCatalog,
	history BorrowHistory,
	cfg *config.RecommendationConfig,
	metrics *Metrics,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		graphBuilder: graphBuilder,
		semantic:     semantic,
		deep:         deep,
		catalog:      catalog,
		history:      history,
		cfg:          cfg,
		metrics:      metrics,
		logger:       logger,
	}
}

func (s *RecommendationService) Recommend(ctx context.Context, userID uuid.UUID, params Params) (*models.RecommendationResponse, error) {
	p := params.withDefaults(s.cfg)
	s.metrics.ObserveRequest()

	// The two paths run independently; either may fail on its own without
	// failing the other.
	var (
		graphBooks, semanticBooks []models.ScoredBook
		graphErr, semanticErr     error
	)

	var eg errgroup.Group
	eg.Go(func() error {
		start := time.Now()
		graphBooks, graphErr = s.graphPath(ctx, userID, p)
		s.metrics.ObservePath("graph", time.Since(start), graphErr)
		return nil
	})
	eg.Go(func() error {
		start := time.Now()
		semanticBooks, semanticErr = s.semanticPath(ctx, userID, p)
		s.metrics.ObservePath(semanticPathName(p.AIEnhanced), time.Since(start), semanticErr)
		return nil
	})
	_ = eg.Wait()

	if graphErr != nil {
		s.logger.WithError(graphErr).WithField("user_id", userID).Debug("Graph path produced no result")
	}
	if semanticErr != nil {
		s.logger.WithError(semanticErr).WithField("user_id", userID).Debug("Semantic path produced no result")
	}

	fused := fuse(graphBooks, semanticBooks, p)
	if len(fused) == 0 {
		if graphErr != nil {
			return nil, graphErr
		}
		if semanticErr != nil {
			return nil, semanticErr
		}
		return nil, models.NotFoundf("no recommendations for user %s", userID)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].BookID.String() < fused[j].BookID.String()
	})
	if len(fused) > p.TopN {
		fused = fused[:p.TopN]
	}

	rescaleForDisplay(fused)

	recommendations, err := s.hydrate(ctx, fused, p.AIEnhanced)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"count":       len(recommendations),
		"ai_enhanced": p.AIEnhanced,
	}).Info("Recommendations generated")

	return &models.RecommendationResponse{
		UserID:          userID,
		Recommendations: recommendations,
		GeneratedAt:     time.Now(),
	}, nil
}

func (s *RecommendationService) graphPath(ctx context.Context, userID uuid.UUID, p Params) ([]models.ScoredBook, error) {
	g, err := s.graphBuilder.Build(ctx, userID, graph.BuildParams{
		Lambda:         p.Lambda,
		BehaviorWeight: p.BehaviorWeight,
		Now:            time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if g.NodeCount() == 0 {
		return nil, models.NotFoundf("no borrowing history for user %s", userID)
	}

	// The graph caps the seed's borrow fan-out, so its neighbors alone are
	// not the full borrow set; exclusion uses the same wide lookup as the
	// semantic path.
	borrowed, err := borrowedSet(ctx, s.history, userID)
	if err != nil {
		return nil, err
	}

	scored, err := graph.PersonalizedPageRank(ctx, g, userID, graph.PageRankParams{
		Alpha:         p.RestartProbability,
		MaxIterations: p.MaxIterations,
		TopN:          p.TopN,
		Exclude:       borrowed,
	})
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return nil, models.NotFoundf("no graph candidates for user %s", userID)
	}
	return scored, nil
}

func (s *RecommendationService) semanticPath(ctx context.Context, userID uuid.UUID, p Params) ([]models.ScoredBook, error) {
	if p.AIEnhanced {
		return s.deep.Recommend(ctx, userID, p.TopN, p.ProfileK)
	}
	return s.semantic.Recommend(ctx, userID, p.TopN, p.ProfileK)
}

func semanticPathName(aiEnhanced bool) string {
	if aiEnhanced {
		return "deep_match"
	}
	return "semantic"
}

// fuse accumulates graphWeight*clamp(g,0,1) + semanticWeight*clamp(s,0,1)
// per book across whichever paths produced it. The graph path's reason is
// preferred; the semantic reason is the fallback.
func fuse(graphBooks, semanticBooks []models.ScoredBook, p Params) []models.ScoredBook {
	merged := make(map[uuid.UUID]*models.ScoredBook)

	for _, sb := range graphBooks {
		entry := &models.ScoredBook{
			BookID: sb.BookID,
			Score:  p.GraphWeight * clamp01(sb.Score),
			Reason: sb.Reason,
			Paths:  sb.Paths,
		}
		merged[sb.BookID] = entry
	}

	for _, sb := range semanticBooks {
		if entry, ok := merged[sb.BookID]; ok {
			entry.Score += p.SemanticWeight * clamp01(sb.Score)
			entry.Paths = append(entry.Paths, sb.Paths...)
			continue
		}
		merged[sb.BookID] = &models.ScoredBook{
			BookID: sb.BookID,
			Score:  p.SemanticWeight * clamp01(sb.Score),
			Reason: sb.Reason,
			Paths:  sb.Paths,
		}
	}

	out := make([]models.ScoredBook, 0, len(merged))
	for _, entry := range merged {
		out = append(out, *entry)
	}
	return out
}

// rescaleForDisplay maps the selected batch linearly into [0,10] using its
// min/max. A degenerate range falls back to score*10 floored at 0.1 so the
// display is never all zeros.
func rescaleForDisplay(books []models.ScoredBook) {
	if len(books) == 0 {
		return
	}

	minScore, maxScore := books[0].Score, books[0].Score
	for _, b := range books {
		if b.Score < minScore {
			minScore = b.Score
		}
		if b.Score > maxScore {
			maxScore = b.Score
		}
	}

	if maxScore-minScore < displayEpsilon {
		for i := range books {
			v := books[i].Score * 10
			if v < 0.1 {
				v = 0.1
			}
			if v > 10 {
				v = 10
			}
			books[i].Score = v
		}
		return
	}

	for i := range books {
		books[i].Score = (books[i].Score - minScore) / (maxScore - minScore) * 10
	}
}

func (s *RecommendationService) hydrate(ctx context.Context, fused []models.ScoredBook, aiEnhanced bool) ([]models.Recommendation, error) {
	ids := make([]uuid.UUID, 0, len(fused))
	for _, sb := range fused {
		ids = append(ids, sb.BookID)
	}

	books, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.Recommendation, 0, len(fused))
	for _, sb := range fused {
		book, ok := books[sb.BookID]
		if !ok {
			s.logger.WithField("book_id", sb.BookID).Warn("Recommended book missing from catalog, skipping")
			continue
		}
		out = append(out, models.Recommendation{
			BookID:         book.ID,
			Title:          book.Title,
			Author:         book.Author,
			Category:       book.Category,
			AvailableCount: book.AvailableCount,
			Score:          sb.Score,
			Reason:         sb.Reason,
			AIEnhanced:     aiEnhanced,
			Paths:          sb.Paths,
		})
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
