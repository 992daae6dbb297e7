package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readnext/readnext/internal/config"
	"github.com/readnext/readnext/internal/graph"
	"github.com/readnext/readnext/pkg/models"
)

// defaultParams mirrors a request with no tuning parameters set: floats
// arrive as the -1 unset sentinel, ints as zero.
func defaultParams() Params {
	return Params{
		Lambda:             -1,
		BehaviorWeight:     -1,
		RestartProbability: -1,
		GraphWeight:        -1,
		SemanticWeight:     -1,
	}
}

func newTestService(history *fakeHistory, catalog *fakeCatalog, embeddings *fakeEmbeddings) *RecommendationService {
	return newTestServiceWithConfig(history, catalog, embeddings, testRecConfig())
}

func newTestServiceWithConfig(history *fakeHistory, catalog *fakeCatalog, embeddings *fakeEmbeddings, cfg *config.RecommendationConfig) *RecommendationService {
	logger := testLogger()

	profiles := NewSemanticProfileBuilder(history, catalog, embeddings, cfg.TrendingSampleSize, logger)
	semantic := NewSemanticRecall(profiles, history, embeddings, logger)
	deep := NewDeepMatchRecall(profiles, catalog, history, embeddings, cfg.CandidateMultiplier, logger)
	builder := graph.NewBuilder(history, cfg.MaxBooksPerUser, cfg.MaxBorrowersPerBook, logger)

	return NewRecommendationService(builder, semantic, deep, catalog, history, cfg, nil, logger)
}

// fusionFixture: seed borrowed A; a peer borrowed A and B, so the graph
// path surfaces B. The embedding index returns A (excluded) and C, so the
// semantic path surfaces C.
func fusionFixture() (uuid.UUID, uuid.UUID, uuid.UUID, *fakeHistory, *fakeCatalog, *fakeEmbeddings) {
	seed, peer := uuid.New(), uuid.New()
	bookA, bookB, bookC := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	history := &fakeHistory{
		byUser: map[uuid.UUID][]models.BorrowRecord{
			seed: {{UserID: seed, BookID: bookA, BorrowedAt: now}},
			peer: {
				{UserID: peer, BookID: bookA, BorrowedAt: now},
				{UserID: peer, BookID: bookB, BorrowedAt: now},
			},
		},
		byBook: map[uuid.UUID][]models.BorrowRecord{
			bookA: {
				{UserID: seed, BookID: bookA, BorrowedAt: now},
				{UserID: peer, BookID: bookA, BorrowedAt: now},
			},
			bookB: {{UserID: peer, BookID: bookB, BorrowedAt: now}},
		},
	}
	catalog := &fakeCatalog{books: map[uuid.UUID]models.Book{
		bookA: {ID: bookA, Title: "Dune", Category: "Sci-Fi", AvailableCount: 2},
		bookB: {ID: bookB, Title: "Hyperion", Category: "Sci-Fi", AvailableCount: 1},
		bookC: {ID: bookC, Title: "Foundation", Category: "Sci-Fi", AvailableCount: 4},
	}}
	embeddings := &fakeEmbeddings{
		vectors: map[uuid.UUID][]float64{bookA: {1, 0}},
		similar: []models.SimilarBook{
			{BookID: bookA, Similarity: 0.95},
			{BookID: bookC, Similarity: 0.9},
		},
	}

	return seed, bookB, bookC, history, catalog, embeddings
}

func TestRecommend_FusesBothPaths(t *testing.T) {
	seed, bookB, bookC, history, catalog, embeddings := fusionFixture()
	svc := newTestService(history, catalog, embeddings)

	resp, err := svc.Recommend(context.Background(), seed, defaultParams())
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 2)

	got := map[uuid.UUID]models.Recommendation{}
	for _, rec := range resp.Recommendations {
		got[rec.BookID] = rec
	}
	require.Contains(t, got, bookB)
	require.Contains(t, got, bookC)

	// Min-max rescale pins the batch to the full display range.
	assert.InDelta(t, 10.0, resp.Recommendations[0].Score, 1e-9)
	assert.InDelta(t, 0.0, resp.Recommendations[1].Score, 1e-9)

	// Hydration fills catalog fields.
	assert.Equal(t, "Hyperion", got[bookB].Title)
	assert.Equal(t, "Foundation", got[bookC].Title)

	// The graph-path book keeps its provenance chain.
	require.NotEmpty(t, got[bookB].Paths)
	assert.Equal(t, models.PathDirectBorrow, got[bookB].Paths[0].Type)
}

func TestRecommend_GraphOnlyWeights(t *testing.T) {
	seed, bookB, _, history, catalog, embeddings := fusionFixture()
	svc := newTestService(history, catalog, embeddings)

	params := defaultParams()
	params.GraphWeight = 1
	params.SemanticWeight = 0
	resp, err := svc.Recommend(context.Background(), seed, params)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Recommendations)

	// With the semantic weight zeroed the graph candidate must rank first.
	assert.Equal(t, bookB, resp.Recommendations[0].BookID)
	assert.InDelta(t, 10.0, resp.Recommendations[0].Score, 1e-9)
}

func TestRecommend_SemanticOnlyWhenNoHistory(t *testing.T) {
	newUser := uuid.New()
	bookC := uuid.New()

	history := &fakeHistory{byUser: map[uuid.UUID][]models.BorrowRecord{}}
	catalog := &fakeCatalog{
		books: map[uuid.UUID]models.Book{
			bookC: {ID: bookC, Title: "Foundation", Category: "Sci-Fi", AvailableCount: 4},
		},
		searchResults: []models.Book{{ID: bookC}},
	}
	embeddings := &fakeEmbeddings{
		vectors: map[uuid.UUID][]float64{bookC: {1, 0}},
		similar: []models.SimilarBook{{BookID: bookC, Similarity: 0.9}},
	}

	svc := newTestService(history, catalog, embeddings)

	resp, err := svc.Recommend(context.Background(), newUser, defaultParams())
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, bookC, resp.Recommendations[0].BookID)

	// Single-item batch: degenerate range falls back to score*10.
	assert.InDelta(t, 0.4*0.9*10, resp.Recommendations[0].Score, 1e-9)
}

func TestRecommend_NoDataAtAll(t *testing.T) {
	history := &fakeHistory{byUser: map[uuid.UUID][]models.BorrowRecord{}}
	catalog := &fakeCatalog{books: map[uuid.UUID]models.Book{}}
	embeddings := &fakeEmbeddings{vectors: map[uuid.UUID][]float64{}}

	svc := newTestService(history, catalog, embeddings)

	_, err := svc.Recommend(context.Background(), uuid.New(), defaultParams())
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	// Graph-path error takes precedence when both paths come up empty.
	assert.Contains(t, err.Error(), "no borrowing history")
}

func TestRecommend_Deterministic(t *testing.T) {
	seed, _, _, history, catalog, embeddings := fusionFixture()
	svc := newTestService(history, catalog, embeddings)

	first, err := svc.Recommend(context.Background(), seed, defaultParams())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		next, err := svc.Recommend(context.Background(), seed, defaultParams())
		require.NoError(t, err)
		require.Len(t, next.Recommendations, len(first.Recommendations))
		for j := range next.Recommendations {
			assert.Equal(t, first.Recommendations[j].BookID, next.Recommendations[j].BookID)
			assert.InDelta(t, first.Recommendations[j].Score, next.Recommendations[j].Score, 1e-9)
		}
	}
}

func TestRescaleForDisplay_Bounds(t *testing.T) {
	books := []models.ScoredBook{
		{BookID: uuid.New(), Score: 0.9},
		{BookID: uuid.New(), Score: 0.5},
		{BookID: uuid.New(), Score: 0.1},
	}

	rescaleForDisplay(books)

	assert.InDelta(t, 10.0, books[0].Score, 1e-9)
	assert.InDelta(t, 5.0, books[1].Score, 1e-9)
	assert.InDelta(t, 0.0, books[2].Score, 1e-9)
}

func TestRescaleForDisplay_DegenerateRange(t *testing.T) {
	books := []models.ScoredBook{
		{BookID: uuid.New(), Score: 0.42},
		{BookID: uuid.New(), Score: 0.42},
	}

	rescaleForDisplay(books)

	for _, b := range books {
		assert.InDelta(t, 4.2, b.Score, 1e-9)
	}

	tiny := []models.ScoredBook{{BookID: uuid.New(), Score: 0.0}}
	rescaleForDisplay(tiny)
	assert.InDelta(t, 0.1, tiny[0].Score, 1e-9)
}

func TestParamsWithDefaults(t *testing.T) {
	cfg := testRecConfig()

	p := Params{Lambda: -1, GraphWeight: -1, SemanticWeight: -1}.withDefaults(cfg)
	assert.Equal(t, cfg.TopN, p.TopN)
	assert.Equal(t, cfg.Lambda, p.Lambda)
	assert.Equal(t, cfg.GraphWeight, p.GraphWeight)
	assert.Equal(t, cfg.SemanticWeight, p.SemanticWeight)
	assert.Equal(t, cfg.MaxIterations, p.MaxIterations)

	// Explicit zero weights are respected as long as one is set.
	p = Params{GraphWeight: 1, SemanticWeight: 0}.withDefaults(cfg)
	assert.Equal(t, 1.0, p.GraphWeight)
	assert.Equal(t, 0.0, p.SemanticWeight)

	// Out-of-range restart probability falls back.
	p = Params{RestartProbability: 1.5}.withDefaults(cfg)
	assert.Equal(t, cfg.RestartProbability, p.RestartProbability)

	// The AI-enhanced path uses its own default sizes.
	p = Params{AIEnhanced: true}.withDefaults(cfg)
	assert.Equal(t, cfg.AITopN, p.TopN)
	assert.Equal(t, cfg.AIProfileK, p.ProfileK)
}

func TestRecommend_ExcludesBorrowsBeyondGraphCap(t *testing.T) {
	seed, peer := uuid.New(), uuid.New()
	bNew, bMid, bOld, bPeer := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	// Three seed borrows against a two-book graph cap: bOld falls out of
	// the seed's graph neighborhood but re-enters through the peer.
	history := &fakeHistory{
		byUser: map[uuid.UUID][]models.BorrowRecord{
			seed: {
				{UserID: seed, BookID: bNew, BorrowedAt: now},
				{UserID: seed, BookID: bMid, BorrowedAt: now.Add(-24 * time.Hour)},
				{UserID: seed, BookID: bOld, BorrowedAt: now.Add(-48 * time.Hour)},
			},
			peer: {
				{UserID: peer, BookID: bNew, BorrowedAt: now},
				{UserID: peer, BookID: bOld, BorrowedAt: now.Add(-48 * time.Hour)},
				{UserID: peer, BookID: bPeer, BorrowedAt: now},
			},
		},
		byBook: map[uuid.UUID][]models.BorrowRecord{
			bNew: {
				{UserID: seed, BookID: bNew, BorrowedAt: now},
				{UserID: peer, BookID: bNew, BorrowedAt: now},
			},
			bMid: {{UserID: seed, BookID: bMid, BorrowedAt: now.Add(-24 * time.Hour)}},
		},
	}
	catalog := &fakeCatalog{books: map[uuid.UUID]models.Book{
		bNew:  {ID: bNew, Title: "Dune", Category: "Sci-Fi", AvailableCount: 1},
		bMid:  {ID: bMid, Title: "Hyperion", Category: "Sci-Fi", AvailableCount: 1},
		bOld:  {ID: bOld, Title: "Foundation", Category: "Sci-Fi", AvailableCount: 1},
		bPeer: {ID: bPeer, Title: "Ubik", Category: "Sci-Fi", AvailableCount: 1},
	}}
	embeddings := &fakeEmbeddings{vectors: map[uuid.UUID][]float64{}}

	cfg := testRecConfig()
	cfg.MaxBooksPerUser = 2
	svc := newTestServiceWithConfig(history, catalog, embeddings, cfg)

	resp, err := svc.Recommend(context.Background(), seed, defaultParams())
	require.NoError(t, err)
	require.Len(t, resp.Recommendations, 1)
	assert.Equal(t, bPeer, resp.Recommendations[0].BookID)
	for _, rec := range resp.Recommendations {
		assert.NotEqual(t, bOld, rec.BookID, "a borrow outside the graph cap must still be excluded")
	}
}

func TestParamsWithDefaults_ExplicitZeroLambdaAndBehaviorWeight(t *testing.T) {
	cfg := testRecConfig()

	p := Params{Lambda: 0, BehaviorWeight: 0, GraphWeight: -1, SemanticWeight: -1}.withDefaults(cfg)
	assert.Equal(t, 0.0, p.Lambda, "lambda=0 disables decay and must be honored")
	assert.Equal(t, 0.0, p.BehaviorWeight)

	p = Params{Lambda: -1, BehaviorWeight: -1}.withDefaults(cfg)
	assert.Equal(t, cfg.Lambda, p.Lambda)
	assert.Equal(t, cfg.BehaviorWeight, p.BehaviorWeight)
}
