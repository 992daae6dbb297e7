package graph

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/readnext/readnext/pkg/models"
)

type PageRankParams struct {
	// Alpha is the restart probability: the share of rank mass teleported
	// back to the seed at every step.
	Alpha float64
	// MaxIterations is a fixed iteration budget. There is deliberately no
	// convergence early-exit: latency stays bounded and results stay
	// reproducible.
	MaxIterations int
	TopN          int
	// Exclude drops these books from the result regardless of graph
	// structure. Callers must pass the seed's full borrow set: the capped
	// graph alone can miss older borrows that re-enter through a
	// co-borrower's history.
	Exclude map[uuid.UUID]bool
}

// PersonalizedPageRank runs power iteration seeded at seed:
//
//	r_{t+1} = (1-alpha) * M^T * r_t + alpha * e_seed
//
// with M row-stochastic from edge weights. Scores are then restricted to
// book nodes the seed has not already borrowed, sorted score descending with
// ascending book id as the tie-break, and truncated to TopN. A seed with no
// edges yields an empty result.
func PersonalizedPageRank(ctx context.Context, g *Graph, seed uuid.UUID, p PageRankParams) ([]models.ScoredBook, error) {
	seedNode := UserNodeID(seed)
	if g.Degree(seedNode) == 0 {
		return nil, nil
	}

	nodes := g.nodes()
	index := make(map[NodeID]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	degree := make([]float64, len(nodes))
	for i, n := range nodes {
		degree[i] = g.Degree(n)
	}

	rank := make([]float64, len(nodes))
	seedIdx := index[seedNode]
	rank[seedIdx] = 1

	next := make([]float64, len(nodes))
	for t := 0; t < p.MaxIterations; t++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for i := range next {
			next[i] = 0
		}
		for i, n := range nodes {
			mass := rank[i]
			if mass == 0 || degree[i] == 0 {
				continue
			}
			spread := (1 - p.Alpha) * mass / degree[i]
			for to, w := range g.Neighbors(n) {
				next[index[to]] += spread * w
			}
		}
		next[seedIdx] += p.Alpha

		rank, next = next, rank
	}

	borrowed := make(map[uuid.UUID]bool, len(p.Exclude))
	for id := range p.Exclude {
		borrowed[id] = true
	}
	for n := range g.Neighbors(seedNode) {
		if n.Kind == BookNode {
			borrowed[n.ID] = true
		}
	}

	var scored []models.ScoredBook
	for i, n := range nodes {
		if n.Kind != BookNode || borrowed[n.ID] || rank[i] <= 0 {
			continue
		}
		scored = append(scored, models.ScoredBook{BookID: n.ID, Score: rank[i]})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].BookID.String() < scored[j].BookID.String()
	})
	if len(scored) > p.TopN {
		scored = scored[:p.TopN]
	}

	for i := range scored {
		scored[i].Reason = "Borrowed by readers with similar history"
		scored[i].Paths = explainPaths(g, seedNode, BookNodeID(scored[i].BookID), rank, index, scored[i].Score)
	}

	return scored, nil
}

// explainPaths walks the highest-weight contributing edges back from a
// recommended book: the strongest bridging reader, then the strongest book
// that reader shares with the seed.
func explainPaths(g *Graph, seedNode, book NodeID, rank []float64, index map[NodeID]int, score float64) []models.RecommendationPath {
	var bridge NodeID
	best := -1.0
	for n, w := range g.Neighbors(book) {
		if n.Kind != UserNode || n == seedNode {
			continue
		}
		// Contribution of a reader is their final rank mass times the
		// strength of their tie to the book.
		c := rank[index[n]] * w
		if c > best {
			best = c
			bridge = n
		}
	}
	if best < 0 {
		return []models.RecommendationPath{{
			Type:         models.PathDirectBorrow,
			TargetBookID: book.ID,
			Contribution: score,
		}}
	}

	var shared NodeID
	bestShared := -1.0
	for n, w := range g.Neighbors(bridge) {
		if n.Kind != BookNode || n == book {
			continue
		}
		sw := g.EdgeWeight(seedNode, n)
		if sw == 0 {
			continue
		}
		if c := sw * w; c > bestShared {
			bestShared = c
			shared = n
		}
	}
	if bestShared < 0 {
		return []models.RecommendationPath{{
			Type:         models.PathCollaborative,
			TargetBookID: book.ID,
			Contribution: score,
		}}
	}

	sharedID := shared.ID
	return []models.RecommendationPath{
		{
			Type:         models.PathDirectBorrow,
			TargetBookID: sharedID,
			Contribution: g.EdgeWeight(seedNode, shared),
		},
		{
			Type:         models.PathCollaborative,
			SourceBookID: &sharedID,
			TargetBookID: book.ID,
			Contribution: score,
		},
	}
}
