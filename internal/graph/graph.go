// Package graph builds the ephemeral user-book interaction subgraph for a
// single recommendation request and runs personalized PageRank over it.
// A graph is owned by exactly one request, rebuilt every call and never
// persisted, so concurrent requests need no coordination.
package graph

import (
	"sort"

	"github.com/google/uuid"
)

type NodeKind uint8

const (
	UserNode NodeKind = iota
	BookNode
)

type NodeID struct {
	Kind NodeKind
	ID   uuid.UUID
}

func UserNodeID(id uuid.UUID) NodeID { return NodeID{Kind: UserNode, ID: id} }
func BookNodeID(id uuid.UUID) NodeID { return NodeID{Kind: BookNode, ID: id} }

// Graph is a weighted bipartite user-book graph. Edges are undirected;
// repeated interactions between the same pair accumulate by summation and
// the resulting weight is clamped into (0, 1].
type Graph struct {
	adj map[NodeID]map[NodeID]float64
}

func New() *Graph {
	return &Graph{adj: make(map[NodeID]map[NodeID]float64)}
}

func (g *Graph) AddEdge(a, b NodeID, weight float64) {
	if weight <= 0 || a == b {
		return
	}
	g.bump(a, b, weight)
	g.bump(b, a, weight)
}

func (g *Graph) bump(from, to NodeID, weight float64) {
	edges, ok := g.adj[from]
	if !ok {
		edges = make(map[NodeID]float64)
		g.adj[from] = edges
	}
	w := edges[to] + weight
	if w > 1 {
		w = 1
	}
	edges[to] = w
}

func (g *Graph) NodeCount() int {
	return len(g.adj)
}

func (g *Graph) EdgeWeight(a, b NodeID) float64 {
	return g.adj[a][b]
}

// Neighbors returns the adjacency map of n. The returned map is shared with
// the graph and must not be mutated.
func (g *Graph) Neighbors(n NodeID) map[NodeID]float64 {
	return g.adj[n]
}

// Degree is the sum of edge weights incident to n.
func (g *Graph) Degree(n NodeID) float64 {
	sum := 0.0
	for _, w := range g.adj[n] {
		sum += w
	}
	return sum
}

// nodes returns every node in a deterministic order: users before books,
// ids ascending. Determinism here makes PageRank output reproducible.
func (g *Graph) nodes() []NodeID {
	out := make([]NodeID, 0, len(g.adj))
	for n := range g.adj {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
