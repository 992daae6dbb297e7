package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/pkg/models"
)

// BorrowHistory is the slice of the borrowing-history store the builder
// needs. Records come back time-ordered descending.
type BorrowHistory interface {
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BorrowRecord, error)
	BorrowersOfBook(ctx context.Context, bookID uuid.UUID, limit int) ([]models.BorrowRecord, error)
}

// BuildParams are the per-request knobs of the edge weight formula
// behaviorWeight * exp(-lambda * ageDays).
type BuildParams struct {
	Lambda         float64
	BehaviorWeight float64
	Now            time.Time
}

// Builder expands a two-hop subgraph around one seed user: the seed's
// borrowed books, the other borrowers of those books, and those borrowers'
// other books. Fan-out per hop is capped to keep the expansion bounded.
type Builder struct {
	history             BorrowHistory
	maxBooksPerUser     int
	maxBorrowersPerBook int
	logger              *logrus.Logger
}

func NewBuilder(history BorrowHistory, maxBooksPerUser, maxBorrowersPerBook int, logger *logrus.Logger) *Builder {
	return &Builder{
		history:             history,
		maxBooksPerUser:     maxBooksPerUser,
		maxBorrowersPerBook: maxBorrowersPerBook,
		logger:              logger,
	}
}

// Build returns the interaction subgraph for seed. A graph with
// NodeCount() == 0 means the seed has no borrowing history.
func (b *Builder) Build(ctx context.Context, seed uuid.UUID, p BuildParams) (*Graph, error) {
	g := New()

	seedBorrows, err := b.history.RecentByUser(ctx, seed, b.maxBooksPerUser)
	if err != nil {
		return nil, fmt.Errorf("load seed borrow history: %w", err)
	}
	if len(seedBorrows) == 0 {
		return g, nil
	}

	seedNode := UserNodeID(seed)
	for _, rec := range seedBorrows {
		g.AddEdge(seedNode, BookNodeID(rec.BookID), edgeWeight(rec, p))
	}

	// Second hop: co-borrowers of the seed's books, then their other books.
	visited := map[uuid.UUID]bool{seed: true}
	for _, rec := range seedBorrows {
		borrowers, err := b.history.BorrowersOfBook(ctx, rec.BookID, b.maxBorrowersPerBook)
		if err != nil {
			return nil, fmt.Errorf("load borrowers of book %s: %w", rec.BookID, err)
		}

		for _, peer := range borrowers {
			if visited[peer.UserID] {
				continue
			}
			visited[peer.UserID] = true

			peerNode := UserNodeID(peer.UserID)
			g.AddEdge(peerNode, BookNodeID(peer.BookID), edgeWeight(peer, p))

			peerBorrows, err := b.history.RecentByUser(ctx, peer.UserID, b.maxBooksPerUser)
			if err != nil {
				return nil, fmt.Errorf("load borrow history of user %s: %w", peer.UserID, err)
			}
			for _, pb := range peerBorrows {
				// The bridging record already contributed its edge above;
				// the same interaction must not be counted twice.
				if pb.BookID == peer.BookID && pb.BorrowedAt.Equal(peer.BorrowedAt) {
					continue
				}
				g.AddEdge(peerNode, BookNodeID(pb.BookID), edgeWeight(pb, p))
			}
		}
	}

	b.logger.WithFields(logrus.Fields{
		"seed_user": seed,
		"nodes":     g.NodeCount(),
		"borrows":   len(seedBorrows),
	}).Debug("Interaction graph built")

	return g, nil
}

func edgeWeight(rec models.BorrowRecord, p BuildParams) float64 {
	ageDays := p.Now.Sub(rec.BorrowedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	w := p.BehaviorWeight * math.Exp(-p.Lambda*ageDays)
	if w > 1 {
		w = 1
	}
	return w
}
