package network

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
)

// IslandInfo describes one island polygon.
type IslandInfo struct {
	ID        int64
	Centroid  orb.Point
	Area      float64
	Perimeter float64
}

// IslandLookup finds an island by id. ok is false when it does not exist.
type IslandLookup interface {
	Island(ctx context.Context, id int64) (info IslandInfo, ok bool, err error)
}

// Decorate fills centroid, area and perimeter of every undecorated node
// found by islands. It returns how many nodes were decorated. Nodes that
// islands does not know are left as they are.
func Decorate(ctx context.Context, g *Graph, islands IslandLookup) (int, error) {
	n := 0
	for _, node := range g.Nodes() {
		if node.Decorated {
			continue
		}
		info, ok, err := islands.Island(ctx, node.ID)
		if err != nil {
			return n, errors.Wrap(errors.ErrCodeStoreFailed, err, "island %d", node.ID)
		}
		if !ok {
			continue
		}
		node.Centroid = info.Centroid
		node.Area = info.Area
		node.Perimeter = info.Perimeter
		node.Decorated = true
		n++
	}
	return n, nil
}
