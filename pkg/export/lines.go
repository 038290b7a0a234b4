package export

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/network"
)

// LineFeature is one exported edge.
type LineFeature struct {
	From   int64     `json:"island_a"`
	To     int64     `json:"island_b"`
	Weight float64   `json:"weight"`
	Origin orb.Point `json:"origin"`
	Dest   orb.Point `json:"dest"`
}

// Line returns the two-point segment from Origin to Dest.
func (f LineFeature) Line() orb.LineString {
	return orb.LineString{f.Origin, f.Dest}
}

// Lines converts every edge of g to a LineFeature, ordered by (From, To).
func Lines(g *network.Graph) []LineFeature {
	edges := g.Edges()
	out := make([]LineFeature, 0, len(edges))
	for _, e := range edges {
		out = append(out, LineFeature{
			From:   e.From,
			To:     e.To,
			Weight: e.Area,
			Origin: e.Origin,
			Dest:   e.Dest,
		})
	}
	return out
}

// TotalWeight sums the weights of lines.
func TotalWeight(lines []LineFeature) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.Weight
	}
	return sum
}
