package network

import (
	"context"
	"sort"

	"github.com/paulmach/orb"
)

// Triple is one intersection row: area of island B visible from island A.
type Triple struct {
	A    int64
	B    int64
	Area float64
}

// TripleSource streams intersection rows. Implementations must release
// their underlying resources on every return path.
type TripleSource interface {
	Triples(ctx context.Context, fn func(Triple) error) error
}

// CentroidLookup returns the representative point of island of's area that
// is visible from island from. ok is false when no such geometry exists;
// err is reserved for lookup failures.
type CentroidLookup interface {
	Centroid(ctx context.Context, from, of int64) (p orb.Point, ok bool, err error)
}

// CentroidFunc adapts a function to CentroidLookup.
type CentroidFunc func(ctx context.Context, from, of int64) (orb.Point, bool, error)

// Centroid calls f.
func (f CentroidFunc) Centroid(ctx context.Context, from, of int64) (orb.Point, bool, error) {
	return f(ctx, from, of)
}

// Node is an island referenced by at least one edge.
type Node struct {
	ID        int64
	Centroid  orb.Point
	Area      float64
	Perimeter float64
	Decorated bool
}

// EdgeKey identifies a directed pair.
type EdgeKey struct {
	A, B int64
}

// Edge is a directed visibility relation with its accumulated area.
type Edge struct {
	From   int64
	To     int64
	Area   float64
	Origin orb.Point // on From, visible from To
	Dest   orb.Point // on To, visible from From
}

// Key returns the edge's pair.
func (e *Edge) Key() EdgeKey { return EdgeKey{e.From, e.To} }

// Line returns the straight segment between the representative points.
func (e *Edge) Line() orb.LineString { return orb.LineString{e.Origin, e.Dest} }

// Graph is a directed weighted graph without self-loops.
type Graph struct {
	nodes map[int64]*Node
	edges map[EdgeKey]*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[int64]*Node),
		edges: make(map[EdgeKey]*Edge),
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id int64) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge from a to b.
func (g *Graph) Edge(a, b int64) (*Edge, bool) {
	e, ok := g.edges[EdgeKey{a, b}]
	return e, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns all nodes ordered by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all edges ordered by (From, To).
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// TotalArea returns the sum of all edge weights.
func (g *Graph) TotalArea() float64 {
	var sum float64
	for _, e := range g.edges {
		sum += e.Area
	}
	return sum
}

// Bound returns the extent of all edge endpoints.
func (g *Graph) Bound() orb.Bound {
	first := true
	var b orb.Bound
	for _, e := range g.edges {
		lb := e.Line().Bound()
		if first {
			b, first = lb, false
			continue
		}
		b = b.Union(lb)
	}
	return b
}

func (g *Graph) ensureNode(id int64) *Node {
	n, ok := g.nodes[id]
	if !ok {
		n = &Node{ID: id}
		g.nodes[id] = n
	}
	return n
}

// addEdge inserts a new edge and its endpoints. Callers guarantee a != b
// and that the pair is absent.
func (g *Graph) addEdge(e *Edge) {
	g.ensureNode(e.From)
	g.ensureNode(e.To)
	g.edges[e.Key()] = e
}
