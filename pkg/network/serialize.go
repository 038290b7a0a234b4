package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
)

type graphJSON struct {
	Nodes []nodeJSON `json:"nodes"`
	Edges []edgeJSON `json:"edges"`
}

type nodeJSON struct {
	ID        int64      `json:"id"`
	Centroid  *orb.Point `json:"centroid,omitempty"`
	Area      float64    `json:"area,omitempty"`
	Perimeter float64    `json:"perimeter,omitempty"`
}

type edgeJSON struct {
	From   int64     `json:"from"`
	To     int64     `json:"to"`
	Area   float64   `json:"area"`
	Origin orb.Point `json:"origin"`
	Dest   orb.Point `json:"dest"`
}

// MarshalGraph converts a graph to JSON bytes.
// Nodes and edges are sorted for deterministic output.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a graph as JSON to w.
func WriteGraph(g *Graph, w io.Writer) error {
	out := graphJSON{
		Nodes: make([]nodeJSON, 0, g.NodeCount()),
		Edges: make([]edgeJSON, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		nd := nodeJSON{ID: n.ID}
		if n.Decorated {
			c := n.Centroid
			nd.Centroid = &c
			nd.Area = n.Area
			nd.Perimeter = n.Perimeter
		}
		out.Nodes = append(out.Nodes, nd)
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, edgeJSON{From: e.From, To: e.To, Area: e.Area, Origin: e.Origin, Dest: e.Dest})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraphFile writes a graph to a JSON file.
func WriteGraphFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteGraph(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadGraph decodes a JSON graph. Edges referencing nodes missing from the
// node list create bare nodes. Self-loops and duplicate edges are rejected.
func ReadGraph(r io.Reader) (*Graph, error) {
	var data graphJSON
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := New()
	for _, n := range data.Nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("node %d: duplicate", n.ID)
		}
		nd := g.ensureNode(n.ID)
		if n.Centroid != nil {
			nd.Centroid = *n.Centroid
			nd.Area = n.Area
			nd.Perimeter = n.Perimeter
			nd.Decorated = true
		}
	}
	for _, e := range data.Edges {
		if e.From == e.To {
			return nil, fmt.Errorf("edge %d->%d: self-loop", e.From, e.To)
		}
		if _, dup := g.edges[EdgeKey{e.From, e.To}]; dup {
			return nil, fmt.Errorf("edge %d->%d: duplicate", e.From, e.To)
		}
		g.addEdge(&Edge{From: e.From, To: e.To, Area: e.Area, Origin: e.Origin, Dest: e.Dest})
	}
	return g, nil
}

// ReadGraphFile reads a JSON file and returns the decoded graph.
func ReadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}
