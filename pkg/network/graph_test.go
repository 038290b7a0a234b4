package network

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph(t *testing.T) *Graph {
	t.Helper()
	c := &centroids{points: map[EdgeKey]orb.Point{
		{1, 2}: {20, 0}, {2, 1}: {10, 0},
		{1, 3}: {30, 5}, {3, 1}: {11, 1},
	}}
	g, err := NewBuilder(c, BuilderOptions{}).Build(context.Background(),
		triples{{1, 3, 4}, {2, 1, 1}, {1, 2, 2}, {1, 2, 0.5}})
	require.NoError(t, err)
	return g
}

func TestGraphOrdering(t *testing.T) {
	g := sampleGraph(t)

	var keys []EdgeKey
	for _, e := range g.Edges() {
		keys = append(keys, e.Key())
	}
	assert.Equal(t, []EdgeKey{{1, 2}, {1, 3}, {2, 1}}, keys)

	var ids []int64
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)

	assert.InDelta(t, 7.5, g.TotalArea(), 1e-12)
	assert.Equal(t, orb.Bound{Min: orb.Point{10, 0}, Max: orb.Point{30, 5}}, g.Bound())
}

type islands map[int64]IslandInfo

func (m islands) Island(_ context.Context, id int64) (IslandInfo, bool, error) {
	info, ok := m[id]
	return info, ok, nil
}

func TestDecorate(t *testing.T) {
	g := sampleGraph(t)
	n, err := Decorate(context.Background(), g, islands{
		1: {ID: 1, Centroid: orb.Point{1, 1}, Area: 100, Perimeter: 40},
		3: {ID: 3, Centroid: orb.Point{3, 3}, Area: 9, Perimeter: 12},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n1, _ := g.Node(1)
	assert.True(t, n1.Decorated)
	assert.Equal(t, 100.0, n1.Area)
	n2, _ := g.Node(2)
	assert.False(t, n2.Decorated)
}

func TestGraphJSONRoundTrip(t *testing.T) {
	g := sampleGraph(t)
	_, err := Decorate(context.Background(), g, islands{2: {ID: 2, Centroid: orb.Point{5, 5}, Area: 3, Perimeter: 7}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "network.json")
	require.NoError(t, WriteGraphFile(g, path))

	got, err := ReadGraphFile(path)
	require.NoError(t, err)
	assert.Equal(t, g.Nodes(), got.Nodes())
	assert.Equal(t, g.Edges(), got.Edges())

	a, err := MarshalGraph(g)
	require.NoError(t, err)
	b, err := MarshalGraph(got)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "serialization should be deterministic")
}

func TestReadGraphRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"nodes": [`},
		{"self loop", `{"nodes": [], "edges": [{"from": 1, "to": 1, "area": 1, "origin": [0,0], "dest": [0,0]}]}`},
		{"duplicate edge", `{"edges": [
			{"from": 1, "to": 2, "area": 1, "origin": [0,0], "dest": [1,1]},
			{"from": 1, "to": 2, "area": 2, "origin": [0,0], "dest": [1,1]}]}`},
		{"duplicate node", `{"nodes": [{"id": 1}, {"id": 1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}
