package export

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/network"
)

type staticTriples []network.Triple

func (ts staticTriples) Triples(_ context.Context, fn func(network.Triple) error) error {
	for _, t := range ts {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// sampleGraph builds 1->2 (7.5), 2->1 (3.0) and 2->3 (4.0).
func sampleGraph(t *testing.T) *network.Graph {
	t.Helper()
	points := map[network.EdgeKey]orb.Point{
		{A: 1, B: 2}: {10, 0},
		{A: 2, B: 1}: {0, 0},
		{A: 3, B: 2}: {10, 5},
		{A: 2, B: 3}: {20, 5},
	}
	lookup := network.CentroidFunc(func(_ context.Context, from, of int64) (orb.Point, bool, error) {
		p, ok := points[network.EdgeKey{A: from, B: of}]
		return p, ok, nil
	})
	b := network.NewBuilder(lookup, network.BuilderOptions{})
	g, err := b.Build(context.Background(), staticTriples{
		{A: 1, B: 2, Area: 5.0},
		{A: 2, B: 1, Area: 3.0},
		{A: 1, B: 2, Area: 2.5},
		{A: 1, B: 1, Area: 9.0},
		{A: 2, B: 3, Area: 4.0},
	})
	require.NoError(t, err)
	return g
}

func TestLines(t *testing.T) {
	lines := Lines(sampleGraph(t))
	require.Len(t, lines, 3)

	assert.Equal(t, LineFeature{From: 1, To: 2, Weight: 7.5, Origin: orb.Point{0, 0}, Dest: orb.Point{10, 0}}, lines[0])
	assert.Equal(t, LineFeature{From: 2, To: 1, Weight: 3.0, Origin: orb.Point{10, 0}, Dest: orb.Point{0, 0}}, lines[1])
	assert.Equal(t, int64(3), lines[2].To)
	assert.Equal(t, orb.LineString{{10, 5}, {20, 5}}, lines[2].Line())
	assert.InDelta(t, 14.5, TotalWeight(lines), 1e-9)
}

func TestLinesEmptyGraph(t *testing.T) {
	assert.Empty(t, Lines(network.New()))
}

func TestLinesDoesNotMutate(t *testing.T) {
	g := sampleGraph(t)
	lines := Lines(g)
	lines[0].Weight = 100

	e, ok := g.Edge(1, 2)
	require.True(t, ok)
	assert.Equal(t, 7.5, e.Area)
}

func TestGeoJSONRoundTrip(t *testing.T) {
	lines := Lines(sampleGraph(t))

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, lines))
	assert.Contains(t, buf.String(), `"A_sees_B": 7.5`)
	assert.Contains(t, buf.String(), `"island_A": 1`)
	assert.Contains(t, buf.String(), `"LineString"`)

	got, err := ReadGeoJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestReadGeoJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"point geometry", `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"island_A":1,"island_B":2}}]}`},
		{"missing ids", `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGeoJSON(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestToDOT(t *testing.T) {
	g := sampleGraph(t)
	dot := ToDOT(g, DOTOptions{Detailed: true})

	assert.True(t, strings.HasPrefix(dot, "digraph G {"))
	assert.Contains(t, dot, `"1" -> "2"`)
	assert.Contains(t, dot, `"2" -> "1"`)
	assert.Contains(t, dot, `label="7.5"`)
	assert.NotContains(t, dot, `"1" -> "1"`)
	assert.NotContains(t, dot, "pos=")
}

func TestToDOTGeographic(t *testing.T) {
	g := sampleGraph(t)
	n, ok := g.Node(1)
	require.True(t, ok)
	n.Centroid = orb.Point{1, 2}
	n.Decorated = true

	dot := ToDOT(g, DOTOptions{Geographic: true, Scale: 10})
	assert.Contains(t, dot, "layout=neato")
	assert.Contains(t, dot, `pos="10.00,20.00!"`)
	assert.Equal(t, 1, strings.Count(dot, "pos="))
}

func TestPenWidth(t *testing.T) {
	assert.Equal(t, 1.0, penWidth(0))
	assert.Equal(t, 1.0, penWidth(1))
	assert.InDelta(t, 2.0, penWidth(100), 1e-9)
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	assert.Contains(t, out, `viewBox="0 0 100.00 50.00" width="100" height="50"`)
	assert.Contains(t, out, "<g/>")

	plain := []byte(`<svg><g/></svg>`)
	assert.Equal(t, plain, normalizeViewBox(plain))
}

func within(t *testing.T, idx *Index, b orb.Bound) []LineFeature {
	t.Helper()
	lines, err := idx.Within(b)
	require.NoError(t, err)
	return lines
}

func TestIndexWithin(t *testing.T) {
	lines := Lines(sampleGraph(t))
	idx, err := NewIndex(lines)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	all := within(t, idx, orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{30, 30}})
	assert.Equal(t, lines, all)

	// Only the horizontal y=5 line crosses x in [15, 25].
	right := within(t, idx, orb.Bound{Min: orb.Point{15, 4}, Max: orb.Point{25, 6}})
	require.Len(t, right, 1)
	assert.Equal(t, int64(2), right[0].From)
	assert.Equal(t, int64(3), right[0].To)

	assert.Empty(t, within(t, idx, orb.Bound{Min: orb.Point{100, 100}, Max: orb.Point{200, 200}}))
}

func TestIndexEmpty(t *testing.T) {
	idx, err := NewIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, within(t, idx, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}))
}

func TestIndexRejectsNonFinite(t *testing.T) {
	_, err := NewIndex([]LineFeature{{From: 1, To: 2, Origin: orb.Point{math.NaN(), 0}, Dest: orb.Point{1, 1}}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)

	idx, err := NewIndex(Lines(sampleGraph(t)))
	require.NoError(t, err)
	for _, b := range []orb.Bound{
		{Min: orb.Point{math.NaN(), 0}, Max: orb.Point{1, 1}},
		{Min: orb.Point{0, 0}, Max: orb.Point{math.Inf(1), 1}},
	} {
		_, err := idx.Within(b)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "Within(%v) err = %v", b, err)
	}
}

func TestParseBound(t *testing.T) {
	b, err := ParseBound("1, 2,3.5,4")
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3.5, 4}}, b)

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "5,0,1,1", "NaN,0,1,1", "0,0,Inf,1"} {
		_, err := ParseBound(bad)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), bad)
	}
}
