package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/export"
	"github.com/matzehuels/intervis/pkg/network"
	"github.com/matzehuels/intervis/pkg/observability/prom"
)

type triples []network.Triple

func (ts triples) Triples(_ context.Context, fn func(network.Triple) error) error {
	for _, t := range ts {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

func testGraph(t *testing.T) *network.Graph {
	t.Helper()
	points := map[network.EdgeKey]orb.Point{
		{A: 1, B: 2}: {10, 0},
		{A: 2, B: 1}: {0, 0},
		{A: 3, B: 2}: {10, 50},
		{A: 2, B: 3}: {20, 50},
	}
	lookup := network.CentroidFunc(func(_ context.Context, from, of int64) (orb.Point, bool, error) {
		p, ok := points[network.EdgeKey{A: from, B: of}]
		return p, ok, nil
	})
	g, err := network.NewBuilder(lookup, network.BuilderOptions{}).Build(context.Background(), triples{
		{A: 1, B: 2, Area: 5}, {A: 2, B: 1, Area: 3}, {A: 1, B: 2, Area: 2.5}, {A: 2, B: 3, Area: 4},
	})
	require.NoError(t, err)
	return g
}

func newServer(t *testing.T, g *network.Graph, opts Options) *Server {
	t.Helper()
	s, err := New(g, opts)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := newServer(t, testGraph(t), Options{})
	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, healthResponse{Status: "ok", Nodes: 3, Edges: 3, TotalArea: 14.5}, body)
}

func TestGeoJSON(t *testing.T) {
	s := newServer(t, testGraph(t), Options{})

	rec := get(t, s, "/network.geojson")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	lines, err := export.ReadGeoJSON(rec.Body)
	require.NoError(t, err)
	assert.Len(t, lines, 3)

	rec = get(t, s, "/network.geojson?bbox=15,40,25,60")
	require.Equal(t, http.StatusOK, rec.Code)
	lines, err = export.ReadGeoJSON(rec.Body)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].To)

	rec = get(t, s, "/network.geojson?bbox=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphJSON(t *testing.T) {
	s := newServer(t, testGraph(t), Options{})
	rec := get(t, s, "/network.json")
	require.Equal(t, http.StatusOK, rec.Code)

	g, err := network.ReadGraph(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 3, g.EdgeCount())
}

func TestDOTAndSVG(t *testing.T) {
	renders := 0
	s := newServer(t, testGraph(t), Options{Render: func(_ context.Context, dot string) ([]byte, error) {
		renders++
		if !strings.HasPrefix(dot, "digraph") {
			t.Errorf("render got %q", dot)
		}
		return []byte("<svg/>"), nil
	}})

	rec := get(t, s, "/network.dot?detailed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"1" -> "2"`)
	assert.Contains(t, rec.Body.String(), `label="7.5"`)

	for i := 0; i < 2; i++ {
		rec = get(t, s, "/network.svg")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	}
	assert.Equal(t, 1, renders)
}

func TestEdge(t *testing.T) {
	s := newServer(t, testGraph(t), Options{})

	rec := get(t, s, "/edges/1/2")
	require.Equal(t, http.StatusOK, rec.Code)
	var l export.LineFeature
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Equal(t, 7.5, l.Weight)
	assert.Equal(t, orb.Point{0, 0}, l.Origin)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/edges/1/3").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/edges/x/2").Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.New(reg)
	m.BatchesSealed.Inc()

	s := newServer(t, testGraph(t), Options{Gatherer: reg})
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "intervis_batches_sealed_total 1")

	assert.Equal(t, http.StatusNotFound, get(t, newServer(t, testGraph(t), Options{}), "/metrics").Code)
}

func TestNonFiniteGeometry(t *testing.T) {
	s := newServer(t, testGraph(t), Options{})
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/network.geojson?bbox=NaN,0,1,1").Code)

	lookup := network.CentroidFunc(func(context.Context, int64, int64) (orb.Point, bool, error) {
		return orb.Point{math.NaN(), 0}, true, nil
	})
	g, err := network.NewBuilder(lookup, network.BuilderOptions{}).Build(context.Background(), triples{{A: 1, B: 2, Area: 1}})
	require.NoError(t, err)
	_, err = New(g, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)
}
