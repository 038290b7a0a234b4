package network

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/observability"
)

// DefaultProgressEvery is how many rows pass between progress log lines.
const DefaultProgressEvery = 100000

// Skip reasons reported to GraphHooks.
const (
	SkipSelfLoop        = "self_loop"
	SkipMissingCentroid = "missing_centroid"
)

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	Logger        *log.Logger
	ProgressEvery int
}

// SetDefaults fills unset fields.
func (o *BuilderOptions) SetDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
}

// Stats counts what happened to each row.
type Stats struct {
	Rows         int // rows read
	SelfLoops    int // rows with A == B
	Accumulated  int // rows added to an existing edge
	Created      int // rows that created an edge
	SkippedPairs int // rows dropped for missing representative points
}

// Builder folds intersection rows into a Graph. It is not safe for
// concurrent use.
type Builder struct {
	lookup CentroidLookup
	opts   BuilderOptions
	graph  *Graph
	stats  Stats
}

// NewBuilder creates a builder backed by lookup.
func NewBuilder(lookup CentroidLookup, opts BuilderOptions) *Builder {
	opts.SetDefaults()
	return &Builder{lookup: lookup, opts: opts, graph: New()}
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph { return b.graph }

// Stats returns the row counters.
func (b *Builder) Stats() Stats { return b.stats }

// Add folds one row into the graph. Only lookup failures are returned;
// dropped rows are counted in Stats.
func (b *Builder) Add(ctx context.Context, t Triple) error {
	b.stats.Rows++

	if t.A == t.B {
		b.stats.SelfLoops++
		observability.Graph().OnTripleSkipped(ctx, SkipSelfLoop)
		return nil
	}

	if e, ok := b.graph.edges[EdgeKey{t.A, t.B}]; ok {
		e.Area += t.Area
		b.stats.Accumulated++
		return nil
	}

	origin, ok, err := b.lookup.Centroid(ctx, t.B, t.A)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "centroid of %d seen from %d", t.A, t.B)
	}
	if !ok {
		b.skip(ctx, t)
		return nil
	}
	dest, ok, err := b.lookup.Centroid(ctx, t.A, t.B)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "centroid of %d seen from %d", t.B, t.A)
	}
	if !ok {
		b.skip(ctx, t)
		return nil
	}

	b.graph.addEdge(&Edge{From: t.A, To: t.B, Area: t.Area, Origin: origin, Dest: dest})
	b.stats.Created++
	return nil
}

func (b *Builder) skip(ctx context.Context, t Triple) {
	b.stats.SkippedPairs++
	observability.Graph().OnTripleSkipped(ctx, SkipMissingCentroid)
	b.opts.Logger.Debug("no representative point for pair", "island_a", t.A, "island_b", t.B, "area", t.Area)
}

// Build streams every row of src through Add and returns the graph.
func (b *Builder) Build(ctx context.Context, src TripleSource) (*Graph, error) {
	start := time.Now()
	err := src.Triples(ctx, func(t Triple) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Add(ctx, t); err != nil {
			return err
		}
		if b.stats.Rows%b.opts.ProgressEvery == 0 {
			b.opts.Logger.Info("graph progress",
				"rows", b.stats.Rows,
				"nodes", b.graph.NodeCount(),
				"edges", b.graph.EdgeCount())
		}
		return nil
	})
	observability.Graph().OnGraphBuilt(ctx, b.stats.Rows, b.graph.NodeCount(), b.graph.EdgeCount(), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s := b.stats
	b.opts.Logger.Info("built visibility graph",
		"rows", s.Rows,
		"nodes", b.graph.NodeCount(),
		"edges", b.graph.EdgeCount(),
		"self_loops", s.SelfLoops,
		"skipped_pairs", s.SkippedPairs)
	return b.graph, nil
}
