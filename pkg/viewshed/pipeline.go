package viewshed

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/intervis/pkg/artifact"
	"github.com/matzehuels/intervis/pkg/bitplane"
	"github.com/matzehuels/intervis/pkg/engine"
	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/observability"
	"github.com/matzehuels/intervis/pkg/observer"
	"github.com/matzehuels/intervis/pkg/vectorize"
)

const (
	// DefaultSaveEvery is how many decoded observers are buffered before
	// they are appended to the sink.
	DefaultSaveEvery = 5000

	// DefaultLogEvery is the progress log interval in observers.
	DefaultLogEvery = 100
)

// Options configures one pipeline run. Every batch of a run uses the same
// Params; decoding relies on that uniformity.
type Options struct {
	BatchSize int
	SaveEvery int
	LogEvery  int
	Overwrite bool // recompute batches whose artifacts already exist
	Params    engine.Params
	Surface   string // passed through to the engine
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = observer.DefaultBatchSize
	}
	if o.SaveEvery <= 0 {
		o.SaveEvery = DefaultSaveEvery
	}
	if o.LogEvery <= 0 {
		o.LogEvery = DefaultLogEvery
	}
	if o.Params == (engine.Params{}) {
		o.Params = engine.DefaultParams()
	}
}

// Validate checks options after SetDefaults.
func (o Options) Validate() error {
	if o.BatchSize > observer.MaxBatchSize {
		return errors.New(errors.ErrCodeInvalidConfig,
			"batch size %d exceeds %d bit planes", o.BatchSize, observer.MaxBatchSize)
	}
	return o.Params.Validate()
}

// Report summarizes a run.
type Report struct {
	RunID         string
	Resumed       bool
	ResumeAfter   int64 // -1 when nothing was skipped
	Observers     int   // observers read after the checkpoint
	Batches       int   // batches sealed
	BatchesReused int   // batches decoded from stored artifacts
	Decoded       int   // observers decoded successfully
	Written       int   // rows appended to the sink
	Failures      []Failure
	Duration      time.Duration
}

// Runner wires the collaborators of the pipeline. A Runner may be reused
// for several runs but not concurrently.
type Runner struct {
	Engine     engine.Engine
	Artifacts  artifact.Store
	Vectorizer vectorize.Vectorizer
	Sink       Sink
	Logger     *log.Logger
}

// NewRunner creates a runner. A nil artifact store keeps artifacts in
// memory for the run, a nil vectorizer uses vectorize.Runs and a nil
// logger discards output.
func NewRunner(e engine.Engine, artifacts artifact.Store, v vectorize.Vectorizer, sink Sink, logger *log.Logger) *Runner {
	if artifacts == nil {
		artifacts = artifact.NewMemory()
	}
	if v == nil {
		v = vectorize.Runs{}
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Engine: e, Artifacts: artifacts, Vectorizer: v, Sink: sink, Logger: logger}
}

// Run processes every observer of src after cp's checkpoint. A nil cp
// starts from the first observer.
//
// The returned report is never nil, also on error, and reflects what was
// durably written.
func (r *Runner) Run(ctx context.Context, src observer.Source, cp observer.Checkpointer, opts Options) (*Report, error) {
	opts.SetDefaults()
	report := &Report{RunID: uuid.NewString(), ResumeAfter: -1}
	if err := opts.Validate(); err != nil {
		return report, err
	}
	if r.Engine == nil || r.Sink == nil {
		return report, errors.New(errors.ErrCodeInvalidConfig, "runner needs an engine and a sink")
	}

	start := time.Now()
	run := &run{Runner: r, opts: opts, report: report, logger: r.Logger.With("run", report.RunID[:8])}
	b := observer.NewBatcher(opts.BatchSize, run.seal)

	stats, err := b.Run(ctx, src, cp)
	report.Resumed = stats.Resumed
	report.ResumeAfter = stats.ResumeAfter
	report.Observers = stats.Observers
	report.Batches = stats.Batches

	// The final flush must survive cancellation of ctx.
	if ferr := run.flush(context.WithoutCancel(ctx)); ferr != nil && err == nil {
		err = ferr
	}
	report.Duration = time.Since(start)

	if err != nil {
		run.logger.Error("viewshed run aborted", "batches", report.Batches, "written", report.Written, "err", err)
		return report, err
	}
	run.logger.Info("viewshed run complete",
		"observers", report.Observers,
		"batches", report.Batches,
		"reused", report.BatchesReused,
		"written", report.Written,
		"failed", len(report.Failures),
		"duration", report.Duration)
	return report, nil
}

// run is the state of one Run.
type run struct {
	*Runner
	opts    Options
	report  *Report
	logger  *log.Logger
	pending []Viewshed
}

// seal handles one sealed batch: obtain its raster, then decode every member.
func (r *run) seal(ctx context.Context, b observer.Batch) error {
	observability.Pipeline().OnBatchSealed(ctx, b.Number, b.Len())

	raster, err := r.raster(ctx, b)
	if err != nil {
		return err
	}

	mark := len(r.pending)
	for i, o := range b.Observers {
		if err := ctx.Err(); err != nil {
			r.discard(mark)
			return err
		}
		idx := b.Index(i)
		v, err := r.decode(ctx, raster, idx, o)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				r.discard(mark)
				return cerr
			}
			r.fail(ctx, newFailure(b.Number, idx, o, err))
			continue
		}
		r.pending = append(r.pending, v)
		r.report.Decoded++
		observability.Pipeline().OnObserverDecoded(ctx, b.Number, idx)
		if r.report.Decoded%r.opts.LogEvery == 0 {
			r.logger.Info("decoded observers", "count", r.report.Decoded, "batch", b.Number, "point_id", o.PointID)
		}
	}

	if len(r.pending) >= r.opts.SaveEvery {
		return r.flush(ctx)
	}
	return nil
}

// discard drops rows of an unfinished batch so the checkpoint stays on a
// batch boundary.
func (r *run) discard(mark int) {
	r.report.Decoded -= len(r.pending) - mark
	r.pending = r.pending[:mark]
}

// stored loads the saved raster of b after checking that its observer table
// matches the sealed batch.
func (r *run) stored(ctx context.Context, b observer.Batch) (*bitplane.Raster, error) {
	saved, err := artifact.LoadBatch(ctx, r.Artifacts, b.Number)
	if err != nil {
		return nil, err
	}
	if !artifact.Matches(saved, b) {
		return nil, errors.New(errors.ErrCodeDecodeFailed,
			"stored batch %d has size %d and %d observers, want size %d and %d observers",
			b.Number, saved.Size, saved.Len(), b.Size, b.Len())
	}
	return artifact.LoadRaster(ctx, r.Artifacts, b.Number)
}

// raster reuses stored batch artifacts when allowed, otherwise calls the
// engine and stores its result.
func (r *run) raster(ctx context.Context, b observer.Batch) (*bitplane.Raster, error) {
	if !r.opts.Overwrite {
		ok, err := artifact.HasBatch(ctx, r.Artifacts, b.Number)
		if err != nil {
			return nil, err
		}
		if ok {
			raster, err := r.stored(ctx, b)
			if err == nil {
				r.report.BatchesReused++
				observability.Pipeline().OnBatchReused(ctx, b.Number)
				r.logger.Debug("reusing batch artifacts", "batch", b.Number)
				return raster, nil
			}
			r.logger.Warn("stored batch unusable, recomputing", "batch", b.Number, "err", err)
		}
	}

	req, err := engine.NewRequest(b, r.opts.Params, r.opts.Surface)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	raster, err := r.Engine.Compute(ctx, req)
	if err == nil {
		err = raster.Validate()
	}
	observability.Pipeline().OnEngineComplete(ctx, b.Number, time.Since(start), err)
	if err != nil {
		if errors.Is(err, errors.ErrCodeEngineFailed) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "batch %d", b.Number)
	}
	r.logger.Debug("engine finished", "batch", b.Number, "observers", b.Len(), "duration", time.Since(start))

	if err := artifact.SaveBatch(ctx, r.Artifacts, b, raster); err != nil {
		return nil, err
	}
	return raster, nil
}

func (r *run) decode(ctx context.Context, raster *bitplane.Raster, idx int, o observer.Observer) (Viewshed, error) {
	mask, err := raster.Decode(idx)
	if err != nil {
		return Viewshed{}, err
	}
	geom, err := r.Vectorizer.Vectorize(ctx, mask)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeVectorizeFailed, err, "point %d", o.PointID)
		}
		return Viewshed{}, err
	}
	return Viewshed{
		IslandID:      o.IslandID,
		SplitIslandID: o.SplitIslandID,
		GridID:        o.GridID,
		PointID:       o.PointID,
		Geometry:      geom,
	}, nil
}

func (r *run) fail(ctx context.Context, f Failure) {
	r.report.Failures = append(r.report.Failures, f)
	observability.Pipeline().OnObserverFailed(ctx, f.Batch, f.Index, f.Err)
	r.logger.Error("observer failed",
		"index", f.Index,
		"island_id", f.IslandID,
		"split_island_id", f.SplitIslandID,
		"grid_id", f.GridID,
		"point_id", f.PointID,
		"err", f.Err)
}

// flush appends pending rows to the sink.
func (r *run) flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.Sink.Append(ctx, r.pending); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "append %d viewsheds", len(r.pending))
	}
	last := r.pending[len(r.pending)-1].PointID
	r.report.Written += len(r.pending)
	observability.Pipeline().OnCheckpoint(ctx, len(r.pending), last)
	r.logger.Info("checkpoint", "written", r.report.Written, "max_point_id", last)
	r.pending = r.pending[:0]
	return nil
}
