package observer

import (
	"context"

	"github.com/matzehuels/intervis/pkg/errors"
)

// Source streams observers in ascending point id order.
type Source interface {
	// Observers calls fn for every observer with point_id > after.
	// Iteration stops at the first error returned by fn.
	Observers(ctx context.Context, after int64, fn func(Observer) error) error
}

// Checkpointer reports the largest point id already durably processed.
// ok is false when nothing has been written yet.
type Checkpointer interface {
	MaxPointID(ctx context.Context) (id int64, ok bool, err error)
}

// SealFunc receives each sealed batch. The batch's slice is owned by the callee.
type SealFunc func(ctx context.Context, b Batch) error

// Batcher accumulates observers and seals a batch whenever the next observer
// belongs to a different batch number, or when the stream ends.
//
// For a contiguous id run starting on a batch boundary this is exactly the
// "position i > 0 and i mod size == 0" trigger: batch n is sealed when the
// first observer of batch n+1 is read, before that observer is assigned.
//
// A Batcher is not safe for concurrent use; batches are sealed strictly in
// ascending order.
type Batcher struct {
	size    int
	seal    SealFunc
	pending Batch
	lastID  int64
	started bool
	sealed  int
}

// NewBatcher creates a batcher. A size outside [1, MaxBatchSize] falls back
// to DefaultBatchSize.
func NewBatcher(size int, seal SealFunc) *Batcher {
	if size <= 0 || size > MaxBatchSize {
		size = DefaultBatchSize
	}
	return &Batcher{size: size, seal: seal}
}

// Size returns the configured batch size.
func (b *Batcher) Size() int { return b.size }

// Sealed returns how many batches have been sealed so far.
func (b *Batcher) Sealed() int { return b.sealed }

// Pending returns the observers accumulated for the unsealed batch.
func (b *Batcher) Pending() []Observer { return b.pending.Observers }

// Add assigns o to its batch, sealing the previous batch first when o starts
// a new one. Point ids must be strictly ascending.
func (b *Batcher) Add(ctx context.Context, o Observer) error {
	if o.PointID < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative point id %d", o.PointID)
	}
	if b.started && o.PointID <= b.lastID {
		return errors.New(errors.ErrCodeInvalidInput,
			"observers out of order: point id %d after %d", o.PointID, b.lastID)
	}
	b.started = true
	b.lastID = o.PointID

	n := BatchNumber(o.PointID, b.size)
	if len(b.pending.Observers) > 0 && n != b.pending.Number {
		if err := b.Flush(ctx); err != nil {
			return err
		}
	}
	if len(b.pending.Observers) == 0 {
		b.pending = Batch{Number: n, Size: b.size, Observers: make([]Observer, 0, b.size)}
	}
	b.pending.Observers = append(b.pending.Observers, o)
	return nil
}

// Flush seals the pending batch, if any.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.pending.Observers) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = Batch{}
	b.sealed++
	return b.seal(ctx, batch)
}

// RunStats summarizes one Run.
type RunStats struct {
	Resumed     bool  // a checkpoint was found
	ResumeAfter int64 // observers with point_id <= ResumeAfter were skipped
	Observers   int   // observers read in this run
	Batches     int   // batches sealed in this run
}

// Run streams every observer after the checkpoint through the batcher and
// seals the final partial batch when the stream ends. A nil Checkpointer
// starts from the beginning.
func (b *Batcher) Run(ctx context.Context, src Source, cp Checkpointer) (RunStats, error) {
	stats := RunStats{ResumeAfter: -1}
	if cp != nil {
		id, ok, err := cp.MaxPointID(ctx)
		if err != nil {
			return stats, err
		}
		if ok {
			stats.Resumed = true
			stats.ResumeAfter = id
		}
	}

	before := b.sealed
	err := src.Observers(ctx, stats.ResumeAfter, func(o Observer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Observers++
		return b.Add(ctx, o)
	})
	if err == nil {
		err = b.Flush(ctx)
	}
	stats.Batches = b.sealed - before
	return stats, err
}
