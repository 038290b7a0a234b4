package observer

import (
	"context"
	"errors"
	"testing"

	ierrors "github.com/matzehuels/intervis/pkg/errors"
)

type sliceSource []Observer

func (s sliceSource) Observers(ctx context.Context, after int64, fn func(Observer) error) error {
	for _, o := range s {
		if o.PointID <= after {
			continue
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

type fixedCheckpoint struct {
	id int64
	ok bool
}

func (c fixedCheckpoint) MaxPointID(context.Context) (int64, bool, error) { return c.id, c.ok, nil }

func observers(from, to int64) sliceSource {
	var out sliceSource
	for id := from; id <= to; id++ {
		out = append(out, Observer{PointID: id, IslandID: id / 10})
	}
	return out
}

func TestBatchArithmetic(t *testing.T) {
	tests := []struct {
		pointID   int64
		wantBatch int
		wantIndex int
	}{
		{0, 1, 0},
		{1, 1, 1},
		{31, 1, 31},
		{32, 2, 0},
		{63, 2, 31},
		{64, 3, 0},
		{100000, 3126, 0},
		{100031, 3126, 31},
	}

	for _, tt := range tests {
		if got := BatchNumber(tt.pointID, DefaultBatchSize); got != tt.wantBatch {
			t.Errorf("BatchNumber(%d) = %d, want %d", tt.pointID, got, tt.wantBatch)
		}
		if got := IndexInBatch(tt.pointID, DefaultBatchSize); got != tt.wantIndex {
			t.Errorf("IndexInBatch(%d) = %d, want %d", tt.pointID, got, tt.wantIndex)
		}
	}
}

func TestBatchArithmeticExhaustive(t *testing.T) {
	for id := int64(0); id < 10*DefaultBatchSize; id++ {
		if got, want := BatchNumber(id, DefaultBatchSize), int(id/32)+1; got != want {
			t.Fatalf("BatchNumber(%d) = %d, want %d", id, got, want)
		}
		if got, want := IndexInBatch(id, DefaultBatchSize), int(id%32); got != want {
			t.Fatalf("IndexInBatch(%d) = %d, want %d", id, got, want)
		}
	}
}

func TestBatcherSealsOnBoundary(t *testing.T) {
	ctx := context.Background()
	var sealed []Batch
	var b *Batcher
	b = NewBatcher(DefaultBatchSize, func(_ context.Context, batch Batch) error {
		// The observer that triggered the seal must not be pending yet.
		if len(b.Pending()) != 0 {
			t.Errorf("pending = %d observers at seal time, want 0", len(b.Pending()))
		}
		sealed = append(sealed, batch)
		return nil
	})

	for _, o := range observers(0, 31) {
		if err := b.Add(ctx, o); err != nil {
			t.Fatalf("Add(%d): %v", o.PointID, err)
		}
	}
	if len(sealed) != 0 {
		t.Fatalf("sealed %d batches before point 32, want 0", len(sealed))
	}

	if err := b.Add(ctx, Observer{PointID: 32}); err != nil {
		t.Fatalf("Add(32): %v", err)
	}
	if len(sealed) != 1 {
		t.Fatalf("sealed %d batches after point 32, want 1", len(sealed))
	}
	first := sealed[0]
	if first.Number != 1 || first.Len() != 32 {
		t.Errorf("first batch = #%d with %d observers, want #1 with 32", first.Number, first.Len())
	}
	for i := 0; i < first.Len(); i++ {
		if first.Index(i) != i {
			t.Errorf("first.Index(%d) = %d, want %d", i, first.Index(i), i)
		}
	}

	pending := b.Pending()
	if len(pending) != 1 || pending[0].PointID != 32 {
		t.Errorf("pending = %+v, want point 32 at index 0 of batch 2", pending)
	}
}

func TestBatcherRunFlushesTail(t *testing.T) {
	var sealed []Batch
	b := NewBatcher(DefaultBatchSize, func(_ context.Context, batch Batch) error {
		sealed = append(sealed, batch)
		return nil
	})

	stats, err := b.Run(context.Background(), observers(0, 35), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Observers != 36 || stats.Batches != 2 || stats.Resumed {
		t.Errorf("stats = %+v, want 36 observers, 2 batches, not resumed", stats)
	}
	if len(sealed) != 2 {
		t.Fatalf("sealed %d batches, want 2", len(sealed))
	}
	tail := sealed[1]
	if tail.Number != 2 || tail.Len() != 4 {
		t.Errorf("tail = #%d with %d observers, want #2 with 4", tail.Number, tail.Len())
	}
	if got := tail.Indices(); len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Errorf("tail indices = %v, want [0 1 2 3]", got)
	}
	if tail.MaxPointID() != 35 {
		t.Errorf("tail.MaxPointID() = %d, want 35", tail.MaxPointID())
	}
}

func TestBatcherResume(t *testing.T) {
	src := observers(0, 69)

	var firstRun []Batch
	b := NewBatcher(DefaultBatchSize, func(_ context.Context, batch Batch) error {
		firstRun = append(firstRun, batch)
		return nil
	})
	if _, err := b.Run(context.Background(), src, fixedCheckpoint{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(firstRun) != 3 {
		t.Fatalf("first run sealed %d batches, want 3", len(firstRun))
	}

	// Second run after everything was written: nothing to do.
	var secondRun []Batch
	b2 := NewBatcher(DefaultBatchSize, func(_ context.Context, batch Batch) error {
		secondRun = append(secondRun, batch)
		return nil
	})
	stats, err := b2.Run(context.Background(), src, fixedCheckpoint{id: 69, ok: true})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.Observers != 0 || len(secondRun) != 0 {
		t.Errorf("second run processed %d observers in %d batches, want none", stats.Observers, len(secondRun))
	}

	// Resume mid-batch keeps point-id derived assignment.
	var partial []Batch
	b3 := NewBatcher(DefaultBatchSize, func(_ context.Context, batch Batch) error {
		partial = append(partial, batch)
		return nil
	})
	stats, err = b3.Run(context.Background(), src, fixedCheckpoint{id: 40, ok: true})
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if !stats.Resumed || stats.ResumeAfter != 40 || stats.Observers != 29 {
		t.Errorf("stats = %+v, want resumed after 40 with 29 observers", stats)
	}
	if len(partial) != 2 || partial[0].Number != 2 || partial[0].Index(0) != 9 || partial[1].Number != 3 {
		t.Errorf("partial batches = %+v, want batch 2 starting at index 9 then batch 3", partial)
	}
}

func TestBatcherRejectsUnordered(t *testing.T) {
	b := NewBatcher(DefaultBatchSize, func(context.Context, Batch) error { return nil })
	ctx := context.Background()

	if err := b.Add(ctx, Observer{PointID: 5}); err != nil {
		t.Fatalf("Add(5): %v", err)
	}
	err := b.Add(ctx, Observer{PointID: 5})
	if !ierrors.Is(err, ierrors.ErrCodeInvalidInput) {
		t.Errorf("duplicate id error = %v, want INVALID_INPUT", err)
	}
	err = b.Add(ctx, Observer{PointID: 3})
	if !ierrors.Is(err, ierrors.ErrCodeInvalidInput) {
		t.Errorf("descending id error = %v, want INVALID_INPUT", err)
	}
}

func TestBatcherSealErrorAborts(t *testing.T) {
	boom := errors.New("engine down")
	calls := 0
	b := NewBatcher(DefaultBatchSize, func(context.Context, Batch) error {
		calls++
		return boom
	})

	_, err := b.Run(context.Background(), observers(0, 100), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("seal called %d times, want 1 (no retry)", calls)
	}
}

func TestNewBatcherSizeBounds(t *testing.T) {
	for _, size := range []int{0, -1, 33, 64} {
		if got := NewBatcher(size, nil).Size(); got != DefaultBatchSize {
			t.Errorf("NewBatcher(%d).Size() = %d, want %d", size, got, DefaultBatchSize)
		}
	}
	if got := NewBatcher(8, nil).Size(); got != 8 {
		t.Errorf("NewBatcher(8).Size() = %d, want 8", got)
	}
}
