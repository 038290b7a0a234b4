// Package observer partitions an ordered observer stream into fixed-size
// batches for the external visibility engine.
//
// Each batch becomes one combined raster whose pixels carry one bit per
// observer, so a batch holds at most 32 observers. Batch membership is
// derived from the observer's point id alone:
//
//	batch number = point_id / size + 1   (1-indexed)
//	bit index    = point_id % size
//
// which keeps the assignment stable across restarts: a resumed run that
// skips already-processed ids still places every remaining observer in the
// same batch and bit plane as an uninterrupted run would have.
//
// # Usage
//
//	b := observer.NewBatcher(observer.DefaultBatchSize, func(ctx context.Context, batch observer.Batch) error {
//	    return submit(ctx, batch)
//	})
//	stats, err := b.Run(ctx, source, checkpoint)
package observer
