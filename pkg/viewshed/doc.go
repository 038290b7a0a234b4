// Package viewshed runs the resumable observer pipeline.
//
// A [Runner] streams observers from an [observer.Source], seals them into
// batches of at most 32, submits each batch to an [engine.Engine] once,
// and decodes every member's bit plane into a polygon that is appended to
// a [Sink]:
//
//	observers -> Batcher -> Engine -> bit-plane decode -> Vectorizer -> Sink
//
// # Failure handling
//
// An engine failure aborts the run with ENGINE_FAILED. A decode or
// vectorization failure only affects its observer: it is logged, recorded
// in [Report.Failures] and the batch continues.
//
// # Resume
//
// The sink's largest written point id is the checkpoint. Decoded rows are
// flushed only at batch boundaries, every [Options.SaveEvery] observers and
// on every exit path, so a run that stops early never leaves a half-written
// batch behind and a re-run skips exactly what is durable. Batches whose
// artifacts already exist are decoded from the stored raster instead of
// calling the engine again, unless [Options.Overwrite] is set.
package viewshed
