// Package network builds the directed inter-island visibility graph.
//
// An edge (a, b) means part of island b is visible from island a; its weight
// is the total visible area accumulated over every intersection row for that
// pair. Each edge carries two representative points fixed at creation: a
// point on a's area visible from b (Origin) and a point on b's area visible
// from a (Dest).
//
// # Building
//
// A [Builder] folds a stream of [Triple] rows in one pass:
//
//	b := network.NewBuilder(centroids, network.BuilderOptions{Logger: logger})
//	g, err := b.Build(ctx, triples)
//
// Rows with a == b are dropped. Rows for an existing edge only add area.
// Rows for a new pair look up both representative points; when either is
// absent the row is dropped and the pair is not remembered, so a later row
// for the same pair is attempted again. Accumulation is commutative, so
// input order does not affect the result.
//
// # Serialization
//
// Graphs round-trip through JSON with [MarshalGraph], [WriteGraphFile] and
// [ReadGraphFile].
package network
