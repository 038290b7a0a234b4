// Package pkg provides the core libraries for intervis inter-island
// visibility analysis.
//
// # Overview
//
// Intervis turns candidate observer points on islands into per-observer
// viewshed polygons and folds the island-to-island intersections of those
// viewsheds into a weighted directed network. The pkg directory is organized
// into three areas:
//
//  1. Decoding - batching observers, engine calls, bit-plane decode
//  2. Network - graph building, decoration, export
//  3. Infrastructure - storage, artifacts, caching, configuration, metrics
//
// # Architecture
//
// The typical data flow through intervis:
//
//	observers dataset
//	         ↓
//	    [observer] package (group into batches of up to 32)
//	         ↓
//	    [engine] package (one combined raster per batch)
//	         ↓
//	    [bitplane] + [vectorize] packages (one polygon per observer)
//	         ↓
//	    viewsheds dataset ... (intersected upstream) ... intersection rows
//	         ↓
//	    [network] package (directed weighted graph)
//	         ↓
//	    [export] package (GeoJSON, DOT/SVG, MongoDB)
//
// # Quick Start
//
// Decode viewsheds and build a network from a SQLite workspace:
//
//	st, _ := store.Open(ctx, store.Config{DSN: "ws/intervis.db"})
//	out := st.Viewsheds("viewsheds")
//	_ = out.Create(ctx)
//
//	runner := viewshed.NewRunner(engine.Horizon{CellSize: 50}, nil, nil, out, logger)
//	rep, _ := runner.Run(ctx, st.Observers("observers"), out, viewshed.Options{})
//
//	b := network.NewBuilder(st.Centroids("centroids"), network.BuilderOptions{})
//	g, _ := b.Build(ctx, st.Intersections("intersections"))
//	_ = export.WriteGeoJSONFile("network.geojson", export.Lines(g))
//
// # Main Packages
//
// [observer] - Observer records and the streaming batcher that groups them by
// point id into batches sharing one raster.
//
// [bitplane] - Combined 32-bit rasters, the BPR codec, and per-observer mask
// extraction.
//
// [engine] - The visibility engine interface, with an external command
// driver and an in-process horizon approximation.
//
// [vectorize] - Mask to MultiPolygon conversion.
//
// [viewshed] - The resumable decode pipeline with checkpoints, artifact
// reuse, and per-observer failure reporting.
//
// [network] - Graph building from intersection rows, island decoration, and
// JSON serialization.
//
// [export] - Line features, GeoJSON, DOT/SVG rendering, spatial queries, and
// the MongoDB sink.
//
// [store] - SQL datasets (SQLite or PostgreSQL) for observers, viewsheds,
// intersections, centroids, islands, and networks.
//
// [artifact] - Filesystem and S3 stores for batch rasters and observer tables.
//
// [cache] - File, Redis, and null caches fronting centroid lookups.
//
// [config] - Workspace configuration from TOML, .env, and environment.
//
// [observability] - Pipeline and graph hooks, with a Prometheus adapter.
//
// [observer]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/observer
// [bitplane]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/bitplane
// [engine]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/engine
// [vectorize]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/vectorize
// [viewshed]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/viewshed
// [network]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/network
// [export]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/export
// [store]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/store
// [artifact]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/artifact
// [cache]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/intervis/pkg/observability
package pkg
