// Package export turns a finished visibility graph into line features.
//
// [Lines] is the pure transform: one [LineFeature] per edge, a straight
// segment between the edge's two representative points. The remaining
// functions persist or present those features:
//
//   - [WriteGeoJSON] / [ReadGeoJSON] for a FeatureCollection with the
//     island_A, island_B and A_sees_B properties
//   - [ToDOT] / [RenderSVG] for a Graphviz rendering of the graph
//   - [NewIndex] for selecting lines whose bounds intersect a box
//   - [MongoSink] for writing features as documents
//
// None of these mutate the graph.
package export
