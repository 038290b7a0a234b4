// Package bitplane packs up to 32 per-observer visibility results into one
// raster of signed 32-bit pixels and unpacks them again.
//
// Bit i of every pixel holds the visibility of the observer at batch index i.
// Index 31 is the sign bit, so its mask is math.MinInt32 rather than 1<<31:
//
//	MaskValue(0)  == 1
//	MaskValue(30) == 1 << 30
//	MaskValue(31) == math.MinInt32
//
// A [Raster] is the combined result; [Raster.Decode] extracts a [Mask] for one
// index. [Encode] builds a combined raster from masks and is what a
// visibility engine (or a test fake) uses to produce compliant output.
//
// Rasters are persisted in the BPR1 layout handled by [ReadRaster] and
// [WriteRaster].
package bitplane
