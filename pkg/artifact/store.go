// Package artifact stores per-batch artifacts: the combined raster returned
// by the visibility engine and the observer table it was computed for.
//
// Keys are flat names such as "viewshed_0007.bpr". Drivers: a local
// directory ([FS]), an S3-compatible bucket ([S3]) and [Memory] for tests.
package artifact

import (
	"context"
	"fmt"
)

// Store holds artifact blobs by key. Put replaces existing content.
// Get returns a NOT_FOUND error for missing keys.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// RasterKey names the combined raster of batch n.
func RasterKey(n int) string { return fmt.Sprintf("viewshed_%04d.bpr", n) }

// ObserversKey names the observer table of batch n.
func ObserversKey(n int) string { return fmt.Sprintf("observers_%04d.json", n) }
