// Package buildinfo reports the version stamped into the intervis binary
// and the raster artifact format it reads and writes.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/intervis/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/intervis/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/intervis/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/intervis
package buildinfo

import (
	"fmt"

	"github.com/matzehuels/intervis/pkg/bitplane"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// RasterFormat names the batch raster layout this build understands.
func RasterFormat() string { return string(bitplane.Magic[:]) }

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\nraster: %s", Version, Commit, Date, RasterFormat())
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\nraster: %s\n", Version, Commit, Date, RasterFormat())
}
