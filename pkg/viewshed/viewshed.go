package viewshed

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/observer"
)

// Viewshed is one observer's decoded visibility polygon.
type Viewshed struct {
	IslandID      int64
	SplitIslandID int64
	GridID        int64
	PointID       int64
	Geometry      orb.MultiPolygon
}

// Sink durably appends decoded viewsheds. Rows are appended in ascending
// point id order, so the sink's maximum point id is the resume checkpoint.
// Append must not retain rows after it returns.
type Sink interface {
	Append(ctx context.Context, rows []Viewshed) error
}

// Failure records an observer whose decode or vectorization failed.
type Failure struct {
	Batch         int
	Index         int
	IslandID      int64
	SplitIslandID int64
	GridID        int64
	PointID       int64
	Err           error
}

func newFailure(batch, index int, o observer.Observer, err error) Failure {
	return Failure{
		Batch:         batch,
		Index:         index,
		IslandID:      o.IslandID,
		SplitIslandID: o.SplitIslandID,
		GridID:        o.GridID,
		PointID:       o.PointID,
		Err:           err,
	}
}
