package observer

import (
	"github.com/paulmach/orb"
)

// DefaultBatchSize is the number of observers that fit in one 32-bit pixel.
const DefaultBatchSize = 32

// MaxBatchSize is the largest batch a combined raster can encode.
const MaxBatchSize = 32

// Observer is a candidate viewpoint on an island.
// Observers are produced upstream and never mutated here.
type Observer struct {
	PointID       int64     `json:"point_id"`
	IslandID      int64     `json:"island_id"`
	SplitIslandID int64     `json:"split_island_id"`
	GridID        int64     `json:"grid_id"`
	Z             float64   `json:"z"`
	Shape         orb.Point `json:"shape"`
}

// BatchNumber returns the 1-indexed batch that pointID belongs to.
func BatchNumber(pointID int64, size int) int {
	return int(pointID/int64(size)) + 1
}

// IndexInBatch returns the bit plane assigned to pointID within its batch.
func IndexInBatch(pointID int64, size int) int {
	return int(pointID % int64(size))
}

// Batch is a sealed group of observers sharing one combined raster.
type Batch struct {
	Number    int        `json:"batch"`
	Size      int        `json:"size"`
	Observers []Observer `json:"observers"`
}

// Len returns the number of observers in the batch.
func (b Batch) Len() int { return len(b.Observers) }

// Index returns the bit plane of the i-th member.
func (b Batch) Index(i int) int {
	return IndexInBatch(b.Observers[i].PointID, b.Size)
}

// Indices returns the bit plane of every member, in member order.
func (b Batch) Indices() []int {
	out := make([]int, len(b.Observers))
	for i := range b.Observers {
		out[i] = b.Index(i)
	}
	return out
}

// MaxPointID returns the largest point id in the batch, or -1 when empty.
func (b Batch) MaxPointID() int64 {
	if len(b.Observers) == 0 {
		return -1
	}
	return b.Observers[len(b.Observers)-1].PointID
}
