package engine

import (
	"context"
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/bitplane"
	"github.com/matzehuels/intervis/pkg/errors"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

// Horizon is an in-process engine for a bare sea surface: a cell is visible
// from an observer when it lies within the observer's refracted horizon
// distance, the outer radius, and the horizontal sweep. It needs no terrain
// model and is useful for dry runs and tests.
type Horizon struct {
	CellSize float64
	MaxCells int
}

// DefaultMaxCells bounds the raster a Horizon engine will allocate.
const DefaultMaxCells = 1 << 24

// HorizonDistance returns how far an observer at height h can see over a
// sphere with the given refraction coefficient.
func HorizonDistance(h, refraction float64) float64 {
	if h <= 0 {
		return 0
	}
	return math.Sqrt(2 * EarthRadius * h / (1 - refraction))
}

// Compute renders one bit plane per observer on a shared grid.
func (e Horizon) Compute(ctx context.Context, req Request) (*bitplane.Raster, error) {
	if e.CellSize <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "horizon engine cell size must be positive")
	}
	if len(req.Observers) == 0 {
		return nil, errors.New(errors.ErrCodeEngineFailed, "batch %d has no observers", req.Batch)
	}
	maxCells := e.MaxCells
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}

	reach := make([]float64, len(req.Observers))
	var bound orb.Bound
	for i, o := range req.Observers {
		reach[i] = math.Min(req.Params.OuterRadius, HorizonDistance(o.Z+req.Params.ObserverOffset, req.Params.Refraction))
		b := orb.Bound{
			Min: orb.Point{o.X - reach[i], o.Y - reach[i]},
			Max: orb.Point{o.X + reach[i], o.Y + reach[i]},
		}
		if i == 0 {
			bound = b
		} else {
			bound = bound.Union(b)
		}
	}

	width := int(math.Ceil((bound.Max.X()-bound.Min.X())/e.CellSize)) + 1
	height := int(math.Ceil((bound.Max.Y()-bound.Min.Y())/e.CellSize)) + 1
	if width*height > maxCells {
		return nil, errors.New(errors.ErrCodeEngineFailed,
			"batch %d raster %dx%d exceeds %d cells", req.Batch, width, height, maxCells)
	}

	origin := orb.Point{bound.Min.X(), bound.Max.Y()}
	r := bitplane.NewRaster(width, height, origin, e.CellSize)
	for i, o := range req.Observers {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "batch %d cancelled", req.Batch)
		}
		mv, err := bitplane.MaskValue(o.Index)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "batch %d", req.Batch)
		}
		for row := 0; row < height; row++ {
			cy := origin.Y() - (float64(row)+0.5)*e.CellSize
			for col := 0; col < width; col++ {
				cx := origin.X() + (float64(col)+0.5)*e.CellSize
				if e.sees(o, reach[i], cx, cy, req.Params) {
					r.Pixels[row*width+col] |= mv
				}
			}
		}
	}
	return r, nil
}

func (e Horizon) sees(o RequestObserver, reach, x, y float64, p Params) bool {
	dx, dy := x-o.X, y-o.Y
	if math.Hypot(dx, dy) > reach {
		return false
	}
	if p.HorizontalStart <= 0 && p.HorizontalEnd >= 360 {
		return true
	}
	az := math.Mod(math.Atan2(dx, dy)*180/math.Pi+360, 360)
	return az >= p.HorizontalStart && az <= p.HorizontalEnd
}

var _ Engine = Horizon{}
