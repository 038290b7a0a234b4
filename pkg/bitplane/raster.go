package bitplane

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
)

// Planes is the number of bit planes in one pixel.
const Planes = 32

// Raster is a combined visibility raster. Pixels are stored row-major from
// the upper-left corner; Origin is the upper-left corner in world units.
type Raster struct {
	Width    int
	Height   int
	Origin   orb.Point
	CellSize float64
	Pixels   []int32
}

// NewRaster allocates a zeroed raster.
func NewRaster(width, height int, origin orb.Point, cellSize float64) *Raster {
	return &Raster{
		Width:    width,
		Height:   height,
		Origin:   origin,
		CellSize: cellSize,
		Pixels:   make([]int32, width*height),
	}
}

// Validate checks the raster's dimensions against its pixel buffer.
func (r *Raster) Validate() error {
	if r == nil {
		return errors.New(errors.ErrCodeDecodeFailed, "nil raster")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return errors.New(errors.ErrCodeDecodeFailed, "invalid raster size %dx%d", r.Width, r.Height)
	}
	if len(r.Pixels) != r.Width*r.Height {
		return errors.New(errors.ErrCodeDecodeFailed,
			"raster has %d pixels, want %d", len(r.Pixels), r.Width*r.Height)
	}
	if r.CellSize <= 0 || math.IsNaN(r.CellSize) || math.IsInf(r.CellSize, 0) {
		return errors.New(errors.ErrCodeDecodeFailed, "invalid cell size %v", r.CellSize)
	}
	return nil
}

// Bound returns the world extent covered by the raster.
func (r *Raster) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.Origin.X(), r.Origin.Y() - float64(r.Height)*r.CellSize},
		Max: orb.Point{r.Origin.X() + float64(r.Width)*r.CellSize, r.Origin.Y()},
	}
}

// MaskValue returns the pixel bit pattern for a batch index.
func MaskValue(index int) (int32, error) {
	switch {
	case index < 0 || index >= Planes:
		return 0, errors.New(errors.ErrCodeDecodeFailed, "bit plane index %d out of range [0,%d)", index, Planes)
	case index == Planes-1:
		return math.MinInt32, nil
	default:
		return int32(1) << uint(index), nil
	}
}

// Decode extracts the visibility mask of the observer at index.
func (r *Raster) Decode(index int) (*Mask, error) {
	mv, err := MaskValue(index)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	m := &Mask{
		Width:    r.Width,
		Height:   r.Height,
		Origin:   r.Origin,
		CellSize: r.CellSize,
		Cells:    make([]bool, len(r.Pixels)),
	}
	for i, px := range r.Pixels {
		m.Cells[i] = px&mv != 0
	}
	return m, nil
}

// Encode combines masks into one raster. masks[i] occupies bit plane i; nil
// entries leave their plane clear. All non-nil masks must share a grid.
func Encode(masks []*Mask) (*Raster, error) {
	if len(masks) > Planes {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d masks exceed %d bit planes", len(masks), Planes)
	}

	var r *Raster
	for i, m := range masks {
		if m == nil {
			continue
		}
		if r == nil {
			r = NewRaster(m.Width, m.Height, m.Origin, m.CellSize)
		} else if !r.sameGrid(m) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "mask %d does not share the raster grid", i)
		}
		if len(m.Cells) != len(r.Pixels) {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"mask %d has %d cells, want %d", i, len(m.Cells), len(r.Pixels))
		}
		mv, _ := MaskValue(i)
		for j, visible := range m.Cells {
			if visible {
				r.Pixels[j] |= mv
			}
		}
	}
	if r == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no masks to encode")
	}
	return r, nil
}

func (r *Raster) sameGrid(m *Mask) bool {
	return r.Width == m.Width && r.Height == m.Height &&
		r.Origin.Equal(m.Origin) && r.CellSize == m.CellSize
}
