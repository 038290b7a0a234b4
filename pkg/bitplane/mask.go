package bitplane

import "github.com/paulmach/orb"

// Mask is one observer's boolean visibility grid.
type Mask struct {
	Width    int
	Height   int
	Origin   orb.Point
	CellSize float64
	Cells    []bool
}

// NewMask allocates an all-invisible mask.
func NewMask(width, height int, origin orb.Point, cellSize float64) *Mask {
	return &Mask{
		Width:    width,
		Height:   height,
		Origin:   origin,
		CellSize: cellSize,
		Cells:    make([]bool, width*height),
	}
}

// At reports whether cell (col, row) is visible.
func (m *Mask) At(col, row int) bool {
	if col < 0 || row < 0 || col >= m.Width || row >= m.Height {
		return false
	}
	return m.Cells[row*m.Width+col]
}

// Set marks cell (col, row).
func (m *Mask) Set(col, row int, visible bool) {
	m.Cells[row*m.Width+col] = visible
}

// Count returns the number of visible cells.
func (m *Mask) Count() int {
	n := 0
	for _, c := range m.Cells {
		if c {
			n++
		}
	}
	return n
}

// Equal reports whether two masks cover the same grid with the same cells.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height || !m.Origin.Equal(o.Origin) || m.CellSize != o.CellSize {
		return false
	}
	for i := range m.Cells {
		if m.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}

// CellBound returns the world extent of cell (col, row).
func (m *Mask) CellBound(col, row int) orb.Bound {
	x0 := m.Origin.X() + float64(col)*m.CellSize
	y1 := m.Origin.Y() - float64(row)*m.CellSize
	return orb.Bound{
		Min: orb.Point{x0, y1 - m.CellSize},
		Max: orb.Point{x0 + m.CellSize, y1},
	}
}
