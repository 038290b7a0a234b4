// Package vectorize turns boolean visibility masks into polygons.
package vectorize

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/bitplane"
	"github.com/matzehuels/intervis/pkg/errors"
)

// Vectorizer converts a mask into polygon geometry in world coordinates.
// An all-invisible mask yields an empty MultiPolygon, not an error.
type Vectorizer interface {
	Vectorize(ctx context.Context, m *bitplane.Mask) (orb.MultiPolygon, error)
}

// Func adapts a function to the Vectorizer interface.
type Func func(ctx context.Context, m *bitplane.Mask) (orb.MultiPolygon, error)

// Vectorize calls f.
func (f Func) Vectorize(ctx context.Context, m *bitplane.Mask) (orb.MultiPolygon, error) {
	return f(ctx, m)
}

// Runs vectorizes a mask into axis-aligned rectangles. Horizontal runs of
// visible cells are merged row by row, and runs with the same column span in
// consecutive rows are merged into one rectangle.
type Runs struct{}

type run struct {
	start, end int // columns, end exclusive
	top        int // first row
}

// Vectorize implements Vectorizer.
func (Runs) Vectorize(ctx context.Context, m *bitplane.Mask) (orb.MultiPolygon, error) {
	if m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Cells) != m.Width*m.Height {
		return nil, errors.New(errors.ErrCodeVectorizeFailed, "malformed mask")
	}

	out := orb.MultiPolygon{}
	open := map[[2]int]run{}
	for row := 0; row <= m.Height; row++ {
		if row%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(errors.ErrCodeVectorizeFailed, err, "vectorize cancelled")
			}
		}

		next := map[[2]int]run{}
		if row < m.Height {
			for col := 0; col < m.Width; {
				if !m.At(col, row) {
					col++
					continue
				}
				start := col
				for col < m.Width && m.At(col, row) {
					col++
				}
				key := [2]int{start, col}
				if r, ok := open[key]; ok {
					next[key] = r
					delete(open, key)
				} else {
					next[key] = run{start: start, end: col, top: row}
				}
			}
		}
		for _, r := range sortedRuns(open) {
			out = append(out, rect(m, r, row))
		}
		open = next
	}
	return out, nil
}

// sortedRuns orders closed runs by top row then column so output is stable.
func sortedRuns(rs map[[2]int]run) []run {
	out := make([]run, 0, len(rs))
	for _, r := range rs {
		out = append(out, r)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b run) bool {
	if a.top != b.top {
		return a.top < b.top
	}
	return a.start < b.start
}

// rect builds the polygon for a run spanning rows [r.top, bottom).
func rect(m *bitplane.Mask, r run, bottom int) orb.Polygon {
	x0 := m.Origin.X() + float64(r.start)*m.CellSize
	x1 := m.Origin.X() + float64(r.end)*m.CellSize
	y0 := m.Origin.Y() - float64(r.top)*m.CellSize
	y1 := m.Origin.Y() - float64(bottom)*m.CellSize
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}, {x0, y0},
	}}
}

var _ Vectorizer = Runs{}
