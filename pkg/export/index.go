package export

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
)

// Index is an R-tree over line features for bounding-box queries.
type Index struct {
	tree *rtreego.Rtree
	size int
}

type indexedLine struct {
	line LineFeature
	rect rtreego.Rect
}

func (l *indexedLine) Bounds() rtreego.Rect { return l.rect }

// NewIndex builds an index over lines. A line with a non-finite endpoint
// is rejected with INVALID_INPUT.
func NewIndex(lines []LineFeature) (*Index, error) {
	tree := rtreego.NewTree(2, 25, 50)
	for _, l := range lines {
		rect, err := toRect(l.Line().Bound())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d->%d", l.From, l.To)
		}
		tree.Insert(&indexedLine{line: l, rect: rect})
	}
	return &Index{tree: tree, size: len(lines)}, nil
}

// Len returns the number of indexed lines.
func (x *Index) Len() int { return x.size }

// Within returns the lines whose bounds intersect b, ordered by (From, To).
func (x *Index) Within(b orb.Bound) ([]LineFeature, error) {
	rect, err := toRect(b)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "query bounds")
	}
	hits := x.tree.SearchIntersect(rect)
	out := make([]LineFeature, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*indexedLine).line)
	}
	sortLines(out)
	return out, nil
}

// toRect converts a bound to a rectangle. Degenerate axes (vertical or
// horizontal lines, points) get a small positive length since R-tree
// rectangles need non-zero extent.
func toRect(b orb.Bound) (rtreego.Rect, error) {
	const epsilon = 1e-9
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rtreego.Rect{}, fmt.Errorf("non-finite bound %v", b)
		}
	}
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	return rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
}

func sortLines(lines []LineFeature) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].From != lines[j].From {
			return lines[i].From < lines[j].From
		}
		return lines[i].To < lines[j].To
	})
}

// ParseBound parses "minx,miny,maxx,maxy".
func ParseBound(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, errors.New(errors.ErrCodeInvalidInput, "bbox %q: want minx,miny,maxx,maxy", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "bbox %q", s)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return orb.Bound{}, errors.New(errors.ErrCodeInvalidInput, "bbox %q: coordinates must be finite", s)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, errors.New(errors.ErrCodeInvalidInput, "bbox %q: min exceeds max", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
