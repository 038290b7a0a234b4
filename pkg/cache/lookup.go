package cache

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/network"
	"github.com/matzehuels/intervis/pkg/observability"
)

// CentroidLookup caches positive results of an inner lookup. Absent
// results are never stored, so a pair whose geometry appears later is
// looked up again.
type CentroidLookup struct {
	inner   network.CentroidLookup
	cache   Cache
	keyer   Keyer
	dataset string
}

// NewCentroidLookup wraps inner. A nil cache or keyer falls back to
// NullCache and DefaultKeyer.
func NewCentroidLookup(inner network.CentroidLookup, c Cache, keyer Keyer, dataset string) *CentroidLookup {
	if c == nil {
		c = NewNullCache()
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &CentroidLookup{inner: inner, cache: c, keyer: keyer, dataset: dataset}
}

// Centroid implements network.CentroidLookup.
func (l *CentroidLookup) Centroid(ctx context.Context, from, of int64) (orb.Point, bool, error) {
	key := l.keyer.CentroidKey(l.dataset, from, of)
	if data, hit, err := l.cache.Get(ctx, key); err == nil && hit {
		if p, ok := decodePoint(data); ok {
			observability.Cache().OnCacheHit(ctx, "centroid")
			return p, true, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "centroid")

	p, ok, err := l.inner.Centroid(ctx, from, of)
	if err != nil || !ok {
		return p, ok, err
	}
	data := encodePoint(p)
	if err := l.cache.Set(ctx, key, data, TTLCentroid); err == nil {
		observability.Cache().OnCacheSet(ctx, "centroid", len(data))
	}
	return p, true, nil
}

func encodePoint(p orb.Point) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[:8], math.Float64bits(p.X()))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(p.Y()))
	return b
}

func decodePoint(b []byte) (orb.Point, bool) {
	if len(b) != 16 {
		return orb.Point{}, false
	}
	return orb.Point{
		math.Float64frombits(binary.LittleEndian.Uint64(b[:8])),
		math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
	}, true
}

var _ network.CentroidLookup = (*CentroidLookup)(nil)
