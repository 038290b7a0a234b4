package cache

// ScopedKeyer wraps a Keyer with a prefix, so several workspaces can share
// one Redis instance without colliding.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "ws:"+Hash([]byte(workspace))[:12]+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// CentroidKey generates a prefixed centroid key.
func (k *ScopedKeyer) CentroidKey(dataset string, from, of int64) string {
	return k.prefix + k.inner.CentroidKey(dataset, from, of)
}

// IslandKey generates a prefixed island key.
func (k *ScopedKeyer) IslandKey(dataset string, id int64) string {
	return k.prefix + k.inner.IslandKey(dataset, id)
}
