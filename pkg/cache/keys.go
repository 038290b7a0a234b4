package cache

import "fmt"

// Keyer derives cache keys for lookups.
type Keyer interface {
	// CentroidKey keys the representative point of island of's area
	// visible from island from, within one centroid dataset.
	CentroidKey(dataset string, from, of int64) string

	// IslandKey keys one island's attributes within an islands dataset.
	IslandKey(dataset string, id int64) string
}

// DefaultKeyer produces readable keys without scoping.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// CentroidKey implements Keyer.
func (DefaultKeyer) CentroidKey(dataset string, from, of int64) string {
	return fmt.Sprintf("centroid:%s:%d:%d", dataset, from, of)
}

// IslandKey implements Keyer.
func (DefaultKeyer) IslandKey(dataset string, id int64) string {
	return fmt.Sprintf("island:%s:%d", dataset, id)
}

// VersionedDataset names one version of a dataset for cache keys. Entries
// cached under an older fingerprint are never read again once the dataset
// changes.
func VersionedDataset(name, fingerprint string) string {
	return name + "@" + Hash([]byte(fingerprint))[:12]
}
