package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/network"
)

const centroidsDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	island_id {int} NOT NULL,
	intersected_island_id {int} NOT NULL,
	x {real} NOT NULL,
	y {real} NOT NULL
);
CREATE INDEX IF NOT EXISTS "%[2]s_pair" ON %[1]s (island_id, intersected_island_id)`

// Centroid is one row of a viewshed centroid dataset: the representative
// point of island Of's area visible from island From.
type Centroid struct {
	From  int64
	Of    int64
	Point orb.Point
}

// CentroidTable implements network.CentroidLookup over a centroid dataset.
type CentroidTable struct {
	s    *Store
	name string
}

// Centroids returns the centroid dataset called name.
func (s *Store) Centroids(name string) *CentroidTable {
	return &CentroidTable{s: s, name: name}
}

// Name returns the dataset name.
func (t *CentroidTable) Name() string { return t.name }

// Create creates the table if it does not exist.
func (t *CentroidTable) Create(ctx context.Context) error {
	return t.s.create(ctx, t.name, centroidsDDL)
}

// Insert appends rows in one transaction.
func (t *CentroidTable) Insert(ctx context.Context, rows []Centroid) error {
	q, err := table(t.name)
	if err != nil {
		return err
	}
	return t.s.insertAll(ctx,
		"INSERT INTO "+q+" (island_id, intersected_island_id, x, y) VALUES (?, ?, ?, ?)",
		len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.From, r.Of, r.Point.X(), r.Point.Y()}, nil
		})
}

// Centroid returns the first matching row. A missing row is reported as
// ok == false, never as an error.
func (t *CentroidTable) Centroid(ctx context.Context, from, of int64) (orb.Point, bool, error) {
	q, err := table(t.name)
	if err != nil {
		return orb.Point{}, false, err
	}
	var x, y float64
	err = t.s.db.QueryRowContext(ctx, t.s.dialect.rebind(
		"SELECT x, y FROM "+q+" WHERE island_id = ? AND intersected_island_id = ? LIMIT 1"),
		from, of).Scan(&x, &y)
	if err == sql.ErrNoRows {
		return orb.Point{}, false, nil
	}
	if err != nil {
		return orb.Point{}, false, errors.Wrap(errors.ErrCodeStoreFailed, err, "centroid %d/%d", from, of)
	}
	return orb.Point{x, y}, true, nil
}

// Fingerprint summarizes the dataset's current contents. It changes when
// the dataset is rebuilt with different rows, so cached lookups can be
// keyed on it.
func (t *CentroidTable) Fingerprint(ctx context.Context) (string, error) {
	if err := t.s.require(ctx, t.name); err != nil {
		return "", err
	}
	q, err := table(t.name)
	if err != nil {
		return "", err
	}
	var n int64
	var sums [6]float64
	err = t.s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(island_id), 0), COALESCE(SUM(intersected_island_id), 0),
		COALESCE(SUM(x), 0), COALESCE(SUM(y), 0),
		COALESCE(SUM(x * intersected_island_id), 0), COALESCE(SUM(y * island_id), 0)
		FROM `+q).Scan(&n, &sums[0], &sums[1], &sums[2], &sums[3], &sums[4], &sums[5])
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStoreFailed, err, "fingerprint %s", t.name)
	}
	return fmt.Sprintf("%d:%g:%g:%g:%g:%g:%g", n, sums[0], sums[1], sums[2], sums[3], sums[4], sums[5]), nil
}

var _ network.CentroidLookup = (*CentroidTable)(nil)
