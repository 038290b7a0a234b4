package store

import (
	"context"
	"database/sql"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/network"
)

const islandsDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	island_id {int} PRIMARY KEY,
	x {real} NOT NULL,
	y {real} NOT NULL,
	area {real} NOT NULL,
	perimeter {real} NOT NULL
)`

// IslandTable implements network.IslandLookup over an islands dataset.
type IslandTable struct {
	s    *Store
	name string
}

// Islands returns the islands dataset called name.
func (s *Store) Islands(name string) *IslandTable {
	return &IslandTable{s: s, name: name}
}

// Create creates the table if it does not exist.
func (t *IslandTable) Create(ctx context.Context) error {
	return t.s.create(ctx, t.name, islandsDDL)
}

// Insert appends islands in one transaction.
func (t *IslandTable) Insert(ctx context.Context, rows []network.IslandInfo) error {
	q, err := table(t.name)
	if err != nil {
		return err
	}
	return t.s.insertAll(ctx,
		"INSERT INTO "+q+" (island_id, x, y, area, perimeter) VALUES (?, ?, ?, ?, ?)",
		len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.Centroid.X(), r.Centroid.Y(), r.Area, r.Perimeter}, nil
		})
}

// Island looks up one island.
func (t *IslandTable) Island(ctx context.Context, id int64) (network.IslandInfo, bool, error) {
	q, err := table(t.name)
	if err != nil {
		return network.IslandInfo{}, false, err
	}
	info := network.IslandInfo{ID: id}
	var x, y float64
	err = t.s.db.QueryRowContext(ctx, t.s.dialect.rebind(
		"SELECT x, y, area, perimeter FROM "+q+" WHERE island_id = ?"), id).
		Scan(&x, &y, &info.Area, &info.Perimeter)
	if err == sql.ErrNoRows {
		return network.IslandInfo{}, false, nil
	}
	if err != nil {
		return network.IslandInfo{}, false, errors.Wrap(errors.ErrCodeStoreFailed, err, "island %d", id)
	}
	info.Centroid = orb.Point{x, y}
	return info, true, nil
}

var _ network.IslandLookup = (*IslandTable)(nil)
