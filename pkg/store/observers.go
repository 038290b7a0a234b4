package store

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/observer"
)

const observersDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	point_id {int} PRIMARY KEY,
	island_id {int} NOT NULL,
	split_island_id {int} NOT NULL,
	grid_id {int} NOT NULL,
	z {real} NOT NULL,
	x {real} NOT NULL,
	y {real} NOT NULL
)`

// ObserverTable is an observers dataset. It implements observer.Source.
type ObserverTable struct {
	s    *Store
	name string
}

// Observers returns the observers dataset called name.
func (s *Store) Observers(name string) *ObserverTable {
	return &ObserverTable{s: s, name: name}
}

// Create creates the table if it does not exist.
func (t *ObserverTable) Create(ctx context.Context) error {
	return t.s.create(ctx, t.name, observersDDL)
}

// Insert appends observers in one transaction.
func (t *ObserverTable) Insert(ctx context.Context, obs []observer.Observer) error {
	q, err := table(t.name)
	if err != nil {
		return err
	}
	return t.s.insertAll(ctx,
		"INSERT INTO "+q+" (point_id, island_id, split_island_id, grid_id, z, x, y) VALUES (?, ?, ?, ?, ?, ?, ?)",
		len(obs), func(i int) ([]any, error) {
			o := obs[i]
			return []any{o.PointID, o.IslandID, o.SplitIslandID, o.GridID, o.Z, o.Shape.X(), o.Shape.Y()}, nil
		})
}

// Observers streams observers with point_id > after in ascending order.
func (t *ObserverTable) Observers(ctx context.Context, after int64, fn func(observer.Observer) error) error {
	if err := t.s.require(ctx, t.name); err != nil {
		return err
	}
	q, _ := table(t.name)
	rows, err := t.s.db.QueryContext(ctx, t.s.dialect.rebind(
		"SELECT point_id, island_id, split_island_id, grid_id, z, x, y FROM "+q+
			" WHERE point_id > ? ORDER BY point_id"), after)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "query %s", t.name)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			o    observer.Observer
			x, y float64
		)
		if err := rows.Scan(&o.PointID, &o.IslandID, &o.SplitIslandID, &o.GridID, &o.Z, &x, &y); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err, "scan %s", t.name)
		}
		o.Shape = orb.Point{x, y}
		if err := fn(o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "read %s", t.name)
	}
	return nil
}

var _ observer.Source = (*ObserverTable)(nil)
