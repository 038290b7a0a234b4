package store

import (
	"context"
	"database/sql"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/observer"
	"github.com/matzehuels/intervis/pkg/viewshed"
)

const viewshedsDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id {serial},
	island_id {int} NOT NULL,
	split_island_id {int} NOT NULL,
	grid_id {int} NOT NULL,
	point_id {int} NOT NULL,
	geom {blob} NOT NULL
);
CREATE INDEX IF NOT EXISTS "%[2]s_point_id" ON %[1]s (point_id)`

// ViewshedTable is the decoded viewshed output. It is the pipeline's Sink
// and its resume Checkpointer.
type ViewshedTable struct {
	s    *Store
	name string
}

// Viewsheds returns the viewshed dataset called name.
func (s *Store) Viewsheds(name string) *ViewshedTable {
	return &ViewshedTable{s: s, name: name}
}

// Create creates the table if it does not exist.
func (t *ViewshedTable) Create(ctx context.Context) error {
	return t.s.create(ctx, t.name, viewshedsDDL)
}

// MaxPointID returns the largest point id written so far.
func (t *ViewshedTable) MaxPointID(ctx context.Context) (int64, bool, error) {
	ok, err := t.s.Exists(ctx, t.name)
	if err != nil || !ok {
		return 0, false, err
	}
	q, _ := table(t.name)
	var maxID sql.NullInt64
	if err := t.s.db.QueryRowContext(ctx, "SELECT MAX(point_id) FROM "+q).Scan(&maxID); err != nil {
		return 0, false, errors.Wrap(errors.ErrCodeStoreFailed, err, "checkpoint of %s", t.name)
	}
	return maxID.Int64, maxID.Valid, nil
}

// Append writes rows in one transaction.
func (t *ViewshedTable) Append(ctx context.Context, rows []viewshed.Viewshed) error {
	if len(rows) == 0 {
		return nil
	}
	q, err := table(t.name)
	if err != nil {
		return err
	}
	return t.s.insertAll(ctx,
		"INSERT INTO "+q+" (island_id, split_island_id, grid_id, point_id, geom) VALUES (?, ?, ?, ?, ?)",
		len(rows), func(i int) ([]any, error) {
			r := rows[i]
			geom, err := wkb.Marshal(r.Geometry)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode viewshed %d", r.PointID)
			}
			return []any{r.IslandID, r.SplitIslandID, r.GridID, r.PointID, geom}, nil
		})
}

// Each streams every viewshed ordered by point id.
func (t *ViewshedTable) Each(ctx context.Context, fn func(viewshed.Viewshed) error) error {
	if err := t.s.require(ctx, t.name); err != nil {
		return err
	}
	q, _ := table(t.name)
	rows, err := t.s.db.QueryContext(ctx,
		"SELECT island_id, split_island_id, grid_id, point_id, geom FROM "+q+" ORDER BY point_id, id")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "query %s", t.name)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			v    viewshed.Viewshed
			geom []byte
		)
		if err := rows.Scan(&v.IslandID, &v.SplitIslandID, &v.GridID, &v.PointID, &geom); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err, "scan %s", t.name)
		}
		g, err := wkb.Unmarshal(geom)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDecodeFailed, err, "geometry of point %d", v.PointID)
		}
		switch g := g.(type) {
		case orb.MultiPolygon:
			v.Geometry = g
		case orb.Polygon:
			v.Geometry = orb.MultiPolygon{g}
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "read %s", t.name)
	}
	return nil
}

var (
	_ viewshed.Sink         = (*ViewshedTable)(nil)
	_ observer.Checkpointer = (*ViewshedTable)(nil)
)
