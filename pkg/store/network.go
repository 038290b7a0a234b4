package store

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/export"
)

const networkDDL = `
CREATE TABLE %[1]s (
	island_a {int} NOT NULL,
	island_b {int} NOT NULL,
	weight {real} NOT NULL,
	geom {blob} NOT NULL,
	PRIMARY KEY (island_a, island_b)
)`

// NetworkTable is an exported visibility network, one line per edge.
type NetworkTable struct {
	s    *Store
	name string
}

// Network returns the network dataset called name.
func (s *Store) Network(name string) *NetworkTable {
	return &NetworkTable{s: s, name: name}
}

// Write creates the table and stores lines. An existing dataset is an
// ALREADY_EXISTS error unless overwrite is set, in which case it is
// replaced.
func (t *NetworkTable) Write(ctx context.Context, lines []export.LineFeature, overwrite bool) error {
	exists, err := t.s.Exists(ctx, t.name)
	if err != nil {
		return err
	}
	if exists {
		if !overwrite {
			return errors.New(errors.ErrCodeAlreadyExists, "dataset %s already exists", t.name)
		}
		if err := t.s.Drop(ctx, t.name); err != nil {
			return err
		}
	}
	if err := t.s.create(ctx, t.name, networkDDL); err != nil {
		return err
	}

	q, _ := table(t.name)
	return t.s.insertAll(ctx,
		"INSERT INTO "+q+" (island_a, island_b, weight, geom) VALUES (?, ?, ?, ?)",
		len(lines), func(i int) ([]any, error) {
			l := lines[i]
			geom, err := wkb.Marshal(l.Line())
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode line %d->%d", l.From, l.To)
			}
			return []any{l.From, l.To, l.Weight, geom}, nil
		})
}

// Read loads every line ordered by (island_a, island_b).
func (t *NetworkTable) Read(ctx context.Context) ([]export.LineFeature, error) {
	if err := t.s.require(ctx, t.name); err != nil {
		return nil, err
	}
	q, _ := table(t.name)
	rows, err := t.s.db.QueryContext(ctx,
		"SELECT island_a, island_b, weight, geom FROM "+q+" ORDER BY island_a, island_b")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "query %s", t.name)
	}
	defer func() { _ = rows.Close() }()

	var out []export.LineFeature
	for rows.Next() {
		var (
			l    export.LineFeature
			geom []byte
		)
		if err := rows.Scan(&l.From, &l.To, &l.Weight, &geom); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "scan %s", t.name)
		}
		g, err := wkb.Unmarshal(geom)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecodeFailed, err, "geometry of %d->%d", l.From, l.To)
		}
		ls, ok := g.(orb.LineString)
		if !ok || len(ls) != 2 {
			return nil, errors.New(errors.ErrCodeDecodeFailed, "geometry of %d->%d is not a two-point line", l.From, l.To)
		}
		l.Origin, l.Dest = ls[0], ls[1]
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "read %s", t.name)
	}
	return out, nil
}
