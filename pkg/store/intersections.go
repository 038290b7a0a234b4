package store

import (
	"context"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/network"
)

const intersectionsDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	island_a {int} NOT NULL,
	island_b {int} NOT NULL,
	area {real} NOT NULL
)`

// IntersectionTable holds (island_a, island_b, area) rows: area of island_b
// covered by viewsheds computed from island_a. It implements
// network.TripleSource.
type IntersectionTable struct {
	s    *Store
	name string
}

// Intersections returns the intersection dataset called name.
func (s *Store) Intersections(name string) *IntersectionTable {
	return &IntersectionTable{s: s, name: name}
}

// Create creates the table if it does not exist.
func (t *IntersectionTable) Create(ctx context.Context) error {
	return t.s.create(ctx, t.name, intersectionsDDL)
}

// Insert appends rows in one transaction.
func (t *IntersectionTable) Insert(ctx context.Context, rows []network.Triple) error {
	q, err := table(t.name)
	if err != nil {
		return err
	}
	return t.s.insertAll(ctx, "INSERT INTO "+q+" (island_a, island_b, area) VALUES (?, ?, ?)",
		len(rows), func(i int) ([]any, error) {
			return []any{rows[i].A, rows[i].B, rows[i].Area}, nil
		})
}

// Triples streams every row in storage order. The cursor is closed on
// every return path, including errors returned by fn.
func (t *IntersectionTable) Triples(ctx context.Context, fn func(network.Triple) error) error {
	if err := t.s.require(ctx, t.name); err != nil {
		return err
	}
	q, _ := table(t.name)
	rows, err := t.s.db.QueryContext(ctx, "SELECT island_a, island_b, area FROM "+q)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "query %s", t.name)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tr network.Triple
		if err := rows.Scan(&tr.A, &tr.B, &tr.Area); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err, "scan %s", t.name)
		}
		if err := fn(tr); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "read %s", t.name)
	}
	return nil
}

var _ network.TripleSource = (*IntersectionTable)(nil)
