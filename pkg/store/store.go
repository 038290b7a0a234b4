// Package store is the feature store: observers, decoded viewsheds,
// intersection rows, viewshed centroids, islands and the exported network,
// each in its own table with a statically declared schema.
//
// Two drivers are supported through database/sql: SQLite (modernc.org/sqlite,
// the default, one file per workspace) and Postgres (pgx). Table names are
// user supplied dataset names; they are validated with
// errors.ValidateDatasetName and quoted before use.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/matzehuels/intervis/pkg/errors"
)

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects a driver and its data source.
type Config struct {
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string `toml:"dsn"`
}

// Store wraps a database handle with its SQL dialect.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		db  *sql.DB
		err error
		d   dialect
	)
	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.DSN == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "sqlite path required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
		db, err = sql.Open("sqlite", sqliteDSN(cfg.DSN))
		d = sqliteDialect{}
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "postgres dsn required")
		}
		db, err = sql.Open("pgx", cfg.DSN)
		d = postgresDialect{}
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "open %s", cfg.Driver)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "ping %s", d.name())
	}
	return &Store{db: db, dialect: d}, nil
}

// sqliteDSN enables WAL so a streaming reader does not block the
// checkpoint writer on another connection.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)"
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the active driver name.
func (s *Store) Driver() string { return s.dialect.name() }

// table validates and quotes a dataset name.
func table(name string) (string, error) {
	if err := errors.ValidateDatasetName(name); err != nil {
		return "", err
	}
	return `"` + name + `"`, nil
}

// Exists reports whether a dataset table exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := errors.ValidateDatasetName(name); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(s.dialect.tableExistsQuery()), name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreFailed, err, "check dataset %s", name)
	}
	return true, nil
}

// Drop removes a dataset table if it exists.
func (s *Store) Drop(ctx context.Context, name string) error {
	t, err := table(name)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "drop dataset %s", name)
	}
	return nil
}

// require fails with NOT_FOUND when a dataset is missing.
func (s *Store) require(ctx context.Context, name string) error {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "dataset %s does not exist", name)
	}
	return nil
}

// create runs a schema template. %[1]s is the quoted table, %[2]s the bare
// name (for index names); the dialect's type names fill {int}, {real},
// {blob} and {serial}.
func (s *Store) create(ctx context.Context, name, ddl string) error {
	t, err := table(name)
	if err != nil {
		return err
	}
	r := strings.NewReplacer(
		"{int}", s.dialect.intType(),
		"{real}", s.dialect.realType(),
		"{blob}", s.dialect.blobType(),
		"{serial}", s.dialect.serialType(),
	)
	for _, stmt := range strings.Split(r.Replace(ddl), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(stmt, t, name)); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err, "create dataset %s", name)
		}
	}
	return nil
}

// insertAll runs one prepared statement per row inside a transaction.
func (s *Store) insertAll(ctx context.Context, query string, n int, args func(i int) ([]any, error)) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(query))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "prepare")
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err, "insert row %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "commit")
	}
	return nil
}
