package store

import (
	"strconv"
	"strings"
)

type dialect interface {
	name() string
	rebind(query string) string
	intType() string
	realType() string
	blobType() string
	serialType() string
	tableExistsQuery() string
}

type sqliteDialect struct{}

func (sqliteDialect) name() string           { return DriverSQLite }
func (sqliteDialect) rebind(q string) string { return q }
func (sqliteDialect) intType() string        { return "INTEGER" }
func (sqliteDialect) realType() string       { return "REAL" }
func (sqliteDialect) blobType() string       { return "BLOB" }
func (sqliteDialect) serialType() string     { return "INTEGER PRIMARY KEY AUTOINCREMENT" }
func (sqliteDialect) tableExistsQuery() string {
	return `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`
}

type postgresDialect struct{}

func (postgresDialect) name() string       { return DriverPostgres }
func (postgresDialect) intType() string    { return "BIGINT" }
func (postgresDialect) realType() string   { return "DOUBLE PRECISION" }
func (postgresDialect) blobType() string   { return "BYTEA" }
func (postgresDialect) serialType() string { return "BIGSERIAL PRIMARY KEY" }
func (postgresDialect) tableExistsQuery() string {
	return `SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
}

// rebind rewrites ? placeholders to $1, $2, ...
func (postgresDialect) rebind(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
