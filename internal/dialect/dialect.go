// Package dialect isolates every SQL-surface difference the four
// supported database families impose: connection scheme, column DDL,
// upsert-merge syntax, and batch-size limits (spec §4.4, §9 "Dialect
// branching").
package dialect

import (
	"fmt"
	"strings"
)

// Dialect identifies one of the supported database families.
type Dialect string

const (
	Postgres  Dialect = "postgres"
	MySQL     Dialect = "mysql"
	SQLServer Dialect = "sqlserver"
	SQLite    Dialect = "sqlite"
)

// FromURL infers the Dialect from a database_url's scheme (spec §6).
func FromURL(databaseURL string) (Dialect, error) {
	lower := strings.ToLower(databaseURL)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Postgres, nil
	case strings.HasPrefix(lower, "mysql://"):
		return MySQL, nil
	case strings.HasPrefix(lower, "sqlserver://"):
		return SQLServer, nil
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return SQLite, nil
	default:
		return "", fmt.Errorf("cannot infer database dialect from url %q", databaseURL)
	}
}

// DriverName returns the database/sql driver name registered for d.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case MySQL:
		return "mysql"
	case SQLServer:
		return "sqlserver"
	case SQLite:
		return "sqlite3"
	default:
		return ""
	}
}

// Embedded reports whether d runs as a single-process embedded database
// that requires a serialized (pool size 1) connection (spec §5).
func (d Dialect) Embedded() bool {
	return d == SQLite
}

// QuoteIdent quotes an identifier per d's quoting convention.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case SQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default: // Postgres, SQLite
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// Placeholder returns the positional bind-parameter token for argument
// index i (1-based) under d's driver conventions.
func (d Dialect) Placeholder(i int) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("$%d", i)
	case SQLServer: // go-mssqldb's "sqlserver" driver takes ordinal @pN parameters
		return fmt.Sprintf("@p%d", i)
	default: // MySQL, SQLite use "?"
		return "?"
	}
}
