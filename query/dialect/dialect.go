// Package dialect describes the SQL dialects sqlkit targets.
package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
	"github.com/satishbabariya/sqlkit/query/params"
)

// Dialect names a SQL dialect.
type Dialect string

// Supported dialects.
const (
	Postgres    Dialect = "postgres"
	CockroachDB Dialect = "cockroachdb"
	MySQL       Dialect = "mysql"
	MariaDB     Dialect = "mariadb"
	TiDB        Dialect = "tidb"
	SQLite      Dialect = "sqlite"
	DuckDB      Dialect = "duckdb"
	SQLServer   Dialect = "sqlserver"
	Oracle      Dialect = "oracle"
	BigQuery    Dialect = "bigquery"
	Snowflake   Dialect = "snowflake"
)

// Parse resolves a dialect or driver name ("postgresql", "pgx", "sqlite3", ...).
func Parse(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx", "pq":
		return Postgres, nil
	case "cockroachdb", "cockroach", "crdb":
		return CockroachDB, nil
	case "mysql":
		return MySQL, nil
	case "mariadb":
		return MariaDB, nil
	case "tidb":
		return TiDB, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "duckdb":
		return DuckDB, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "oracle", "godror":
		return Oracle, nil
	case "bigquery":
		return BigQuery, nil
	case "snowflake":
		return Snowflake, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", name)
	}
}

// PlaceholderStyle returns the placeholder style the dialect's drivers accept.
func (d Dialect) PlaceholderStyle() params.Style {
	switch d {
	case Postgres, CockroachDB, DuckDB:
		return params.StyleNumeric
	case MySQL, MariaDB, TiDB, SQLite, Snowflake:
		return params.StyleQMark
	case SQLServer, BigQuery:
		return params.StyleNamedAt
	case Oracle:
		return params.StyleNamedColon
	default:
		return params.StyleQMark
	}
}

// MySQLFamily reports whether the dialect speaks the MySQL grammar.
func (d Dialect) MySQLFamily() bool {
	return d == MySQL || d == MariaDB || d == TiDB
}

// SupportsArrays reports whether "col = ANY(:arr)" with a single array
// parameter is valid.
func (d Dialect) SupportsArrays() bool {
	return d == Postgres || d == CockroachDB || d == DuckDB
}

// SupportsILike reports whether ILIKE is available.
func (d Dialect) SupportsILike() bool {
	return d == Postgres || d == CockroachDB || d == DuckDB || d == Snowflake
}

// OffsetFetch reports whether pagination is written as
// OFFSET n ROWS FETCH NEXT m ROWS ONLY instead of LIMIT/OFFSET.
func (d Dialect) OffsetFetch() bool {
	return d == SQLServer || d == Oracle
}

// LexOptions returns the lexer rules for the dialect.
func (d Dialect) LexOptions() sqllex.Options {
	return sqllex.Options{
		BackslashEscapes: d.MySQLFamily(),
		Brackets:         d == SQLServer,
	}
}

// String returns the dialect name.
func (d Dialect) String() string {
	return string(d)
}
