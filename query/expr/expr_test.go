package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlkit/query/dialect"
)

func render(t *testing.T, e Expression, d dialect.Dialect) string {
	t.Helper()
	out, err := NewService().Render(e, d, false)
	require.NoError(t, err)
	return out
}

func TestParseKinds(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want Kind
	}{
		{name: "select", sql: "SELECT * FROM users", want: KindSelect},
		{name: "lowercase select", sql: "select id from users where id = 1", want: KindSelect},
		{name: "cte select", sql: "WITH x AS (SELECT 1 UNION SELECT 2) SELECT * FROM x", want: KindSelect},
		{name: "union", sql: "SELECT a FROM t UNION ALL SELECT a FROM u", want: KindCompound},
		{name: "insert", sql: "INSERT INTO t (a) VALUES (:a)", want: KindInsert},
		{name: "update", sql: "UPDATE t SET a = 1", want: KindUpdate},
		{name: "delete", sql: "DELETE FROM t", want: KindDelete},
		{name: "cte delete", sql: "WITH old AS (SELECT id FROM t) DELETE FROM t USING old", want: KindDelete},
		{name: "ddl", sql: "CREATE TABLE t (id INT)", want: KindOther},
		{name: "trailing semicolon", sql: "SELECT 1; -- done", want: KindSelect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewService().Parse(tt.sql, dialect.Postgres)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Kind())
			assert.False(t, e.Modified())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "empty", sql: "   "},
		{name: "comment only", sql: "-- nothing here"},
		{name: "unbalanced open", sql: "SELECT * FROM (SELECT 1"},
		{name: "unbalanced close", sql: "SELECT 1)"},
		{name: "unterminated literal", sql: "SELECT 'abc"},
		{name: "multiple statements", sql: "SELECT 1; SELECT 2"},
		{name: "with without statement", sql: "WITH x AS (SELECT 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService().Parse(tt.sql, dialect.Postgres)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, dialect.Postgres, perr.Dialect)
		})
	}
}

func TestUnmodifiedRenderKeepsText(t *testing.T) {
	q := "SELECT *\n  FROM users  "
	e, err := NewService().Parse(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\n  FROM users", render(t, e, dialect.Postgres))
}

func TestWhere(t *testing.T) {
	svc := NewService()

	t.Run("adds a clause", func(t *testing.T) {
		e, err := svc.Parse("SELECT * FROM users ORDER BY id", dialect.Postgres)
		require.NoError(t, err)
		e2, err := e.Where("active = :active")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM users WHERE active = :active ORDER BY id", render(t, e2, dialect.Postgres))
		assert.Equal(t, "SELECT * FROM users ORDER BY id", render(t, e, dialect.Postgres))
	})

	t.Run("combines with an existing clause", func(t *testing.T) {
		e, err := svc.Parse("SELECT * FROM users WHERE a = 1 OR b = 2 GROUP BY c", dialect.Postgres)
		require.NoError(t, err)
		e, err = e.Where("d = :d")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM users WHERE (a = 1 OR b = 2) AND d = :d GROUP BY c", render(t, e, dialect.Postgres))
	})

	t.Run("subquery clauses are left alone", func(t *testing.T) {
		e, err := svc.Parse("SELECT * FROM (SELECT * FROM t WHERE x = 1 LIMIT 5) s", dialect.Postgres)
		require.NoError(t, err)
		e, err = e.Where("s.y = 2")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM (SELECT * FROM t WHERE x = 1 LIMIT 5) s WHERE s.y = 2", render(t, e, dialect.Postgres))
	})

	t.Run("compound is wrapped", func(t *testing.T) {
		e, err := svc.Parse("SELECT a FROM t UNION SELECT a FROM u", dialect.Postgres)
		require.NoError(t, err)
		e, err = e.Where("a > 1")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM (SELECT a FROM t UNION SELECT a FROM u) AS wrapped_query WHERE a > 1", render(t, e, dialect.Postgres))
	})

	t.Run("update", func(t *testing.T) {
		e, err := svc.Parse("UPDATE t SET a = 1 WHERE id = :id RETURNING id", dialect.Postgres)
		require.NoError(t, err)
		e, err = e.Where("version = :version")
		require.NoError(t, err)
		assert.Equal(t, "UPDATE t SET a = 1 WHERE id = :id AND version = :version RETURNING id", render(t, e, dialect.Postgres))
	})

	t.Run("insert is unsupported", func(t *testing.T) {
		e, err := svc.Parse("INSERT INTO t VALUES (1)", dialect.Postgres)
		require.NoError(t, err)
		_, err = e.Where("a = 1")
		assert.True(t, errors.Is(err, ErrUnsupportedClause))
	})

	t.Run("line comment before new clause", func(t *testing.T) {
		e, err := svc.Parse("SELECT * FROM t -- all rows", dialect.Postgres)
		require.NoError(t, err)
		e, err = e.Where("a = 1")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t -- all rows\nWHERE a = 1", render(t, e, dialect.Postgres))
	})
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		dialect dialect.Dialect
		limit   string
		offset  string
		want    string
	}{
		{
			name:    "limit offset",
			sql:     "SELECT * FROM users",
			dialect: dialect.Postgres,
			limit:   ":limit_1",
			offset:  ":offset_2",
			want:    "SELECT * FROM users LIMIT :limit_1 OFFSET :offset_2",
		},
		{
			name:    "before locking clause",
			sql:     "SELECT * FROM users WHERE a = 1 FOR UPDATE",
			dialect: dialect.Postgres,
			limit:   "5",
			want:    "SELECT * FROM users WHERE a = 1 LIMIT 5 FOR UPDATE",
		},
		{
			name:    "existing limit is wrapped",
			sql:     "SELECT * FROM users LIMIT 100",
			dialect: dialect.Postgres,
			limit:   "10",
			want:    "SELECT * FROM (SELECT * FROM users LIMIT 100) AS wrapped_query LIMIT 10",
		},
		{
			name:    "offset only on mysql",
			sql:     "SELECT * FROM users",
			dialect: dialect.MySQL,
			offset:  "5",
			want:    "SELECT * FROM users LIMIT 18446744073709551615 OFFSET 5",
		},
		{
			name:    "offset only on sqlite",
			sql:     "SELECT * FROM users",
			dialect: dialect.SQLite,
			offset:  "5",
			want:    "SELECT * FROM users LIMIT -1 OFFSET 5",
		},
		{
			name:    "sql server needs an order",
			sql:     "SELECT * FROM users",
			dialect: dialect.SQLServer,
			limit:   "@limit_1",
			offset:  "@offset_2",
			want:    "SELECT * FROM users ORDER BY (SELECT NULL) OFFSET @offset_2 ROWS FETCH NEXT @limit_1 ROWS ONLY",
		},
		{
			name:    "oracle keeps the order",
			sql:     "SELECT * FROM users ORDER BY id",
			dialect: dialect.Oracle,
			limit:   ":l",
			want:    "SELECT * FROM users ORDER BY id OFFSET 0 ROWS FETCH NEXT :l ROWS ONLY",
		},
		{
			name:    "values are wrapped",
			sql:     "VALUES (1), (2)",
			dialect: dialect.Postgres,
			limit:   "1",
			want:    "SELECT * FROM (VALUES (1), (2)) AS wrapped_query LIMIT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewService().Parse(tt.sql, tt.dialect)
			require.NoError(t, err)
			e, err = e.Paginate(tt.limit, tt.offset)
			require.NoError(t, err)
			assert.True(t, e.Modified())
			assert.Equal(t, tt.want, render(t, e, tt.dialect))
		})
	}

	t.Run("delete is unsupported", func(t *testing.T) {
		e, err := NewService().Parse("DELETE FROM t", dialect.Postgres)
		require.NoError(t, err)
		_, err = e.Paginate("1", "")
		assert.True(t, errors.Is(err, ErrUnsupportedClause))
	})
}

func TestOrderBy(t *testing.T) {
	e, err := NewService().Parse("SELECT * FROM users ORDER BY name LIMIT 3", dialect.Postgres)
	require.NoError(t, err)

	e2, err := e.OrderBy("id DESC", "created_at ASC")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users ORDER BY name, id DESC, created_at ASC LIMIT 3", render(t, e2, dialect.Postgres))

	same, err := e.OrderBy()
	require.NoError(t, err)
	assert.Same(t, e, same)
}

func TestRenderPretty(t *testing.T) {
	svc := NewService()
	e, err := svc.Parse("SELECT * FROM users", dialect.Postgres)
	require.NoError(t, err)
	e, err = e.Where("a = 1")
	require.NoError(t, err)
	e, err = e.Paginate("10", "")
	require.NoError(t, err)

	out, err := svc.Render(e, dialect.Postgres, true)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users\nWHERE a = 1\nLIMIT 10", out)
}

func TestSplitScript(t *testing.T) {
	script := `
CREATE TABLE t (id INT, note TEXT DEFAULT 'a;b');
-- seed
INSERT INTO t (id) VALUES (1);
CREATE FUNCTION f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql;
/* trailing */;
`
	stmts, err := SplitScript(script, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE t (id INT, note TEXT DEFAULT 'a;b')",
		"-- seed\nINSERT INTO t (id) VALUES (1)",
		"CREATE FUNCTION f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql",
	}, stmts)

	_, err = SplitScript("SELECT 'oops", dialect.Postgres)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestTiDBService(t *testing.T) {
	svc := Default()

	e, err := svc.Parse("SELECT * FROM users WHERE id = :id AND name = ?", dialect.MySQL)
	require.NoError(t, err)
	assert.Equal(t, KindSelect, e.Kind())

	_, err = svc.Parse("SELEC * FROM users", dialect.MySQL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	// Postgres syntax is not checked by the MySQL grammar.
	_, err = svc.Parse("SELECT a::text FROM t", dialect.Postgres)
	require.NoError(t, err)

	e, err = svc.Parse("(SELECT a FROM t) UNION (SELECT a FROM u)", dialect.MySQL)
	require.NoError(t, err)
	e, err = e.Paginate("?", "")
	require.NoError(t, err)
	out, err := svc.Render(e, dialect.MySQL, false)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM ((SELECT a FROM t) UNION (SELECT a FROM u)) AS wrapped_query LIMIT ?", out)
}
