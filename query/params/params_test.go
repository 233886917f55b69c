package params

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantStyle Style
		wantTexts []string
	}{
		{name: "no placeholders", sql: "SELECT 1", wantStyle: StyleNone},
		{name: "qmark", sql: "SELECT * FROM t WHERE a = ? AND b = ?", wantStyle: StyleQMark, wantTexts: []string{"?", "?"}},
		{name: "numeric", sql: "SELECT * FROM t WHERE a = $1 AND b = $2", wantStyle: StyleNumeric, wantTexts: []string{"$1", "$2"}},
		{name: "named colon", sql: "SELECT * FROM t WHERE a = :a AND b = :b_2", wantStyle: StyleNamedColon, wantTexts: []string{":a", ":b_2"}},
		{name: "positional colon", sql: "SELECT * FROM t WHERE a = :1", wantStyle: StylePositionalColon, wantTexts: []string{":1"}},
		{name: "named at", sql: "SELECT * FROM t WHERE a = @a", wantStyle: StyleNamedAt, wantTexts: []string{"@a"}},
		{name: "named dollar", sql: "SELECT * FROM t WHERE a = $a", wantStyle: StyleNamedDollar, wantTexts: []string{"$a"}},
		{name: "pyformat named", sql: "SELECT * FROM t WHERE a = %(a)s", wantStyle: StylePyformatNamed, wantTexts: []string{"%(a)s"}},
		{name: "pyformat positional", sql: "SELECT * FROM t WHERE a = %s", wantStyle: StylePyformatPositional, wantTexts: []string{"%s"}},
		{name: "quoted text ignored", sql: "SELECT '?', \"$1\", ':x' FROM t -- @y\nWHERE a = ?", wantStyle: StyleQMark, wantTexts: []string{"?"}},
		{name: "block comment ignored", sql: "SELECT /* :a */ * FROM t WHERE a = $1", wantStyle: StyleNumeric, wantTexts: []string{"$1"}},
		{name: "dollar quoted body ignored", sql: "DO $$ SELECT :a $$; SELECT ?", wantStyle: StyleQMark, wantTexts: []string{"?"}},
		{name: "casts are not placeholders", sql: "SELECT a::text FROM t WHERE b = :b", wantStyle: StyleNamedColon, wantTexts: []string{":b"}},
		{name: "assignment is not a placeholder", sql: "BEGIN v := 1; END", wantStyle: StyleNone},
		{name: "session variables are not placeholders", sql: "SELECT @@version", wantStyle: StyleNone},
		{name: "escaped percent", sql: "SELECT 'a' LIKE 'b' || '%%' FROM t WHERE c = 10 %% 3", wantStyle: StyleNone},
		{name: "jsonb operators", sql: "SELECT * FROM t WHERE tags ?| array['a'] AND tags ?& array['b']", wantStyle: StyleNone},
		{name: "array slice", sql: "SELECT arr[1:2] FROM t", wantStyle: StyleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style, phs, err := Detect(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStyle, style)

			var texts []string
			for _, ph := range phs {
				texts = append(texts, ph.Text)
				assert.Equal(t, ph.Text, tt.sql[ph.Start:ph.End])
			}
			assert.Equal(t, tt.wantTexts, texts)
		})
	}
}

func TestDetectMixed(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = :b AND c = ?"

	_, _, err := Detect(q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMixedStyles))

	var mixed *MixedStyleError
	require.ErrorAs(t, err, &mixed)
	assert.Equal(t, []Style{StyleQMark, StyleNamedColon}, mixed.Styles)

	style, phs, err := Detect(q, WithAllowMixed())
	require.NoError(t, err)
	assert.Equal(t, StyleQMark, style)
	assert.Len(t, phs, 3)
}

func TestScanMalformed(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "unterminated pyformat", sql: "SELECT * FROM t WHERE a = %(a"},
		{name: "unsupported conversion", sql: "SELECT * FROM t WHERE a = %(a)d"},
		{name: "bad pyformat name", sql: "SELECT * FROM t WHERE a = %(a-b)s"},
		{name: "unterminated literal", sql: "SELECT * FROM t WHERE a = 'abc"},
		{name: "slot number too large", sql: "SELECT * FROM t WHERE id = $50000000"},
		{name: "colon slot number too large", sql: "SELECT * FROM t WHERE id = :65536"},
		{name: "slot number overflows", sql: "SELECT * FROM t WHERE id = $99999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Scan(tt.sql)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPlaceholder))

			var perr *PlaceholderError
			require.ErrorAs(t, err, &perr)
		})
	}

	_, err := Scan("SELECT 'abc")
	assert.True(t, errors.Is(err, sqllex.ErrUnterminated))
}

func TestScanBackslashEscapes(t *testing.T) {
	q := `SELECT * FROM t WHERE a = 'it\'s ?' AND b = ?`

	phs, err := Scan(q, WithLexOptions(sqllex.Options{BackslashEscapes: true}))
	require.NoError(t, err)
	require.Len(t, phs, 1)
	assert.Equal(t, len(q)-1, phs[0].Start)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		target    Style
		wantSQL   string
		wantNames []string
	}{
		{
			name:      "qmark to named colon",
			sql:       "SELECT * FROM t WHERE a = ? AND b = ?",
			target:    StyleNamedColon,
			wantSQL:   "SELECT * FROM t WHERE a = :param_0 AND b = :param_1",
			wantNames: []string{"param_0", "param_1"},
		},
		{
			name:      "numeric to qmark follows occurrence order",
			sql:       "SELECT * FROM t WHERE a = $2 AND b = $1 AND c = $2",
			target:    StyleQMark,
			wantSQL:   "SELECT * FROM t WHERE a = ? AND b = ? AND c = ?",
			wantNames: []string{"param_1", "param_0", "param_1"},
		},
		{
			name:      "named to numeric reuses numbers",
			sql:       "SELECT * FROM t WHERE a = :a AND b = :b OR a2 = :a",
			target:    StyleNumeric,
			wantSQL:   "SELECT * FROM t WHERE a = $1 AND b = $2 OR a2 = $1",
			wantNames: []string{"a", "b"},
		},
		{
			name:      "slot names keep their numbers",
			sql:       "SELECT * FROM t WHERE a = :limit_1 AND b = :param_1",
			target:    StyleNumeric,
			wantSQL:   "SELECT * FROM t WHERE a = $3 AND b = $2",
			wantNames: []string{"param_0", "param_1", "limit_1"},
		},
		{
			name:      "named to pyformat",
			sql:       "SELECT * FROM t WHERE a = @a AND b = @b AND c = @a",
			target:    StylePyformatNamed,
			wantSQL:   "SELECT * FROM t WHERE a = %(a)s AND b = %(b)s AND c = %(a)s",
			wantNames: []string{"a", "b"},
		},
		{
			name:      "named to qmark repeats",
			sql:       "SELECT * FROM t WHERE a = :a OR b = :a",
			target:    StyleQMark,
			wantSQL:   "SELECT * FROM t WHERE a = ? OR b = ?",
			wantNames: []string{"a", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Convert(tt.sql, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, tr.SQL)
			assert.Equal(t, tt.wantNames, tr.Names())
			assert.Equal(t, tt.sql, tr.Revert())
		})
	}
}

func TestConvertKeepsPlaceholdersApart(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		target  Style
		wantSQL string
	}{
		{
			name:    "array slice",
			sql:     "SELECT arr[$1:$2] FROM t",
			target:  StyleNamedColon,
			wantSQL: "SELECT arr[:param_0: :param_1] FROM t",
		},
		{
			name:    "slice back to numeric",
			sql:     "SELECT arr[:param_0: :param_1] FROM t",
			target:  StyleNumeric,
			wantSQL: "SELECT arr[$1: $2] FROM t",
		},
		{
			name:    "qmark after identifier",
			sql:     "SELECT a FROM t WHERE x=?AND y=?",
			target:  StyleNamedAt,
			wantSQL: "SELECT a FROM t WHERE x=@param_0 AND y=@param_1",
		},
		{
			name:    "adjacent qmarks",
			sql:     "SELECT ??",
			target:  StyleNamedColon,
			wantSQL: "SELECT :param_0 :param_1",
		},
		{
			name:    "qmark glued to a keyword",
			sql:     "SELECT a FROM t LIMIT 5 OFFSET?",
			target:  StyleNumeric,
			wantSQL: "SELECT a FROM t LIMIT 5 OFFSET $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Convert(tt.sql, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, tr.SQL)
			assert.Equal(t, tt.sql, tr.Revert())

			phs, err := Scan(tr.SQL)
			require.NoError(t, err)
			assert.Len(t, phs, len(tr.Placeholders()))
		})
	}
}

func TestConvertLargeSlotNumbers(t *testing.T) {
	tr, err := Convert("SELECT * FROM t WHERE id = $65535", StyleNamedColon)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE id = :param_65534", tr.SQL)

	tr, err = Convert("SELECT * FROM t WHERE a = :param_70000 AND b = :param_0", StyleNumeric)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = $2 AND b = $1", tr.SQL)
	assert.Equal(t, []string{"param_0", "param_70000"}, tr.Names())
}

func TestConvertRoundTripAllPairs(t *testing.T) {
	samples := map[Style]string{
		StyleQMark:              "SELECT * FROM t WHERE a = ? AND b IN (?, ?) AND c = 'x?'",
		StyleNumeric:            "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3) AND c = 'x$1'",
		StyleNamedColon:         "SELECT * FROM t WHERE a = :a AND b IN (:b, :c) AND d = :a::int",
		StylePositionalColon:    "SELECT * FROM t WHERE a = :1 AND b IN (:2, :3)",
		StyleNamedAt:            "SELECT * FROM t WHERE a = @a AND b IN (@b, @c) AND @@rowcount > 0",
		StyleNamedDollar:        "SELECT * FROM t WHERE a = $a AND b IN ($b, $c)",
		StylePyformatNamed:      "SELECT * FROM t WHERE a = %(a)s AND b IN (%(b)s, %(c)s) AND d LIKE '%%'",
		StylePyformatPositional: "SELECT * FROM t WHERE a = %s AND b IN (%s, %s) AND d = 5 %% 2",
	}

	for source, q := range samples {
		for _, target := range Styles {
			t.Run(source.String()+"_to_"+target.String(), func(t *testing.T) {
				forward, err := Convert(q, target)
				require.NoError(t, err)
				assert.Equal(t, source, forward.Source)
				assert.Equal(t, q, forward.Revert())

				style, phs, err := Detect(forward.SQL)
				require.NoError(t, err)
				assert.Equal(t, target, style)
				assert.Len(t, phs, len(forward.Placeholders()))

				// Positional slots and caller names survive a second conversion.
				if source.Positional() || !target.Positional() {
					back, err := Convert(forward.SQL, source)
					require.NoError(t, err)
					assert.Equal(t, q, back.SQL)
				}
			})
		}
	}
}

func TestPositionalRoundTripWithoutTranslation(t *testing.T) {
	q := "SELECT * FROM items WHERE id IN (?)"

	named, err := Convert(q, StyleNamedColon)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items WHERE id IN (:param_0)", named.SQL)

	back, err := Convert(named.SQL, StyleQMark)
	require.NoError(t, err)
	assert.Equal(t, q, back.SQL)

	args, missing := back.Bind(Positional([]int{1, 2}).Lookup)
	assert.Empty(t, missing)
	assert.Equal(t, []any{[]int{1, 2}}, args.Values())
}

func TestBind(t *testing.T) {
	t.Run("positional values follow the rewritten order", func(t *testing.T) {
		tr, err := Convert("SELECT * FROM t WHERE a = $2 AND b = $1", StyleQMark)
		require.NoError(t, err)
		assert.False(t, tr.Identity())

		args, missing := tr.Bind(Positional("one", "two").Lookup)
		assert.Empty(t, missing)
		assert.Equal(t, ShapePositional, args.Shape())
		assert.Equal(t, []any{"two", "one"}, args.Values())
	})

	t.Run("named values", func(t *testing.T) {
		tr, err := Convert("SELECT * FROM t WHERE a = :a AND b = :b", StyleNamedAt)
		require.NoError(t, err)
		assert.True(t, tr.Identity())

		args, missing := tr.Bind(Named(map[string]any{"a": 1, "b": 2, "unused": 3}).Lookup)
		assert.Empty(t, missing)
		assert.Equal(t, ShapeNamed, args.Shape())
		assert.Equal(t, map[string]any{"a": 1, "b": 2}, args.Map())
	})

	t.Run("missing names are reported", func(t *testing.T) {
		tr, err := Convert("SELECT * FROM t WHERE a = :a AND b = :b", StyleNumeric)
		require.NoError(t, err)

		args, missing := tr.Bind(Named(map[string]any{"a": 1}).Lookup)
		assert.Equal(t, []string{"b"}, missing)
		assert.Equal(t, []any{1, nil}, args.Values())
	})

	t.Run("identity for ordered positional slots", func(t *testing.T) {
		tr, err := Convert("SELECT * FROM t WHERE a = ? AND b = ?", StyleNumeric)
		require.NoError(t, err)
		assert.True(t, tr.Identity())
	})
}

func TestArgs(t *testing.T) {
	values := []any{1, "two"}
	pos := Positional(values...)
	values[0] = 99

	v, ok := pos.Lookup("param_0")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = pos.Lookup("param_2")
	assert.False(t, ok)
	_, ok = pos.Lookup("param_01")
	assert.False(t, ok)

	copied := pos.Values()
	copied[1] = "changed"
	assert.Equal(t, []any{1, "two"}, pos.Values())

	named := Named(map[string]any{"b": 2, "a": 1})
	assert.Equal(t, []any{sql.Named("a", 1), sql.Named("b", 2)}, named.DriverArgs())
	assert.Equal(t, 2, named.Len())

	assert.Equal(t, ShapeEmpty, None().Shape())
	assert.Nil(t, None().DriverArgs())
}

func TestParseStyle(t *testing.T) {
	for _, s := range Styles {
		got, err := ParseStyle(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseStyle("$1")
	require.NoError(t, err)
	assert.Equal(t, StyleNumeric, got)

	_, err = ParseStyle("bogus")
	assert.Error(t, err)
}
