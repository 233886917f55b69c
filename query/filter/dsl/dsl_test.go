package dsl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlkit/query/filter"
)

func kinds(filters []filter.Filter) []filter.Kind {
	out := make([]filter.Kind, len(filters))
	for i, f := range filters {
		out[i] = f.Kind()
	}
	return out
}

func values(f filter.Filter) []any {
	_, named := f.Parameters()
	out := make([]any, 0, len(named))
	for _, v := range named {
		out = append(out, v)
	}
	return out
}

func TestParse(t *testing.T) {
	t.Run("pagination and ordering", func(t *testing.T) {
		filters, err := Parse("LIMIT 10 offset 5; order by id DESC, name")
		require.NoError(t, err)
		require.Equal(t, []filter.Kind{filter.KindLimitOffset, filter.KindOrderBy}, kinds(filters))

		page := filters[0].(filter.LimitOffset)
		assert.Equal(t, int64(10), page.Limit())
		assert.Equal(t, int64(5), page.Offset())

		order := filters[1].(filter.OrderBy)
		assert.Equal(t, []filter.Term{
			{Field: "id", Direction: filter.Desc},
			{Field: "name", Direction: filter.Asc},
		}, order.Terms())
	})

	t.Run("offset alone", func(t *testing.T) {
		filters, err := Parse("offset 20")
		require.NoError(t, err)
		require.Len(t, filters, 1)
		assert.Equal(t, int64(20), filters[0].(filter.LimitOffset).Offset())
	})

	t.Run("membership", func(t *testing.T) {
		filters, err := Parse("u.id in (1, 2, 'x'); status NOT IN (); tag any (\"a\")")
		require.NoError(t, err)
		require.Equal(t, []filter.Kind{filter.KindIn, filter.KindNotIn, filter.KindAny}, kinds(filters))
		assert.ElementsMatch(t, []any{int64(1), int64(2), "x"}, values(filters[0]))
		assert.Empty(t, values(filters[1]))
		assert.Equal(t, "u.id", filters[0].(filter.Collection).Field())
	})

	t.Run("ranges", func(t *testing.T) {
		filters, err := Parse(`created_at on or after "2024-01-01" before '2024-02-01T00:00:00Z'`)
		require.NoError(t, err)
		require.Equal(t, []filter.Kind{filter.KindBeforeAfter, filter.KindOnBeforeAfter}, kinds(filters))
		assert.Equal(t, []any{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, values(filters[0]))
		assert.Equal(t, []any{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, values(filters[1]))
	})

	t.Run("search", func(t *testing.T) {
		filters, err := Parse(`search name, email for 'o''brien' icase; not search note for "spam"`)
		require.NoError(t, err)
		require.Equal(t, []filter.Kind{filter.KindSearch, filter.KindNotInSearch}, kinds(filters))
		assert.Equal(t, []any{"%o'brien%"}, values(filters[0]))
		assert.Equal(t, []any{"%spam%"}, values(filters[1]))
	})

	t.Run("where", func(t *testing.T) {
		filters, err := Parse(`where "age > 18"`)
		require.NoError(t, err)
		require.Len(t, filters, 1)
		assert.Equal(t, "age > 18", filters[0].(filter.Where).Predicate())
	})

	t.Run("empty input", func(t *testing.T) {
		filters, err := Parse("  ; ")
		require.NoError(t, err)
		assert.Empty(t, filters)
	})
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"limit ten",
		"order id",
		"created_at before 'yesterday'",
		"search for 'x'",
		"id in (1, 2",
	} {
		_, err := Parse(input)
		assert.Error(t, err, input)
	}
}

func TestParseAll(t *testing.T) {
	filters, err := ParseAll([]string{"limit 1", "order by id"})
	require.NoError(t, err)
	assert.Len(t, filters, 2)

	_, err = ParseAll([]string{"limit 1", "limit"})
	assert.Error(t, err)
}
