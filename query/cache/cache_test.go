package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/expr"
)

type countingService struct {
	expr.Service
	mu    sync.Mutex
	calls int
}

func (s *countingService) Parse(sql string, d dialect.Dialect) (expr.Expression, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.Service.Parse(sql, d)
}

func TestLRUCache(t *testing.T) {
	svc := expr.NewService()
	parse := func(sql string) expr.Expression {
		e, err := svc.Parse(sql, dialect.Postgres)
		require.NoError(t, err)
		return e
	}

	t.Run("get and put", func(t *testing.T) {
		c := NewLRUCache(10)
		e := parse("SELECT 1")
		c.Put("SELECT 1", dialect.Postgres, e)

		got, ok := c.Get("SELECT 1", dialect.Postgres)
		require.True(t, ok)
		assert.Same(t, e, got)

		_, ok = c.Get("SELECT 1", dialect.MySQL)
		assert.False(t, ok)

		stats := c.GetStats()
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, 1, stats.Size)
		assert.InDelta(t, 50.0, stats.HitRate, 0.001)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		c := NewLRUCache(2)
		c.Put("SELECT 1", dialect.Postgres, parse("SELECT 1"))
		c.Put("SELECT 2", dialect.Postgres, parse("SELECT 2"))

		_, ok := c.Get("SELECT 1", dialect.Postgres)
		require.True(t, ok)

		c.Put("SELECT 3", dialect.Postgres, parse("SELECT 3"))

		_, ok = c.Get("SELECT 2", dialect.Postgres)
		assert.False(t, ok)
		_, ok = c.Get("SELECT 1", dialect.Postgres)
		assert.True(t, ok)
		_, ok = c.Get("SELECT 3", dialect.Postgres)
		assert.True(t, ok)
		assert.Equal(t, int64(1), c.GetStats().Evictions)
	})

	t.Run("invalidate dialect and clear", func(t *testing.T) {
		c := NewLRUCache(0)
		assert.Equal(t, DefaultSize, c.GetStats().MaxSize)

		c.Put("SELECT 1", dialect.Postgres, parse("SELECT 1"))
		c.Put("SELECT 1", dialect.SQLite, parse("SELECT 1"))
		c.InvalidateDialect(dialect.Postgres)

		_, ok := c.Get("SELECT 1", dialect.Postgres)
		assert.False(t, ok)
		_, ok = c.Get("SELECT 1", dialect.SQLite)
		assert.True(t, ok)

		c.Clear()
		assert.Equal(t, 0, c.GetStats().Size)
		assert.Equal(t, int64(0), c.GetStats().Hits)
	})
}

func TestResolve(t *testing.T) {
	svc := &countingService{Service: expr.NewService()}
	c := NewLRUCache(4)

	for range 3 {
		e, err := Resolve(c, svc, "SELECT * FROM users", dialect.Postgres)
		require.NoError(t, err)
		assert.Equal(t, expr.KindSelect, e.Kind())
	}
	assert.Equal(t, 1, svc.calls)

	_, err := Resolve(c, svc, "SELECT (", dialect.Postgres)
	require.Error(t, err)
	assert.Equal(t, 1, c.GetStats().Size)

	_, err = Resolve(nil, svc, "SELECT 1", dialect.Postgres)
	require.NoError(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	svc := expr.NewService()
	c := NewLRUCache(8)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sql := fmt.Sprintf("SELECT %d", i%4)
			for range 50 {
				_, err := Resolve(c, svc, sql, dialect.SQLite)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, c.GetStats().Size)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("SELECT 1", dialect.Postgres), Key("SELECT 1", dialect.Postgres))
	assert.NotEqual(t, Key("SELECT 1", dialect.Postgres), Key("SELECT 1", dialect.MySQL))
}
