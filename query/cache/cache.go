// Package cache provides a bounded cache of parsed expressions.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/expr"
)

// Cache stores parsed expressions by statement text and dialect.
type Cache interface {
	// Get returns the expression parsed for sql in dialect d.
	Get(sql string, d dialect.Dialect) (expr.Expression, bool)
	// Put stores an expression. The last writer wins.
	Put(sql string, d dialect.Dialect, e expr.Expression)
	// InvalidateDialect drops every entry of a dialect.
	InvalidateDialect(d dialect.Dialect)
	// Clear removes all entries.
	Clear()
	// GetStats returns cache statistics.
	GetStats() Stats
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// DefaultSize is the capacity used when a non-positive size is given.
const DefaultSize = 1024

// Key hashes a statement and its dialect.
func Key(sql string, d dialect.Dialect) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(sql)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(string(d))
	return h.Sum64()
}

// LRUCache is a Cache that evicts the least recently used entry once full.
type LRUCache struct {
	mu      sync.Mutex
	data    map[uint64]*cacheNode
	maxSize int
	head    *cacheNode
	tail    *cacheNode
	stats   Stats
}

// cacheNode represents a node in the doubly-linked list for LRU
type cacheNode struct {
	key     uint64
	sql     string
	dialect dialect.Dialect
	value   expr.Expression
	prev    *cacheNode
	next    *cacheNode
}

// NewLRUCache creates a cache holding at most maxSize expressions.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	return &LRUCache{
		data:    make(map[uint64]*cacheNode),
		maxSize: maxSize,
		stats:   Stats{MaxSize: maxSize},
	}
}

// Get implements Cache.
func (c *LRUCache) Get(sql string, d dialect.Dialect) (expr.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.data[Key(sql, d)]
	// A hash collision must not hand out another statement's expression.
	if !ok || node.sql != sql || node.dialect != d {
		c.stats.Misses++
		return nil, false
	}

	c.moveToFront(node)
	c.stats.Hits++
	return node.value, true
}

// Put implements Cache.
func (c *LRUCache) Put(sql string, d dialect.Dialect, e expr.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(sql, d)
	if node, exists := c.data[key]; exists {
		node.sql = sql
		node.dialect = d
		node.value = e
		c.moveToFront(node)
		return
	}

	if len(c.data) >= c.maxSize {
		c.evictLRU()
		c.stats.Evictions++
	}

	node := &cacheNode{key: key, sql: sql, dialect: d, value: e}
	c.addToFront(node)
	c.data[key] = node
}

// InvalidateDialect implements Cache.
func (c *LRUCache) InvalidateDialect(d dialect.Dialect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, node := range c.data {
		if node.dialect == d {
			c.removeNode(node)
		}
	}
}

// Clear implements Cache.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[uint64]*cacheNode)
	c.head = nil
	c.tail = nil
	c.stats = Stats{MaxSize: c.maxSize}
}

// GetStats implements Cache.
func (c *LRUCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// Resolve returns the cached expression for sql, parsing and storing it on a miss.
func Resolve(c Cache, svc expr.Service, sql string, d dialect.Dialect) (expr.Expression, error) {
	if c == nil {
		return svc.Parse(sql, d)
	}
	if e, ok := c.Get(sql, d); ok {
		return e, nil
	}
	e, err := svc.Parse(sql, d)
	if err != nil {
		return nil, err
	}
	c.Put(sql, d, e)
	return e, nil
}

func (c *LRUCache) addToFront(node *cacheNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *LRUCache) moveToFront(node *cacheNode) {
	if node == c.head {
		return
	}
	c.unlink(node)
	c.addToFront(node)
}

func (c *LRUCache) unlink(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

// removeNode unlinks a node and drops it from the index.
func (c *LRUCache) removeNode(node *cacheNode) {
	c.unlink(node)
	delete(c.data, node.key)
}

func (c *LRUCache) evictLRU() {
	if c.tail != nil {
		c.removeNode(c.tail)
	}
}
