package memory

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

type entry[T any] struct {
	seq   uint64
	value T
}

// Collection keeps values of one kind in a go-cache without expiry. List
// returns them in insertion order.
type Collection[T any] struct {
	cache *cache.Cache
	seq   *atomic.Uint64
	// mu serialises read-modify-write cycles.
	mu sync.Mutex
}

func NewCollection[T any](seq *atomic.Uint64) *Collection[T] {
	return &Collection[T]{cache: cache.New(cache.NoExpiration, 0), seq: seq}
}

func (c *Collection[T]) Save(id string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveLocked(id, value)
}

func (c *Collection[T]) saveLocked(id string, value T) {
	seq := c.seq.Add(1)
	if x, found := c.cache.Get(id); found {
		seq = x.(entry[T]).seq
	}
	c.cache.Set(id, entry[T]{seq: seq, value: value}, cache.NoExpiration)
}

func (c *Collection[T]) Get(id string) (T, bool) {
	if x, found := c.cache.Get(id); found {
		return x.(entry[T]).value, true
	}
	var zero T
	return zero, false
}

// Update applies fn to the stored value under the collection lock. It reports
// false when id is unknown.
func (c *Collection[T]) Update(id string, fn func(T) T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.Get(id)
	if !ok {
		return current, false
	}
	next := fn(current)
	c.saveLocked(id, next)
	return next, true
}

func (c *Collection[T]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.cache.Get(id); !found {
		return false
	}
	c.cache.Delete(id)
	return true
}

func (c *Collection[T]) List(keep func(T) bool) []T {
	items := c.cache.Items()
	entries := make([]entry[T], 0, len(items))
	for _, item := range items {
		e := item.Object.(entry[T])
		if keep == nil || keep(e.value) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}
