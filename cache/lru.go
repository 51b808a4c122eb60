// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import lru "github.com/hashicorp/golang-lru"

// LRU is a typed, thread-safe LRU cache over golang-lru.
type LRU[K comparable, V any] struct {
	cache *lru.Cache
	stats Stats
}

// NewLRU creates a LRU cache instance. maxSize must be > 0.
func NewLRU[K comparable, V any](maxSize int) *LRU[K, V] {
	cache, err := lru.New(maxSize)
	if err != nil {
		panic(err)
	}
	return &LRU[K, V]{cache: cache}
}

// Get returns the cached value of key.
func (l *LRU[K, V]) Get(key K) (v V, ok bool) {
	if val, has := l.cache.Get(key); has {
		l.stats.Hit()
		return val.(V), true
	}
	l.stats.Miss()
	return
}

// Contains checks if key is cached without touching its recency.
func (l *LRU[K, V]) Contains(key K) bool {
	return l.cache.Contains(key)
}

// Add adds the value, evicting the oldest entry if full.
func (l *LRU[K, V]) Add(key K, val V) {
	l.cache.Add(key, val)
}

// Remove drops the key.
func (l *LRU[K, V]) Remove(key K) {
	l.cache.Remove(key)
}

// Len returns the number of cached entries.
func (l *LRU[K, V]) Len() int {
	return l.cache.Len()
}

// Purge drops everything.
func (l *LRU[K, V]) Purge() {
	l.cache.Purge()
}

// Stats returns the hit/miss counters.
func (l *LRU[K, V]) Stats() *Stats {
	return &l.stats
}

// GetOrLoad first tries the cache, and calls load on miss.
// Loaded values are cached, errors are not.
func (l *LRU[K, V]) GetOrLoad(key K, load func(K) (V, error)) (V, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, err := load(key)
	if err != nil {
		return v, err
	}
	l.cache.Add(key, v)
	return v, nil
}
