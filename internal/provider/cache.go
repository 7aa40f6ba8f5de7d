package provider

import (
	"sync"
	"time"

	"github.com/pikestaff/cartridge/internal/game"
)

type cacheEntry struct {
	key       string
	value     []game.Candidate
	prev      *cacheEntry
	next      *cacheEntry
	expiresAt time.Time
}

// ResultCache is a thread-safe LRU cache for provider search results keyed
// by normalized query. Entries expire after a TTL; expired entries are
// dropped lazily on access and in bulk by CleanupExpired.
//
// A doubly-linked list with sentinel head/tail keeps access order, a map
// gives O(1) lookup. head.next is the most recently used entry.
type ResultCache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*cacheEntry
	head     *cacheEntry
	tail     *cacheEntry
	hits     int64
	misses   int64
}

// NewResultCache creates a cache with the given capacity and TTL.
// Non-positive values fall back to 100 entries and 24 hours.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*cacheEntry, capacity),
		head:     &cacheEntry{},
		tail:     &cacheEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached candidates for key, or false on a miss or expired
// entry. Hits move the entry to the front. The returned slice is a copy;
// callers may append to it freely.
func (c *ResultCache) Get(key string) ([]game.Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return nil, false
	}

	c.moveToFront(entry)
	c.hits++
	out := make([]game.Candidate, len(entry.value))
	copy(out, entry.value)
	return out, true
}

// Add stores candidates under key, evicting the least recently used entry
// when over capacity. The slice is copied on the way in.
func (c *ResultCache) Add(key string, value []game.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]game.Candidate, len(value))
	copy(stored, value)
	expiresAt := time.Now().Add(c.ttl)

	if entry, ok := c.items[key]; ok {
		entry.value = stored
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &cacheEntry{
		key:       key,
		value:     stored,
		expiresAt: expiresAt,
	}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Len returns the current number of entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CleanupExpired removes all expired entries and returns how many were dropped.
func (c *ResultCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns hit/miss counters and the current size.
func (c *ResultCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.items)
}

// List maintenance below must be called with the lock held.

func (c *ResultCache) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *ResultCache) moveToFront(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *ResultCache) removeEntry(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *ResultCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
