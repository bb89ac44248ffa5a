// ABOUTME: Thread-safe TTL cache for recognising repeated host API request IDs.
// ABOUTME: Time comes from an injected clock so expiry is testable.

package dedupe

import (
	"container/list"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const maxSweepInterval = time.Minute

type cacheEntry struct {
	seenAt  time.Time
	element *list.Element
}

// Cache remembers keys for a TTL, holding at most maxSize keys. The oldest key
// is evicted first when full.
type Cache struct {
	clk clock.Clock

	mu      sync.Mutex
	seen    map[string]*cacheEntry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	stopped chan struct{}
	closed  bool
}

// New creates a cache on the wall clock.
func New(ttl time.Duration, maxSize int) *Cache {
	return NewWithClock(clock.New(), ttl, maxSize)
}

// NewWithClock creates a cache driven by clk. A background goroutine sweeps
// expired keys until Close.
func NewWithClock(clk clock.Clock, ttl time.Duration, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache{
		clk:     clk,
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	interval := ttl
	if interval <= 0 || interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	ticker := clk.Ticker(interval)
	go c.sweep(ticker)
	return c
}

// Check reports whether key was seen within the TTL.
func (c *Cache) Check(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[key]
	return ok && c.live(entry)
}

// CheckAndMark reports whether key is a repeat. A new or expired key is
// marked and false is returned.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[key]; ok && c.live(entry) {
		return true
	}
	c.markLocked(key)
	return false
}

// Mark records key as seen now.
func (c *Cache) Mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(key)
}

// Len returns the number of stored keys, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) live(entry *cacheEntry) bool {
	return c.clk.Since(entry.seenAt) < c.ttl
}

// markLocked must be called with mu held.
func (c *Cache) markLocked(key string) {
	now := c.clk.Now()

	if entry, ok := c.seen[key]; ok {
		entry.seenAt = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	c.seen[key] = &cacheEntry{
		seenAt:  now,
		element: c.order.PushBack(key),
	}
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

func (c *Cache) sweep(ticker *clock.Ticker) {
	defer close(c.stopped)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.seen {
		if !c.live(entry) {
			c.order.Remove(entry.element)
			delete(c.seen, key)
		}
	}
}

// Close stops the sweeper and waits for it to exit. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
	c.mu.Unlock()
	<-c.stopped
}
