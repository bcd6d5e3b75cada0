package pricing

import (
	"container/list"
	"sync"
	"time"
)

// memo is the in-process quote cache sitting in front of the match/live
// pipeline.  Quotes live for a short TTL and the cache is LRU-bounded, so a
// burst of identical lookups (every item of a 20-line estimate hitting the
// same cement record) resolves once.  Upserts through the engine invalidate
// the affected key.
type memo struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	now     func() time.Time
}

type memoEntry struct {
	key       string
	quote     Quote
	expiresAt time.Time
}

func newMemo(ttl time.Duration, maxEntries int) *memo {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &memo{
		ttl:     ttl,
		max:     maxEntries,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

func (m *memo) get(key string) (Quote, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return Quote{}, false
	}
	entry := el.Value.(*memoEntry)
	if m.now().After(entry.expiresAt) {
		m.order.Remove(el)
		delete(m.entries, key)
		return Quote{}, false
	}
	m.order.MoveToFront(el)
	return entry.quote, true
}

func (m *memo) set(key string, quote Quote) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		entry := el.Value.(*memoEntry)
		entry.quote = quote
		entry.expiresAt = m.now().Add(m.ttl)
		m.order.MoveToFront(el)
		return
	}
	m.entries[key] = m.order.PushFront(&memoEntry{
		key:       key,
		quote:     quote,
		expiresAt: m.now().Add(m.ttl),
	})
	for len(m.entries) > m.max {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoEntry).key)
	}
}

func (m *memo) invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[key]; ok {
		m.order.Remove(el)
		delete(m.entries, key)
	}
}

func (m *memo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
