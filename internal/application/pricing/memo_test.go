package pricing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoGetSet(t *testing.T) {
	m := newMemo(time.Minute, 8)

	_, ok := m.get("50kg semen")
	assert.False(t, ok)

	m.set("50kg semen", Quote{UnitPrice: 70_000})
	q, ok := m.get("50kg semen")
	assert.True(t, ok)
	assert.Equal(t, int64(70_000), q.UnitPrice)
}

func TestMemoExpiry(t *testing.T) {
	m := newMemo(60*time.Second, 8)
	current := time.Now()
	m.now = func() time.Time { return current }

	m.set("k", Quote{UnitPrice: 1})
	_, ok := m.get("k")
	assert.True(t, ok)

	current = current.Add(61 * time.Second)
	_, ok = m.get("k")
	assert.False(t, ok, "entry expires after the ttl")
	assert.Equal(t, 0, m.len(), "expired entry is evicted on read")
}

func TestMemoLRUEviction(t *testing.T) {
	m := newMemo(time.Minute, 3)
	for i := 0; i < 3; i++ {
		m.set(fmt.Sprintf("k%d", i), Quote{UnitPrice: int64(i)})
	}

	// Touch k0 so k1 becomes the eviction candidate.
	_, ok := m.get("k0")
	assert.True(t, ok)

	m.set("k3", Quote{UnitPrice: 3})
	assert.Equal(t, 3, m.len())

	_, ok = m.get("k1")
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = m.get("k0")
	assert.True(t, ok)
}

func TestMemoInvalidate(t *testing.T) {
	m := newMemo(time.Minute, 8)
	m.set("k", Quote{UnitPrice: 1})
	m.invalidate("k")
	_, ok := m.get("k")
	assert.False(t, ok)

	// Unknown keys are a no-op.
	m.invalidate("unknown")
}

func TestMemoSetReplaces(t *testing.T) {
	m := newMemo(time.Minute, 8)
	m.set("k", Quote{UnitPrice: 1})
	m.set("k", Quote{UnitPrice: 2})
	q, ok := m.get("k")
	assert.True(t, ok)
	assert.Equal(t, int64(2), q.UnitPrice)
	assert.Equal(t, 1, m.len())
}
