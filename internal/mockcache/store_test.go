package mockcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGet(t *testing.T) {
	s := NewStore(10, time.Minute, nil, nil)

	s.Set("fetchMetrics", "payload")
	value, ok := s.Get("fetchMetrics")
	require.True(t, ok)
	assert.Equal(t, "payload", value)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStoreZeroTTLNeverServed(t *testing.T) {
	s := NewStore(10, time.Minute, nil, nil)

	s.SetWithTTL("fetchReport", "stale", 0)
	_, ok := s.Get("fetchReport")
	assert.False(t, ok, "a zero TTL entry is expired on arrival")
	assert.Equal(t, 0, s.Len(), "the expired entry is removed on read")
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(10, time.Minute, nil, nil)

	s.SetWithTTL("fetchMetrics", "payload", 20*time.Millisecond)
	_, ok := s.Get("fetchMetrics")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = s.Get("fetchMetrics")
	assert.False(t, ok)
}

func TestStoreEvictsOldestAtCapacity(t *testing.T) {
	s := NewStore(3, time.Minute, nil, nil)

	for i := 0; i < 3; i++ {
		s.SetWithTTL(fmt.Sprintf("key-%d", i), i, time.Minute)
		time.Sleep(time.Millisecond)
	}
	s.Set("key-3", 3)

	assert.Equal(t, 3, s.Len())
	_, ok := s.Get("key-0")
	assert.False(t, ok, "the oldest entry is dropped to make room")
	_, ok = s.Get("key-3")
	assert.True(t, ok)
}

func TestStoreOverwriteDoesNotEvict(t *testing.T) {
	s := NewStore(2, time.Minute, nil, nil)

	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 10)

	assert.Equal(t, 2, s.Len())
	value, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, value)
	_, ok = s.Get("b")
	assert.True(t, ok)
}

func TestStoreEvictsEmptyStringKey(t *testing.T) {
	s := NewStore(1, time.Minute, nil, nil)

	s.Set("", "unnamed")
	s.Set("named", "value")

	assert.Equal(t, 1, s.Len(), "an empty-string key is evictable like any other")
	_, ok := s.Get("")
	assert.False(t, ok)
	_, ok = s.Get("named")
	assert.True(t, ok)
}

func TestStoreReconfigure(t *testing.T) {
	s := NewStore(5, time.Minute, nil, nil)

	for i := 0; i < 5; i++ {
		s.SetWithTTL(fmt.Sprintf("key-%d", i), i, time.Minute)
		time.Sleep(time.Millisecond)
	}

	s.Reconfigure(2, time.Hour)
	assert.Equal(t, 2, s.Len(), "shrinking evicts the oldest entries")
	_, ok := s.Get("key-0")
	assert.False(t, ok)
	_, ok = s.Get("key-4")
	assert.True(t, ok)

	// New writes pick up the retuned default TTL.
	s.Set("fresh", "value")
	_, ok = s.Get("fresh")
	assert.True(t, ok)
}

func TestStoreClear(t *testing.T) {
	s := NewStore(5, time.Minute, nil, nil)
	s.Set("a", 1)
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestGenerateMockIsMarked(t *testing.T) {
	for _, opType := range []string{"fetchMetrics", "fetchReport", "fetchDashboard", "anything"} {
		payload := GenerateMock(opType)
		assert.Equal(t, true, payload["mock"], opType)
		assert.NotEmpty(t, payload["generated_at"], opType)
	}
}
