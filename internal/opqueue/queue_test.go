package opqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEnqueueAssignsIDs(t *testing.T) {
	q := New(nil, nil)

	id1 := q.Enqueue("saveAnnotation", map[string]interface{}{"text": "a"}, PriorityMedium)
	id2 := q.Enqueue("saveAnnotation", nil, PriorityMedium)

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, q.Len())
}

func TestQueueReplayOrder(t *testing.T) {
	q := New(nil, nil)

	q.Enqueue("low-op", nil, PriorityLow)
	q.Enqueue("high-op", nil, PriorityHigh)
	q.Enqueue("medium-op", nil, PriorityMedium)

	ops := q.Drain()
	require.Len(t, ops, 3)
	assert.Equal(t, "high-op", ops[0].Type)
	assert.Equal(t, "medium-op", ops[1].Type)
	assert.Equal(t, "low-op", ops[2].Type)
	assert.Equal(t, 0, q.Len())
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := New(nil, nil)

	q.Enqueue("first", nil, PriorityMedium)
	q.Enqueue("second", nil, PriorityMedium)
	q.Enqueue("third", nil, PriorityMedium)

	ops := q.Snapshot()
	require.Len(t, ops, 3)
	assert.Equal(t, "first", ops[0].Type)
	assert.Equal(t, "second", ops[1].Type)
	assert.Equal(t, "third", ops[2].Type)
}

func TestQueueRemove(t *testing.T) {
	q := New(nil, nil)

	id := q.Enqueue("op-a", nil, PriorityMedium)
	q.Enqueue("op-b", nil, PriorityMedium)

	assert.True(t, q.Remove(id))
	assert.Equal(t, 1, q.Len())

	assert.False(t, q.Remove(id), "removing twice finds nothing")
	assert.False(t, q.Remove("no-such-id"))
	assert.Equal(t, 1, q.Len())
}

func TestQueueRequeueKeepsIdentity(t *testing.T) {
	q := New(nil, nil)

	q.Enqueue("op", nil, PriorityHigh)
	op := q.Drain()[0]

	op.RetryCount++
	q.Requeue(op)

	ops := q.Snapshot()
	require.Len(t, ops, 1)
	assert.Equal(t, op.ID, ops[0].ID)
	assert.Equal(t, 1, ops[0].RetryCount)
}

func TestQueueIncrementRetry(t *testing.T) {
	q := New(nil, nil)

	id := q.Enqueue("op", nil, PriorityLow)
	q.IncrementRetry(id)
	q.IncrementRetry(id)

	assert.Equal(t, 2, q.Snapshot()[0].RetryCount)
}

func TestPriorityParsing(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("high"))
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityMedium, ParsePriority("medium"))
	assert.Equal(t, PriorityMedium, ParsePriority("bogus"))
	assert.Equal(t, "high", PriorityHigh.String())
}
