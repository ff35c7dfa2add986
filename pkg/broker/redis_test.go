package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisBroker(client), mr
}

func TestDispatchAndPop(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Dispatch(ctx, "classify", map[string]any{"message_id": float64(1)}, "1:classify", 0))

	task, err := b.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1:classify", task.ID)
	assert.Equal(t, "classify", task.Name)
	assert.Equal(t, float64(1), task.Args["message_id"])

	_, err = b.Pop(ctx)
	assert.Equal(t, ErrEmpty, err)
}

func TestDispatchDedup(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Dispatch(ctx, "classify", map[string]any{"a": float64(1)}, "1:classify", 0))
	require.NoError(t, b.Dispatch(ctx, "classify", map[string]any{"a": float64(2)}, "1:classify", 0))

	task, err := b.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(1), task.Args["a"], "second dispatch with same task id must be a no-op")

	_, err = b.Pop(ctx)
	assert.Equal(t, ErrEmpty, err)
}

func TestDispatchDelayNotYetReady(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Dispatch(ctx, "normalize", nil, "1:normalize", 50*time.Millisecond))

	_, err := b.Pop(ctx)
	assert.Equal(t, ErrEmpty, err)

	time.Sleep(60 * time.Millisecond)

	task, err := b.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1:normalize", task.ID)
}

func TestRedispatchAfterCompletion(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Dispatch(ctx, "classify", nil, "1:classify", 0))
	_, err := b.Pop(ctx)
	require.NoError(t, err)

	// Once popped, the task is fully consumed; a later legitimate
	// re-dispatch (e.g. a fresh run(message_id)) is accepted again.
	require.NoError(t, b.Dispatch(ctx, "classify", nil, "1:classify", 0))
	task, err := b.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1:classify", task.ID)
}
