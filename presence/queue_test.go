package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()
	require.NoError(t, q.push(Connect{}))
	require.NoError(t, q.push(UpdateActivity{Title: "a"}))
	require.NoError(t, q.push(Disconnect{}))

	ctx := context.Background()
	for _, want := range []Command{Connect{}, UpdateActivity{Title: "a"}, Disconnect{}} {
		got, ok := q.pop(ctx)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.len())
}

func TestQueue_PushAfterClose(t *testing.T) {
	q := newQueue()
	q.close()

	err := q.push(Connect{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_DrainsAfterClose(t *testing.T) {
	q := newQueue()
	require.NoError(t, q.push(Connect{}))
	require.NoError(t, q.push(ClearActivity{}))
	q.close()

	ctx := context.Background()
	cmd, ok := q.pop(ctx)
	require.True(t, ok)
	assert.Equal(t, Connect{}, cmd)

	cmd, ok = q.pop(ctx)
	require.True(t, ok)
	assert.Equal(t, ClearActivity{}, cmd)

	_, ok = q.pop(ctx)
	assert.False(t, ok)
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	q := newQueue()
	got := make(chan Command, 1)

	go func() {
		cmd, ok := q.pop(context.Background())
		if ok {
			got <- cmd
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.push(Disconnect{}))

	select {
	case cmd := <-got:
		assert.Equal(t, Disconnect{}, cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not return after push")
	}
}

func TestQueue_PopHonoursContext(t *testing.T) {
	q := newQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.pop(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not return after cancel")
	}
}

func TestQueue_Unbounded(t *testing.T) {
	q := newQueue()
	for i := 0; i < 10000; i++ {
		require.NoError(t, q.push(ClearActivity{}))
	}
	assert.Equal(t, 10000, q.len())
}
