package inflight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAcquireIsExclusivePerKey(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "enroll:a")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "enroll:a")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := g.Acquire(ctx, "enroll:b")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, g.Held("enroll:a"))

	again, err := g.Acquire(ctx, "enroll:a")
	require.NoError(t, err)
	again()
}

func TestMemoryReleaseIsIdempotent(t *testing.T) {
	g := NewMemory()
	release, err := g.Acquire(context.Background(), "k")
	require.NoError(t, err)

	release()
	second, err := g.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// A stale release must not drop the new holder's lease.
	release()
	assert.True(t, g.Held("k"))
	second()
}

func TestMemoryConcurrentAcquireSingleWinner(t *testing.T) {
	g := NewMemory()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Acquire(context.Background(), "same"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
