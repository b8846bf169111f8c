package connectivity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHandlesStartAtOne(t *testing.T) {
	r := NewHandlerRegistry()

	h1 := r.Add(func(context.Context) {})
	h2 := r.Add(func(context.Context) {})

	assert.Equal(t, Handle(1), h1)
	assert.Equal(t, Handle(2), h2)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryHandlesNeverReused(t *testing.T) {
	r := NewHandlerRegistry()

	h1 := r.Add(func(context.Context) {})
	r.Remove(h1)
	h2 := r.Add(func(context.Context) {})

	assert.Equal(t, Handle(1), h1)
	assert.Equal(t, Handle(2), h2)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemoveUnknownIsNoOp(t *testing.T) {
	r := NewHandlerRegistry()
	h := r.Add(func(context.Context) {})

	assert.NotPanics(t, func() {
		r.Remove(Handle(42))
		r.Remove(h)
		r.Remove(h) // double remove
	})
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySnapshotPreservesRegistrationOrder(t *testing.T) {
	r := NewHandlerRegistry()

	var mu sync.Mutex
	var got []int
	record := func(n int) Callback {
		return func(context.Context) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, n)
		}
	}

	r.Add(record(1))
	h2 := r.Add(record(2))
	r.Add(record(3))
	r.Remove(h2)

	for _, cb := range r.snapshot() {
		cb(context.Background())
	}

	assert.Equal(t, []int{1, 3}, got)
}

func TestRegistrySnapshotIsolatedFromMutation(t *testing.T) {
	r := NewHandlerRegistry()

	var calls int
	var h Handle
	h = r.Add(func(context.Context) {
		calls++
		// Removing the handler mid-notification must not affect this round
		r.Remove(h)
	})

	snapshot := r.snapshot()
	require.Len(t, snapshot, 1)
	snapshot[0](context.Background())

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.snapshot())
}

func TestRegistryConcurrentAddRemove(t *testing.T) {
	r := NewHandlerRegistry()

	var wg sync.WaitGroup
	handles := make([][]Handle, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				handles[worker] = append(handles[worker], r.Add(func(context.Context) {}))
			}
		}(i)
	}
	wg.Wait()

	// All handles are unique
	seen := make(map[Handle]bool)
	for _, hs := range handles {
		for _, h := range hs {
			assert.False(t, seen[h], "handle %d issued twice", h)
			seen[h] = true
		}
	}
	assert.Equal(t, 400, r.Len())

	for _, hs := range handles {
		for _, h := range hs {
			r.Remove(h)
		}
	}
	assert.Equal(t, 0, r.Len())
}
