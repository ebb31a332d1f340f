package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_Resolved(t *testing.T) {
	f := Resolved(42)

	select {
	case <-f.Done():
	default:
		t.Fatal("resolved future should be done")
	}

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFuture_Rejected(t *testing.T) {
	boom := errors.New("boom")
	v, err := Rejected[string](boom).Await(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, v)
}

func TestFuture_SettlesOnce(t *testing.T) {
	f := newFuture[int]()
	f.settle(1, nil)
	f.settle(2, errors.New("ignored"))

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_AwaitContextCancelled(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The future is still usable after an abandoned wait.
	f.settle(7, nil)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFuture_ManyWaiters(t *testing.T) {
	f := newFuture[string]()
	results := make(chan string, 3)
	for i := 0; i < 3; i++ {
		go func() {
			v, _ := f.Await(context.Background())
			results <- v
		}()
	}
	f.settle("ok", nil)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "ok", <-results)
	}
}
