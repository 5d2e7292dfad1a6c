package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidThreads(t *testing.T) {
	for _, n := range []int{0, -1} {
		h, err := New[int]("bad", n, func(int) error { return nil })
		assert.ErrorIs(t, err, ErrInvalidThreads)
		assert.Nil(t, h)
	}
}

func TestHandler_ProcessesEveryItem(t *testing.T) {
	var sum atomic.Int64
	var calls atomic.Int32
	h, err := New("sum", 4, func(i int) error {
		sum.Add(int64(i))
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 1; i <= 1000; i++ {
		require.NoError(t, h.Send(ctx, i))
	}
	require.NoError(t, h.Complete())
	assert.Equal(t, int64(500500), sum.Load())
	assert.Equal(t, int32(1000), calls.Load())
}

func TestHandler_ConcurrentProducers(t *testing.T) {
	var count atomic.Int32
	h, err := New("count", 3, func(string) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < 5; p++ {
		wg.Add(1)
		go func(ch SendHandle[string]) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.NoError(t, ch.Send(context.Background(), "x"))
			}
		}(h.Channel())
	}
	wg.Wait()

	require.NoError(t, h.Complete())
	assert.Equal(t, int32(1000), count.Load())
}

func TestHandler_FailureAbortsSends(t *testing.T) {
	h, err := New("fail", 3, func(i int) error {
		if i == 7 {
			return fmt.Errorf("bad item %d", i)
		}
		return nil
	})
	require.NoError(t, err)

	var sendErr error
	for i := 1; i <= 10000 && sendErr == nil; i++ {
		sendErr = h.Send(context.Background(), i)
	}
	require.Error(t, sendErr, "sends must start failing once a worker failed")
	assert.ErrorIs(t, sendErr, ErrAborted)
	assert.Contains(t, sendErr.Error(), "bad item 7")

	err = h.Complete()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "bad item 7")
}

func TestHandler_FirstErrorWins(t *testing.T) {
	gate := make(chan struct{})
	var secondDone atomic.Bool
	h, err := New("first", 2, func(i int) error {
		switch i {
		case 1:
			return errors.New("first failure")
		case 2:
			<-gate
			secondDone.Store(true)
			return errors.New("second failure")
		}
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.Send(ctx, 2))
	require.NoError(t, h.Send(ctx, 1))

	// wait until the first failure is visible to producers
	require.Eventually(t, func() bool {
		return h.Send(ctx, 3) != nil
	}, 5*time.Second, time.Millisecond)

	close(gate)
	err = h.Complete()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failure")
	assert.NotContains(t, err.Error(), "second failure")
	assert.True(t, secondDone.Load(), "in flight items are not cancelled")
}

func TestHandler_QueuedItemsRunAfterAbort(t *testing.T) {
	gate := make(chan struct{})
	var processed atomic.Int32
	h, err := New("drain", 1, func(i int) error {
		if i == 0 {
			<-gate
			return errors.New("boom")
		}
		processed.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.Send(ctx, 0))
	// returns once the worker holds item 0, item 1 then waits in the queue
	require.NoError(t, h.Send(ctx, 1))

	close(gate)
	err = h.Complete()
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, int32(1), processed.Load())
}

func TestHandler_WorkerPanic(t *testing.T) {
	var processed atomic.Int32
	h, err := New("panicky", 2, func(i int) error {
		if i == 5 {
			panic("boom")
		}
		processed.Add(1)
		return nil
	})
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		require.NoError(t, h.Send(context.Background(), i))
	}
	err = h.Complete()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAborted)
	assert.Regexp(t, `^thread panicky \([01]\) panicked: boom$`, err.Error())
	assert.Equal(t, int32(9), processed.Load(), "the surviving worker handles the rest")
}

func TestHandler_AllWorkersGone(t *testing.T) {
	h, err := New("doomed", 2, func(int) error {
		panic("always")
	})
	require.NoError(t, err)

	var sendErr error
	for i := 0; i < 1000 && sendErr == nil; i++ {
		sendErr = h.Send(context.Background(), i)
	}
	assert.ErrorIs(t, sendErr, ErrChannelClosed)

	err = h.Complete()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thread doomed (0) panicked: always")
	assert.Contains(t, err.Error(), "thread doomed (1) panicked: always")
	assert.Contains(t, err.Error(), "\n")
}

func TestHandler_CompleteOnce(t *testing.T) {
	h, err := New("once", 2, func(int) error { return nil })
	require.NoError(t, err)

	require.NoError(t, h.Send(context.Background(), 1))
	assert.NoError(t, h.Complete())
	assert.ErrorIs(t, h.Complete(), ErrCompleted)
	assert.ErrorIs(t, h.Send(context.Background(), 2), ErrChannelClosed)
	assert.ErrorIs(t, h.Channel().Send(context.Background(), 2), ErrChannelClosed)

	assert.NotPanics(t, func() {
		h.Close()
		h.Close()
	})
}

func TestHandler_CloseDiscardsErrors(t *testing.T) {
	h, err := New("close", 1, func(int) error { return errors.New("ignored") })
	require.NoError(t, err)
	require.NoError(t, h.Send(context.Background(), 1))

	h.Close()
	assert.ErrorIs(t, h.Send(context.Background(), 2), ErrAborted)
	// Complete after Close still reports what happened
	assert.ErrorIs(t, h.Complete(), ErrAborted)
}

func TestHandler_ContextCancel(t *testing.T) {
	gate := make(chan struct{})
	h, err := New("ctx", 1, func(int) error {
		<-gate
		return nil
	})
	require.NoError(t, err)
	defer h.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Send(cancelled, 1), context.Canceled)

	ctx := context.Background()
	require.NoError(t, h.Send(ctx, 1))
	require.NoError(t, h.Send(ctx, 2))

	// one item is held by the worker and one sits in the queue, so this
	// send blocks until the context expires
	timeout, cancelTimeout := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelTimeout()
	assert.ErrorIs(t, h.Send(timeout, 3), context.DeadlineExceeded)

	close(gate)
	assert.NoError(t, h.Complete())
}

func TestHandler_BlockedSendWakesOnAbort(t *testing.T) {
	gate := make(chan struct{})
	h, err := New("wake", 1, func(i int) error {
		<-gate
		return errors.New("stop")
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.Send(ctx, 1))
	require.NoError(t, h.Send(ctx, 2))

	done := make(chan error, 1)
	go func() {
		var err error
		for err == nil {
			err = h.Send(ctx, 3)
		}
		done <- err
	}()

	close(gate)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAborted)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked sender was not woken up")
	}
	assert.ErrorIs(t, h.Complete(), ErrAborted)
}
