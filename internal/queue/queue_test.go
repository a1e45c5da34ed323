package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestQueueRunsJobsAndReportsErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewRequestQueueManager(4, 2)
	var ran atomic.Int32
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		errc := make(chan error, 1)
		fail := i == 3
		require.NoError(t, q.EnqueueJob(context.Background(), Job{
			Fn: func() error {
				ran.Add(1)
				if fail {
					return boom
				}
				return nil
			},
			Errc: errc,
		}))
		err := <-errc
		if fail {
			assert.ErrorIs(t, err, boom)
		} else {
			assert.NoError(t, err)
		}
	}

	q.Shutdown()
	assert.Equal(t, int32(5), ran.Load())
}

func TestQueueRecoversPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewRequestQueueManager(1, 1)
	defer q.Shutdown()

	errc := make(chan error, 1)
	require.NoError(t, q.EnqueueJob(context.Background(), Job{
		Fn:   func() error { panic("bad handler") },
		Errc: errc,
	}))
	assert.ErrorContains(t, <-errc, "bad handler")
}

func TestEnqueueAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewRequestQueueManager(1, 1)
	q.Shutdown()
	q.Shutdown()

	err := q.EnqueueJob(context.Background(), Job{Fn: func() error { return nil }})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEnqueueHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewRequestQueueManager(0, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, q.EnqueueJob(context.Background(), Job{Fn: func() error {
		close(started)
		<-block
		return nil
	}}))
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.EnqueueJob(ctx, Job{Fn: func() error { return nil }})
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
	q.Shutdown()
}
