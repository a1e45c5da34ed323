package queue

import (
	"contacts-backend/internal/logger"
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrQueueClosed = errors.New("queue: closed")

type Job struct {
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs jobs on a fixed pool of workers fed by a bounded channel.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewRequestQueueManager(queueSize int, maxWorkers int) *RequestQueueManager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			logger.Debug("queue worker started", "worker", workerID)
			for job := range rqm.JobQueue {
				err := runJob(job.Fn)
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			logger.Debug("queue worker stopped", "worker", workerID)
		}(i)
	}
}

func runJob(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: job panicked: %v", r)
		}
	}()
	return fn()
}

// EnqueueJob blocks until the job is queued, ctx is done, or the queue is shut down.
func (rqm *RequestQueueManager) EnqueueJob(ctx context.Context, job Job) error {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()
	if rqm.closed {
		return ErrQueueClosed
	}

	select {
	case rqm.JobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth is the number of jobs waiting for a worker.
func (rqm *RequestQueueManager) Depth() int {
	return len(rqm.JobQueue)
}

func (rqm *RequestQueueManager) Shutdown() {
	rqm.mu.Lock()
	if rqm.closed {
		rqm.mu.Unlock()
		return
	}
	rqm.closed = true
	close(rqm.JobQueue)
	rqm.mu.Unlock()
	rqm.wg.Wait()
}
