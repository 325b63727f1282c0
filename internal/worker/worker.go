package worker

import (
	"context"
	"document-vault/internal/logger"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

// Pool runs fire-and-forget work (cache invalidation, hub notifies) off the
// request path. Tasks are dropped, not blocked on, when the queue is full.
type Pool struct {
	taskQueue   chan Task
	wg          sync.WaitGroup
	isClosing   atomic.Bool // thread-safe value
	taskTimeout time.Duration
}

func NewPool(size int) *Pool {
	wp := &Pool{
		taskQueue:   make(chan Task, 1000), // Buffer for 1000 pending tasks
		taskTimeout: 10 * time.Second,
	}

	// Start the workers
	for range size {
		wp.wg.Add(1) // add to WaitGroup
		go wp.startWorker()
	}

	return wp
}

func (wp *Pool) startWorker() {
	defer wp.wg.Done() // signal when worker finished
	for task := range wp.taskQueue {
		ctx, cancel := context.WithTimeout(context.Background(), wp.taskTimeout)
		if err := task(ctx); err != nil { // run task
			logger.L().Warn("worker task failed", zap.Error(err))
		}
		cancel()
	}
}

func (wp *Pool) Submit(t Task) {
	if wp.isClosing.Load() {
		logger.L().Warn("task submitted during shutdown, dropping")
		return
	}
	select {
	case wp.taskQueue <- t: // send task to worker pool
	default:
		logger.L().Warn("task queue full, dropping task")
	}
}

// Shutdown closes the queue and waits for workers to finish
func (wp *Pool) Shutdown() {
	wp.isClosing.Store(true)
	close(wp.taskQueue) // Stop accepting new tasks
	wp.wg.Wait()        // Wait for all active workers to finish tasks
}
