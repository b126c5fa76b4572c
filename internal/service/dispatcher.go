package service

import (
	"context"
	"sync"
	"time"

	"github.com/dineflow/payment-service/pkg/logger"
)

// Task is a unit of webhook side-effect work executed after the HTTP
// response has been sent.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher executes tasks on a fixed pool of workers. It decouples webhook
// acknowledgement from reconciliation work: a submitted task carries no
// ordering guarantee relative to later requests, and its failure cannot be
// surfaced to the delivery that produced it, only logged.
type Dispatcher struct {
	tasks       chan Task
	taskTimeout time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once
	log         *logger.Logger
}

// NewDispatcher starts a dispatcher with the given worker count and queue
// capacity.
func NewDispatcher(workers, queueSize int, taskTimeout time.Duration, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		tasks:       make(chan Task, queueSize),
		taskTimeout: taskTimeout,
		log:         log,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// Submit enqueues a task. Returns false when the queue is full; the caller
// decides whether that is tolerable (for webhook work it is logged and the
// delivery is still acknowledged).
func (d *Dispatcher) Submit(task Task) bool {
	select {
	case d.tasks <- task:
		return true
	default:
		d.log.Errorw("Dispatcher queue full, dropping task", "task", task.Name)
		return false
	}
}

// Close stops accepting tasks and waits for queued work to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.tasks)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for task := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), d.taskTimeout)
		start := time.Now()

		if err := task.Run(ctx); err != nil {
			d.log.Errorw("Background task failed",
				"task", task.Name,
				"error", err,
				"duration", time.Since(start).String(),
			)
		} else {
			d.log.Debugw("Background task finished",
				"task", task.Name,
				"duration", time.Since(start).String(),
			)
		}

		cancel()
	}
}
