package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_RunsSubmittedTasks(t *testing.T) {
	d := NewDispatcher(2, 8, time.Second, testLogger())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		ok := d.Submit(Task{
			Name: "count",
			Run: func(ctx context.Context) error {
				ran.Add(1)
				return nil
			},
		})
		assert.True(t, ok)
	}

	d.Close()
	assert.Equal(t, int32(5), ran.Load())
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(1, 1, time.Second, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})

	// First task occupies the worker, second fills the queue.
	assert.True(t, d.Submit(Task{
		Name: "block",
		Run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started
	assert.True(t, d.Submit(Task{Name: "queued", Run: func(ctx context.Context) error { return nil }}))

	dropped := d.Submit(Task{Name: "dropped", Run: func(ctx context.Context) error { return nil }})
	assert.False(t, dropped)

	close(release)
	d.Close()
}

func TestDispatcher_TaskTimeoutCancelsContext(t *testing.T) {
	d := NewDispatcher(1, 1, 10*time.Millisecond, testLogger())

	done := make(chan error, 1)
	d.Submit(Task{
		Name: "slow",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			done <- ctx.Err()
			return ctx.Err()
		},
	})

	d.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	default:
		t.Fatal("task was never cancelled")
	}
}
