package tracker

import (
	"context"
	"sync"
	"time"
)

// Task is a function scheduled to run once after a delay.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	ran    bool
}

// Cancel stops the task if it has not started yet.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the task has run or been cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

// Ran reports whether the function executed. Only meaningful after Done is closed.
func (t *Task) Ran() bool {
	<-t.done
	return t.ran
}

// TaskGroup owns delayed tasks so they can be cancelled together.
type TaskGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex // Orders wg.Add against Close
	closed bool
}

// NewTaskGroup creates a group whose tasks are cancelled with parent.
func NewTaskGroup(parent context.Context) *TaskGroup {
	ctx, cancel := context.WithCancel(parent)
	return &TaskGroup{ctx: ctx, cancel: cancel}
}

// After runs fn once d has elapsed unless the task or the group is cancelled first.
// On a closed group it returns a task that is already cancelled.
func (g *TaskGroup) After(d time.Duration, fn func()) *Task {
	ctx, cancel := context.WithCancel(g.ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		cancel()
		close(t.done)
		return t
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer close(t.done)
		defer cancel()

		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		t.ran = true
		fn()
	}()
	return t
}

// Close cancels every pending task and waits for running ones to finish.
func (g *TaskGroup) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.cancel()
	g.wg.Wait()
}
