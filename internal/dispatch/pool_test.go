package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records Run/Abort calls and can block until released.
type fakeRunner struct {
	mu      sync.Mutex
	ran     []int64
	aborted []int64
	done    map[int64]chan struct{}

	block   chan struct{} // closed to release blocked runs
	started chan int64
	panicOn int64
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		block:   make(chan struct{}),
		started: make(chan int64, 64),
		done:    make(map[int64]chan struct{}),
	}
}

func (r *fakeRunner) Run(ctx context.Context, taskID int64) {
	r.started <- taskID
	<-r.block
	if taskID == r.panicOn {
		panic("task blew up")
	}
	select {
	case <-ctx.Done():
		// canceled while running; fall through and record it anyway
	default:
	}
	r.mu.Lock()
	r.ran = append(r.ran, taskID)
	if ch, ok := r.done[taskID]; ok {
		close(ch)
	}
	r.mu.Unlock()
}

func (r *fakeRunner) Abort(taskID int64) {
	r.mu.Lock()
	r.aborted = append(r.aborted, taskID)
	r.mu.Unlock()
}

func (r *fakeRunner) ranOrder() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64{}, r.ran...)
}

func (r *fakeRunner) abortedIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64{}, r.aborted...)
}

func TestPoolPriorityOrdering(t *testing.T) {
	runner := newFakeRunner()
	runner.done[2] = make(chan struct{}) // priority 1, runs last
	pool := NewPool(runner, 1)

	// Occupy the single worker so later submissions queue up.
	require.NoError(t, pool.Submit(1, 0))
	<-runner.started

	require.NoError(t, pool.Submit(2, 1))
	require.NoError(t, pool.Submit(3, 5))
	require.NoError(t, pool.Submit(4, 5))
	require.NoError(t, pool.Submit(5, 9))

	close(runner.block)
	select {
	case <-runner.done[2]:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain")
	}
	pool.Stop()

	// Highest priority first; equal priorities keep submission order.
	assert.Equal(t, []int64{1, 5, 3, 4, 2}, runner.ranOrder())
}

func TestPoolSubmitIdempotent(t *testing.T) {
	runner := newFakeRunner()
	runner.done[2] = make(chan struct{})
	pool := NewPool(runner, 1)

	require.NoError(t, pool.Submit(1, 0))
	<-runner.started
	require.NoError(t, pool.Submit(2, 0))
	require.NoError(t, pool.Submit(2, 0)) // duplicate while queued
	require.NoError(t, pool.Submit(1, 0)) // duplicate while running

	close(runner.block)
	select {
	case <-runner.done[2]:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain")
	}
	pool.Stop()
	assert.Equal(t, []int64{1, 2}, runner.ranOrder())
}

func TestPoolCancelQueuedTask(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(runner, 1)

	require.NoError(t, pool.Submit(1, 0))
	<-runner.started
	require.NoError(t, pool.Submit(2, 0))

	// Withdrawn before any worker picks it up; the runner owns the
	// canceled transition via Abort.
	require.NoError(t, pool.RequestCancel(2))
	assert.Equal(t, []int64{2}, runner.abortedIDs())

	close(runner.block)
	pool.Stop()
	assert.Equal(t, []int64{1}, runner.ranOrder())
}

func TestPoolCancelRunningTask(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(runner, 1)
	runner.done[1] = make(chan struct{})

	require.NoError(t, pool.Submit(1, 0))
	<-runner.started

	require.NoError(t, pool.RequestCancel(1))
	close(runner.block)

	select {
	case <-runner.done[1]:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish after cancellation")
	}
	pool.Stop()
	assert.Empty(t, runner.abortedIDs(), "running tasks are canceled via context, not Abort")
}

func TestPoolCancelUnknownTask(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(runner, 1)
	defer pool.Stop()

	assert.ErrorIs(t, pool.RequestCancel(77), ErrUnknownTask)
}

func TestPoolSubmitAfterStop(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(runner, 1)
	close(runner.block)
	pool.Stop()

	assert.ErrorIs(t, pool.Submit(1, 0), ErrStopped)
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	runner := newFakeRunner()
	runner.panicOn = 1
	pool := NewPool(runner, 1)

	require.NoError(t, pool.Submit(1, 0))
	<-runner.started
	require.NoError(t, pool.Submit(2, 0))
	close(runner.block)

	// The worker must survive the panic and still execute task 2.
	select {
	case id := <-runner.started:
		assert.Equal(t, int64(2), id)
	case <-time.After(2 * time.Second):
		t.Fatal("worker died with the panicking task")
	}
	pool.Stop()
	assert.Equal(t, []int64{2}, runner.ranOrder())
}

func TestQueueForPriority(t *testing.T) {
	assert.Equal(t, QueueCritical, QueueForPriority(10))
	assert.Equal(t, QueueCritical, QueueForPriority(7))
	assert.Equal(t, QueueDefault, QueueForPriority(6))
	assert.Equal(t, QueueDefault, QueueForPriority(3))
	assert.Equal(t, QueueLow, QueueForPriority(2))
	assert.Equal(t, QueueLow, QueueForPriority(0))
	assert.Equal(t, QueueLow, QueueForPriority(-1))
}
