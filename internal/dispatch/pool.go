package dispatch

import (
	"container/heap"
	"context"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

// poolItem is one queued task.
type poolItem struct {
	taskID   int64
	priority int
	seq      uint64 // submission order, breaks priority ties FIFO
	index    int    // heap index, maintained by itemHeap
}

// itemHeap orders by descending priority, then ascending submission order.
// The order is total, so a burst of high-priority work cannot starve older
// low-priority tasks indefinitely once it subsides.
type itemHeap []*poolItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	item := x.(*poolItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Pool is the in-process Dispatcher: a bounded set of worker goroutines
// pulling from a single priority queue. Each worker runs at most one task at
// a time; a fault in one task never affects another.
type Pool struct {
	runner Runner

	mu      sync.Mutex
	cond    *sync.Cond
	heap    itemHeap
	queued  map[int64]*poolItem
	running map[int64]context.CancelFunc
	seq     uint64
	stopped bool
	wg      sync.WaitGroup
}

var _ Dispatcher = (*Pool)(nil)

// NewPool starts workers goroutines draining the queue.
func NewPool(runner Runner, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		runner:  runner,
		queued:  make(map[int64]*poolItem),
		running: make(map[int64]context.CancelFunc),
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Submit(taskID int64, priority int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	if _, ok := p.queued[taskID]; ok {
		return nil // already queued, submission is idempotent
	}
	if _, ok := p.running[taskID]; ok {
		return nil
	}
	p.seq++
	item := &poolItem{taskID: taskID, priority: priority, seq: p.seq}
	heap.Push(&p.heap, item)
	p.queued[taskID] = item
	p.cond.Signal()
	return nil
}

func (p *Pool) RequestCancel(taskID int64) error {
	p.mu.Lock()
	if item, ok := p.queued[taskID]; ok {
		heap.Remove(&p.heap, item.index)
		delete(p.queued, taskID)
		p.mu.Unlock()
		// The task never started; the runner owns the canceled transition.
		p.abort(taskID)
		return nil
	}
	if cancel, ok := p.running[taskID]; ok {
		p.mu.Unlock()
		cancel()
		return nil
	}
	p.mu.Unlock()
	return ErrUnknownTask
}

// Stop drains the pool: queued-but-unstarted items are discarded (their rows
// stay pending and are eligible for resubmission), running tasks finish
// naturally, then workers exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.heap = nil
	p.queued = make(map[int64]*poolItem)
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.heap) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		item := heap.Pop(&p.heap).(*poolItem)
		delete(p.queued, item.taskID)
		ctx, cancel := context.WithCancel(context.Background())
		p.running[item.taskID] = cancel
		p.mu.Unlock()

		p.execute(ctx, item.taskID)

		p.mu.Lock()
		delete(p.running, item.taskID)
		p.mu.Unlock()
		cancel()
	}
}

// execute isolates a single task invocation so a panic cannot take down the
// worker or any other task.
func (p *Pool) execute(ctx context.Context, taskID int64) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"task_id": taskID, "panic": r}).
				Errorf("Recovered panic while executing task:\n%s", debug.Stack())
		}
	}()
	p.runner.Run(ctx, taskID)
}

func (p *Pool) abort(taskID int64) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"task_id": taskID, "panic": r}).
				Error("Recovered panic while aborting task")
		}
	}()
	p.runner.Abort(taskID)
}
