package async

import "sync"

// An Executor is a [Coroutine] spawner and a [Task] runner: the concrete
// "optional cooperative run-queue" embedder mentioned in spec.md §2 and §6.
//
// When a Coroutine is spawned or resumed, it is added into an internal
// queue. The Run method then pops and runs each of them from the queue
// until the queue is emptied. It is done in a single-threaded manner.
// If one Coroutine blocks, no other Coroutines can run.
// The best practice is not to block.
//
// The internal queue is a priority queue. Coroutines are sorted by weight
// (see [Executor.Spawn] / [Coroutine.Spawn]) and then by nesting level, so
// that, for coroutines of equal weight, shallower ones run before deeper
// (child) ones. Coroutines with the same weight and level are run in
// their arrival order (FIFO).
//
// Manually calling the Run method is usually not desired. One would
// instead use the Autorun method to set up an autorun function to call
// the Run method automatically whenever a Coroutine is spawned or
// resumed. The Executor never calls the autorun function twice at the
// same time.
type Executor struct {
	mu      sync.Mutex
	pq      priorityqueue[*Coroutine]
	running bool
	autorun func()
	pool    sync.Pool

	// ps accumulates panics propagated by root coroutines that were
	// themselves panicking when they ended; Run re-panics with these
	// after the queue empties.
	ps panicstack
}

func (e *Executor) coroutinePool() *sync.Pool { return &e.pool }

// Autorun sets up an autorun function to call the Run method
// automatically whenever a [Coroutine] is spawned or resumed.
//
// One must pass a function that calls the Run method.
//
// If f blocks, the Spawn method may block too. The best practice is not
// to block.
func (e *Executor) Autorun(f func()) {
	e.autorun = f
}

// Run pops and runs every [Coroutine] in the queue until the queue is
// emptied. If any root coroutine ended while panicking, Run panics after
// the queue empties, with the value of the most recent of those
// unrecovered panics.
//
// Run must not be called twice at the same time.
func (e *Executor) Run() {
	e.mu.Lock()
	e.running = true

	for !e.pq.Empty() {
		co := e.pq.Pop()
		e.runCoroutine(co)
	}

	e.running = false

	ps := e.ps
	e.ps = nil
	e.mu.Unlock()

	if len(ps) != 0 {
		panic(ps[len(ps)-1].value)
	}
}

// Spawn creates a [Coroutine] with weight 0 to work on t.
//
// The Coroutine is added to the queue. To run it, either call the Run
// method, or call the Autorun method to set up an autorun function
// beforehand.
//
// Spawn is safe for concurrent use.
func (e *Executor) Spawn(t Task) {
	e.SpawnWeighted(0, t)
}

// SpawnWeighted is like Spawn but lets the caller pick co's scheduling
// weight, used to prioritize some root coroutines' runs over others.
// Coroutines with a greater weight run first.
func (e *Executor) SpawnWeighted(weight Weight, t Task) {
	co := e.newCoroutine().init(e, t).recyclable().withWeight(weight)

	var autorun func()

	e.mu.Lock()
	if !e.running && e.autorun != nil {
		e.running = true
		autorun = e.autorun
	}
	e.pq.Push(co)
	co.flag |= flagResumed | flagEnqueued
	e.mu.Unlock()

	if autorun != nil {
		autorun()
	}
}
