package async

import (
	"sync"
	"sync/atomic"
)

// oneshotFired is a sentinel node value meaning "already raised"; any
// real waiter node is a distinct, non-nil pointer, so identity alone
// disambiguates it from the sentinel.
var oneshotFired = &oneshotNode{}

type oneshotNode struct {
	r    Receiver[struct{}]
	next *oneshotNode
}

// A OneshotPrimitive is a lock-free, single-fire signal. Before it is
// raised, [OneshotPrimitive.AsyncWait] pushes waiters onto an
// atomic-pointer singly linked list with a compare-and-swap loop;
// [OneshotPrimitive.Raise] atomically swaps the list for the fired
// sentinel and completes every waiter that was on it. Raising it twice
// is a contract violation and panics, matching the source's assert.
type OneshotPrimitive struct {
	state atomic.Pointer[oneshotNode]
}

// Raise fires p, completing every outstanding waiter. Raise panics if
// p has already been raised.
func (p *OneshotPrimitive) Raise() {
	old := p.state.Swap(oneshotFired)
	if old == oneshotFired {
		panic("async(OneshotPrimitive): raised twice")
	}
	for n := old; n != nil; {
		next := n.next
		n.r.SetValueNoinline(struct{}{})
		n = next
	}
}

// AsyncWait returns a [Sender] that completes once p is raised. It
// completes inline if p has already been raised.
func (p *OneshotPrimitive) AsyncWait() Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		return &oneshotWaitOp{p: p, node: oneshotNode{r: r}}
	})
}

type oneshotWaitOp struct {
	p    *OneshotPrimitive
	node oneshotNode
}

func (op *oneshotWaitOp) StartInline() bool {
	for {
		cur := op.p.state.Load()
		if cur == oneshotFired {
			op.node.r.SetValueInline(struct{}{})
			return true
		}
		op.node.next = cur
		if op.p.state.CompareAndSwap(cur, &op.node) {
			return false
		}
	}
}

// A OneshotEvent is a single-fire signal built directly on a
// [WaitGroup] counting down from one, rather than on
// [OneshotPrimitive]'s lock-free list — the same relationship the
// source's oneshot-event.hpp has to its own wait_group.
type OneshotEvent struct {
	initOnce sync.Once
	raised   int32
	wg       WaitGroup
}

func (e *OneshotEvent) init() {
	e.initOnce.Do(func() { e.wg.Add(1) })
}

// Raise fires e. Raise panics if e has already been raised.
func (e *OneshotEvent) Raise() {
	e.init()
	if !atomic.CompareAndSwapInt32(&e.raised, 0, 1) {
		panic("async(OneshotEvent): raised twice")
	}
	e.wg.Done()
}

// AsyncWait returns a [Sender] that completes once e is raised, or
// token is cancelled first.
func (e *OneshotEvent) AsyncWait(token CancellationToken) Sender[struct{}] {
	e.init()
	return e.wg.AsyncWait(token)
}

// recurringEventState is the lifecycle of one wait_if waiter:
// none -> submitted (queued) -> pending (woken, before callback runs)
// -> retired (callback has run, outcome decided).
type recurringEventState int32

const (
	recurringNone recurringEventState = iota
	recurringSubmitted
	recurringPending
	recurringRetired
)

// A RecurringEvent is a signal that can be raised and waited on
// repeatedly, unlike a one-shot. Each [RecurringEvent.AsyncWaitIf]
// waiter is only actually enqueued if a supplied predicate still holds
// at enqueue time, so a waiter racing a raise that already satisfied
// its condition doesn't need to wait for the next one.
type RecurringEvent struct {
	mu      sync.Mutex
	waiters []*recurringWaiter
}

type recurringWaiter struct {
	evt   *RecurringEvent
	r     Receiver[bool]
	obs   CancellationObserver
	state recurringEventState
}

// Raise wakes every waiter currently queued on e. Waiters that arrive
// after Raise returns are not woken by this call.
func (e *RecurringEvent) Raise() {
	e.mu.Lock()
	items := e.waiters
	e.waiters = nil
	for _, w := range items {
		w.state = recurringPending
	}
	e.mu.Unlock()

	for _, w := range items {
		w.complete()
	}
}

// AsyncWaitIf returns a [Sender] that, if cond returns false when
// checked, completes inline with false (the condition already failed,
// so there's nothing to wait for); otherwise it enqueues and completes
// with true once e is raised, or false if token is cancelled first.
func (e *RecurringEvent) AsyncWaitIf(cond func() bool, token CancellationToken) Sender[bool] {
	return SenderFunc(func(r Receiver[bool]) Operation {
		return &recurringWaitIfOp{evt: e, cond: cond, token: token, r: r}
	})
}

// AsyncWait is AsyncWaitIf with a condition that always holds.
func (e *RecurringEvent) AsyncWait(token CancellationToken) Sender[bool] {
	return e.AsyncWaitIf(func() bool { return true }, token)
}

type recurringWaitIfOp struct {
	evt   *RecurringEvent
	cond  func() bool
	token CancellationToken
	r     Receiver[bool]
	w     recurringWaiter
}

func (op *recurringWaitIfOp) StartInline() bool {
	e := op.evt

	e.mu.Lock()
	if !op.cond() {
		e.mu.Unlock()
		op.w.state = recurringRetired
		op.r.SetValueInline(false)
		return true
	}

	op.w.evt = e
	op.w.r = op.r
	if !op.w.obs.TrySet(op.token, op.w.onCancel) {
		e.mu.Unlock()
		op.w.state = recurringRetired
		op.r.SetValueInline(false)
		return true
	}
	op.w.state = recurringSubmitted
	e.waiters = append(e.waiters, &op.w)
	e.mu.Unlock()

	return false
}

func (w *recurringWaiter) complete() {
	if w.obs.TryReset() {
		w.state = recurringRetired
		w.r.SetValueNoinline(true)
	}
}

func (w *recurringWaiter) onCancel() {
	e := w.evt
	e.mu.Lock()
	if w.state == recurringSubmitted {
		for i, other := range e.waiters {
			if other == w {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				break
			}
		}
	}
	e.mu.Unlock()
	w.state = recurringRetired
	w.r.SetValueNoinline(false)
}

// A SequencedEvent is a signal carrying a monotonically increasing
// sequence number. [SequencedEvent.Raise] increments the counter and
// wakes every waiter whose watched sequence number is now behind it;
// [SequencedEvent.AsyncWait] lets a caller wait for "any raise after
// the sequence number I last observed", which avoids the lost-wakeup
// window a plain signal has if a raise happens between reading a value
// and starting the wait.
type SequencedEvent struct {
	seq     atomic.Uint64
	mu      sync.Mutex
	waiters []*sequencedWaiter
}

type sequencedWaiter struct {
	evt   *SequencedEvent
	inSeq uint64
	r     Receiver[uint64]
	obs   CancellationObserver
}

// Seq returns the current sequence number.
func (e *SequencedEvent) Seq() uint64 { return e.seq.Load() }

// Raise increments e's sequence number and wakes every outstanding
// waiter whose watched sequence number is behind the new one.
func (e *SequencedEvent) Raise() {
	seq := e.seq.Add(1)

	e.mu.Lock()
	var items []*sequencedWaiter
	kept := e.waiters[:0]
	for _, w := range e.waiters {
		if w.inSeq < seq {
			items = append(items, w)
		} else {
			kept = append(kept, w)
		}
	}
	e.waiters = kept
	e.mu.Unlock()

	for _, w := range items {
		w.complete()
	}
}

// AsyncWait returns a [Sender] that completes with the first observed
// sequence number greater than inSeq, or, if token is cancelled first,
// with inSeq itself (or with e's current sequence number if that has
// already moved past inSeq by then). It completes inline if e's
// sequence number is already greater than inSeq.
func (e *SequencedEvent) AsyncWait(inSeq uint64, token CancellationToken) Sender[uint64] {
	return SenderFunc(func(r Receiver[uint64]) Operation {
		return &sequencedWaitOp{evt: e, inSeq: inSeq, token: token, r: r}
	})
}

type sequencedWaitOp struct {
	evt   *SequencedEvent
	inSeq uint64
	token CancellationToken
	r     Receiver[uint64]
	w     sequencedWaiter
}

func (op *sequencedWaitOp) StartInline() bool {
	e := op.evt

	e.mu.Lock()
	cur := e.seq.Load()
	if cur > op.inSeq {
		e.mu.Unlock()
		op.r.SetValueInline(cur)
		return true
	}

	op.w.evt = e
	op.w.inSeq = op.inSeq
	op.w.r = op.r
	if !op.w.obs.TrySet(op.token, op.w.onCancel) {
		e.mu.Unlock()
		op.r.SetValueInline(op.inSeq)
		return true
	}
	e.waiters = append(e.waiters, &op.w)
	e.mu.Unlock()

	return false
}

func (w *sequencedWaiter) complete() {
	if w.obs.TryReset() {
		w.r.SetValueNoinline(w.evt.seq.Load())
	}
}

func (w *sequencedWaiter) onCancel() {
	e := w.evt
	out := e.seq.Load()
	e.mu.Lock()
	if out <= w.inSeq {
		out = w.inSeq
		for i, other := range e.waiters {
			if other == w {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				break
			}
		}
	}
	e.mu.Unlock()
	w.r.SetValueNoinline(out)
}
