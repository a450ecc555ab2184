package async

import "sync"

// A CancellationEvent is a mutable signal with two states, pristine and
// raised. Once raised it may be [CancellationEvent.Reset]. Registered
// callbacks fire at most once per raise; callbacks registered while the
// event is already raised fire synchronously, inside the call that
// registers them.
//
// Grounded on the source's jump.hpp: Cancel splices the callback list out
// under the lock, then invokes the spliced callbacks outside the lock.
// This is the "newest" of the two conflicting patterns the source mixes
// (the older cancellation.hpp invokes callbacks while still holding the
// lock); per spec.md §9 this repo preserves only the splice-then-invoke
// one.
//
// A CancellationEvent is safe for concurrent use.
type CancellationEvent struct {
	mu      sync.Mutex
	raised  bool
	nextID  uint64
	callbacks []cancellationCallbackNode
}

type cancellationCallbackNode struct {
	id uint64
	f  func()
}

// IsRaised reports whether e has been raised and not yet reset.
func (e *CancellationEvent) IsRaised() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raised
}

// Cancel raises e. If e is already raised, Cancel is a no-op (raising
// twice is not a contract violation for an event, unlike a one-shot
// primitive — repeated cancellation requests collapse into one).
func (e *CancellationEvent) Cancel() {
	e.mu.Lock()
	if e.raised {
		e.mu.Unlock()
		return
	}
	e.raised = true
	cbs := e.callbacks
	e.callbacks = nil
	e.mu.Unlock()

	for _, cb := range cbs {
		cb.f()
	}
}

// Reset clears the raised state of e. The caller must ensure no
// registered callback is concurrently running.
func (e *CancellationEvent) Reset() {
	e.mu.Lock()
	e.raised = false
	e.mu.Unlock()
}

// register adds f as a callback, returning its id for later removal. If e
// is already raised, f fires synchronously and no id is registered (0 is
// returned; deregister(0) is a no-op).
func (e *CancellationEvent) register(f func()) uint64 {
	e.mu.Lock()
	if e.raised {
		e.mu.Unlock()
		f()
		return 0
	}
	e.nextID++
	id := e.nextID
	e.callbacks = append(e.callbacks, cancellationCallbackNode{id: id, f: f})
	e.mu.Unlock()
	return id
}

func (e *CancellationEvent) deregister(id uint64) {
	if id == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.raised {
		// Either the callback already ran, or is about to, from the
		// spliced-out copy Cancel holds outside the lock. Either way
		// there's nothing left in e.callbacks to remove.
		return
	}
	for i, cb := range e.callbacks {
		if cb.id == id {
			e.callbacks = append(e.callbacks[:i], e.callbacks[i+1:]...)
			return
		}
	}
}

// A CancellationToken is a non-owning reference to zero or one
// [CancellationEvent]. Copying a token is free.
type CancellationToken struct {
	event *CancellationEvent
}

// TokenFor returns a token referring to e. If e is nil, the returned token
// never reports cancellation.
func TokenFor(e *CancellationEvent) CancellationToken {
	return CancellationToken{event: e}
}

// IsCancellationRequested reports whether the token's event, if any, is
// raised.
func (t CancellationToken) IsCancellationRequested() bool {
	return t.event != nil && t.event.IsRaised()
}

// A CancellationCallback registers f with the token's event for its
// lifetime. If the event is already raised, f runs synchronously inside
// NewCancellationCallback. Call Close to deregister; Close is idempotent.
type CancellationCallback struct {
	event *CancellationEvent
	id    uint64
	done  bool
}

// NewCancellationCallback registers f against t's event, if any.
func NewCancellationCallback(t CancellationToken, f func()) *CancellationCallback {
	cb := &CancellationCallback{event: t.event}
	if t.event != nil {
		cb.id = t.event.register(f)
	}
	return cb
}

// Close deregisters the callback. Safe to call multiple times.
func (cb *CancellationCallback) Close() {
	if cb.done || cb.event == nil {
		cb.done = true
		return
	}
	cb.done = true
	cb.event.deregister(cb.id)
}

// A CancellationObserver is a cancellation-handler slot that can be armed
// with a token ([CancellationObserver.TrySet]) and disarmed
// ([CancellationObserver.TryReset]). Operations that need to register a
// cancellation callback only for the duration of their awaiting use this
// instead of a bare [CancellationCallback], because arm/disarm must race
// safely against the event firing concurrently.
//
// Observers are either idle or registered with exactly one event; TrySet
// and TryReset are the only transitions (spec.md §3 invariant).
type CancellationObserver struct {
	mu  sync.Mutex
	cb  *CancellationCallback
	hit bool
}

// TrySet arms the observer with t, calling onCancel if/when t's event
// raises. It returns false if t's event is already raised (in which case
// the observer stays idle and the caller must treat cancellation as
// having occurred) — this is the "raced" signal from spec.md §4.3.
func (o *CancellationObserver) TrySet(t CancellationToken, onCancel func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if t.event == nil {
		return true
	}
	if t.event.IsRaised() {
		return false
	}
	o.hit = false
	o.cb = NewCancellationCallback(t, func() {
		o.mu.Lock()
		if o.cb == nil {
			o.mu.Unlock()
			return // TryReset already disarmed o and reported a win.
		}
		o.hit = true
		o.mu.Unlock()
		onCancel()
	})
	// The event may have raised between the IsRaised check and
	// registration; register() handles that by firing onCancel
	// synchronously in that case, which is fine: o.hit above only
	// matters for racing TryReset calls, and NewCancellationCallback's
	// synchronous path already ran the callback before returning here.
	return true
}

// TryReset disarms the observer. It returns true if it won the race
// against the event firing (the caller may proceed as if not cancelled);
// it returns false if the event already fired or is firing concurrently
// (the caller must treat this as cancelled, exactly as if TrySet had
// returned false).
func (o *CancellationObserver) TryReset() bool {
	o.mu.Lock()
	cb := o.cb
	hit := o.hit
	o.cb = nil
	o.mu.Unlock()
	if cb != nil {
		cb.Close()
	}
	return !hit
}

// SuspendIndefinitely returns a [Sender] that installs an observer on each
// of tokens and completes with struct{}{} when any of them fires. It
// completes inline if any token is already cancelled.
func SuspendIndefinitely(tokens ...CancellationToken) Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		return &suspendIndefinitelyOp{tokens: tokens, r: r}
	})
}

type suspendIndefinitelyOp struct {
	tokens     []CancellationToken
	r          Receiver[struct{}]
	mu         sync.Mutex
	fired      bool
	observers  []*CancellationObserver
}

func (op *suspendIndefinitelyOp) StartInline() bool {
	for _, t := range op.tokens {
		if t.IsCancellationRequested() {
			op.r.SetValueInline(struct{}{})
			return true
		}
	}

	op.observers = make([]*CancellationObserver, len(op.tokens))
	for i, t := range op.tokens {
		obs := new(CancellationObserver)
		op.observers[i] = obs
		if !obs.TrySet(t, op.fire) {
			return op.completeInline()
		}
	}
	return false
}

// completeInline handles a TrySet call discovering its token already
// cancelled, racing the IsCancellationRequested pre-check in StartInline.
// It must report the same "completed synchronously" contract as that
// pre-check: disarm whatever observers are already armed and complete the
// receiver inline. If a concurrently firing observer has already won the
// race and completed the receiver via fire, there is nothing left to do
// here and the completion was not synchronous, so it returns false.
func (op *suspendIndefinitelyOp) completeInline() bool {
	op.mu.Lock()
	if op.fired {
		op.mu.Unlock()
		return false
	}
	op.fired = true
	op.mu.Unlock()

	for _, obs := range op.observers {
		if obs != nil {
			obs.TryReset()
		}
	}
	op.r.SetValueInline(struct{}{})
	return true
}

func (op *suspendIndefinitelyOp) fire() {
	op.mu.Lock()
	if op.fired {
		op.mu.Unlock()
		return
	}
	op.fired = true
	op.mu.Unlock()

	for _, obs := range op.observers {
		if obs != nil {
			obs.TryReset()
		}
	}
	op.r.SetValueNoinline(struct{}{})
}
