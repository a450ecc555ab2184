package async

import "sync"

// A FutureResult is what [Future.AsyncGet] completes with: OK is
// false only if the wait was cancelled before the promise received a
// value.
type FutureResult[T any] struct {
	Value T
	OK    bool
}

type promiseState[T any] struct {
	mu       sync.Mutex
	hasValue bool
	value    T
	waiters  []*futureWaiter[T]
}

func (s *promiseState[T]) wake() {
	s.mu.Lock()
	items := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range items {
		w.complete()
	}
}

// A Promise is the write end of a promise/future pair: [Promise.SetValue]
// may be called exactly once, from any goroutine. Unlike the source's
// promise<T,Allocator>, there is no explicit reference count or shared
// allocator to manage — the Go garbage collector keeps the shared state
// alive for as long as either the Promise or any [Future] derived from
// it is reachable.
type Promise[T any] struct {
	state *promiseState[T]
}

// NewPromise creates a new, unset Promise.
func NewPromise[T any]() Promise[T] {
	return Promise[T]{state: new(promiseState[T])}
}

// Future returns the read end of p.
func (p Promise[T]) Future() Future[T] {
	return Future[T]{state: p.state}
}

// SetValue fulfills p with v, completing every outstanding and future
// waiter. SetValue panics if p already has a value.
func (p Promise[T]) SetValue(v T) {
	s := p.state
	s.mu.Lock()
	if s.hasValue {
		s.mu.Unlock()
		panic("async(Promise): value already set")
	}
	s.value = v
	s.hasValue = true
	s.mu.Unlock()

	s.wake()
}

// A Future is the read end of a promise/future pair. Its zero value is
// invalid; obtain one from [Promise.Future].
type Future[T any] struct {
	state *promiseState[T]
}

// Valid reports whether f was obtained from a [Promise].
func (f Future[T]) Valid() bool { return f.state != nil }

// AsyncGet returns a [Sender] that completes once the promise has a
// value, or with OK false if token is cancelled first. It completes
// inline if the promise already has a value.
func (f Future[T]) AsyncGet(token CancellationToken) Sender[FutureResult[T]] {
	return SenderFunc(func(r Receiver[FutureResult[T]]) Operation {
		return &futureGetOp[T]{state: f.state, token: token, r: r}
	})
}

type futureGetOp[T any] struct {
	state *promiseState[T]
	token CancellationToken
	r     Receiver[FutureResult[T]]
	w     futureWaiter[T]
}

func (op *futureGetOp[T]) StartInline() bool {
	s := op.state

	s.mu.Lock()
	if s.hasValue {
		v := s.value
		s.mu.Unlock()
		op.r.SetValueInline(FutureResult[T]{Value: v, OK: true})
		return true
	}

	op.w.state = s
	op.w.r = op.r
	if !op.w.obs.TrySet(op.token, op.w.onCancel) {
		s.mu.Unlock()
		op.r.SetValueInline(FutureResult[T]{})
		return true
	}
	s.waiters = append(s.waiters, &op.w)
	s.mu.Unlock()

	return false
}

type futureWaiter[T any] struct {
	state *promiseState[T]
	r     Receiver[FutureResult[T]]
	obs   CancellationObserver
}

func (w *futureWaiter[T]) complete() {
	if w.obs.TryReset() {
		w.r.SetValueNoinline(FutureResult[T]{Value: w.state.value, OK: true})
	}
}

func (w *futureWaiter[T]) onCancel() {
	s := w.state
	s.mu.Lock()
	for i, other := range s.waiters {
		if other == w {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	w.r.SetValueNoinline(FutureResult[T]{})
}
