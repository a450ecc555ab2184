package async

import (
	"sync"
	"sync/atomic"
)

const (
	mutexFree = iota
	mutexLocked
	mutexContended
)

// A Mutex is an asynchronous mutual-exclusion lock, safe for concurrent
// use from any goroutine. Unlike [sync.Mutex], waiting for it does not
// block a goroutine: [Mutex.AsyncLock] returns a [Sender] that
// completes once the lock is held.
//
// The uncontended path is a single atomic compare-and-swap between the
// free and locked states; only once a second party finds the mutex
// already locked does it fall back to an internal mutex-guarded FIFO
// waiter list and mark the state contended, mirroring the ternary
// {free, locked, contended} fast path that real-world futex-backed
// mutexes use (the source's own mutex.hpp takes the unconditional
// lock_guard-and-deque route; this is the corresponding
// fast-path-first spec.md §4.4 calls for).
type Mutex struct {
	state   atomic.Int32
	mu      sync.Mutex
	waiters []*mutexWaiter
}

// TryLock attempts to acquire m without blocking, reporting success.
func (m *Mutex) TryLock() bool {
	return m.state.CompareAndSwap(mutexFree, mutexLocked)
}

// AsyncLock returns a [Sender] that completes once m is held, or token
// is cancelled first.
func (m *Mutex) AsyncLock(token CancellationToken) Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		return &mutexLockOp{m: m, token: token, r: r}
	})
}

// Unlock releases m. Unlock panics if m is not locked.
//
// One should only call Unlock while holding m.
func (m *Mutex) Unlock() {
	if m.state.CompareAndSwap(mutexLocked, mutexFree) {
		return
	}

	m.mu.Lock()
	if m.state.Load() == mutexFree {
		m.mu.Unlock()
		panic("async(Mutex): unlock of unlocked mutex")
	}
	if len(m.waiters) == 0 {
		m.state.Store(mutexFree)
		m.mu.Unlock()
		return
	}
	w := m.waiters[0]
	m.waiters = m.waiters[1:]
	if len(m.waiters) == 0 {
		m.state.Store(mutexLocked)
	}
	m.mu.Unlock()

	w.complete()
}

type mutexLockOp struct {
	m     *Mutex
	token CancellationToken
	r     Receiver[struct{}]
	w     mutexWaiter
}

func (op *mutexLockOp) StartInline() bool {
	m := op.m

	if m.state.CompareAndSwap(mutexFree, mutexLocked) {
		op.r.SetValueInline(struct{}{})
		return true
	}

	m.mu.Lock()
	for {
		if m.state.CompareAndSwap(mutexFree, mutexLocked) {
			m.mu.Unlock()
			op.r.SetValueInline(struct{}{})
			return true
		}
		if m.state.CompareAndSwap(mutexLocked, mutexContended) || m.state.Load() == mutexContended {
			break
		}
	}

	op.w.m = m
	op.w.r = op.r
	if !op.w.obs.TrySet(op.token, op.w.onCancel) {
		m.mu.Unlock()
		op.r.SetValueInline(struct{}{})
		return true
	}
	m.waiters = append(m.waiters, &op.w)
	m.mu.Unlock()

	return false
}

type mutexWaiter struct {
	m   *Mutex
	r   Receiver[struct{}]
	obs CancellationObserver
}

func (w *mutexWaiter) complete() {
	if w.obs.TryReset() {
		w.r.SetValueNoinline(struct{}{})
	}
}

func (w *mutexWaiter) onCancel() {
	m := w.m
	m.mu.Lock()
	for i, other := range m.waiters {
		if other == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			if len(m.waiters) == 0 && m.state.Load() == mutexContended {
				// Leave state as contended: the holder's Unlock still
				// takes the slow path, finds an empty waiter list, and
				// downgrades to free there under the lock.
			}
			break
		}
	}
	m.mu.Unlock()
	w.r.SetValueNoinline(struct{}{})
}
