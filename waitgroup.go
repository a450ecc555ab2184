package async

import "sync"

// A WaitGroup is a counter of outstanding units of work, safe for
// concurrent use from any goroutine. It generalizes the source's
// wait-group.hpp to the sender/receiver protocol: instead of a
// single-threaded Signal watched by Coroutines bound to one Executor,
// waiters are arbitrary [Receiver] values connected through
// [WaitGroup.AsyncWait], and may live on any goroutine.
//
// Add and Done update the counter; when it reaches zero, every
// outstanding waiter completes. Once the counter reaches zero it may be
// driven positive again by a further Add — unlike a [WaitGroup] that
// never recovers, this one is reusable, matching wait-group.hpp's
// "counter, not a one-shot" semantics.
//
// WaitGroup additionally satisfies a BasicLockable-like shape through
// Lock and Unlock, so a unit of work can be bracketed the way one would
// bracket a mutex: Lock to register it, Unlock when it's done.
type WaitGroup struct {
	mu      sync.Mutex
	count   int64
	waiters []*wgWaiter
}

// Add adds delta, which may be negative, to the counter. If the result
// is negative, Add panics. If the counter reaches zero, every
// outstanding waiter is completed.
//
// Add is safe for concurrent use.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	wg.count += int64(delta)
	count := wg.count
	if count < 0 {
		wg.mu.Unlock()
		panic("async(WaitGroup): negative counter")
	}

	var done []*wgWaiter
	if count == 0 && delta != 0 {
		done = wg.waiters
		wg.waiters = nil
	}
	wg.mu.Unlock()

	for _, w := range done {
		w.complete()
	}
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Lock adds one to the counter. Together with Unlock, it lets a
// WaitGroup bracket a unit of work the way a mutex brackets a critical
// section.
func (wg *WaitGroup) Lock() { wg.Add(1) }

// Unlock decrements the counter by one.
func (wg *WaitGroup) Unlock() { wg.Done() }

// AsyncWait returns a [Sender] that completes once the counter reaches
// zero, or token is cancelled, whichever happens first. It completes
// inline if the counter is already zero.
func (wg *WaitGroup) AsyncWait(token CancellationToken) Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		return &wgWaitOp{wg: wg, token: token, r: r}
	})
}

type wgWaitOp struct {
	wg    *WaitGroup
	token CancellationToken
	r     Receiver[struct{}]
	w     wgWaiter
}

func (op *wgWaitOp) StartInline() bool {
	wg := op.wg

	wg.mu.Lock()
	if wg.count == 0 {
		wg.mu.Unlock()
		op.r.SetValueInline(struct{}{})
		return true
	}

	op.w.wg = wg
	op.w.r = op.r
	if !op.w.obs.TrySet(op.token, op.w.onCancel) {
		wg.mu.Unlock()
		op.r.SetValueInline(struct{}{})
		return true
	}
	wg.waiters = append(wg.waiters, &op.w)
	wg.mu.Unlock()

	return false
}

type wgWaiter struct {
	wg  *WaitGroup
	r   Receiver[struct{}]
	obs CancellationObserver
}

func (w *wgWaiter) complete() {
	if w.obs.TryReset() {
		w.r.SetValueNoinline(struct{}{})
	}
}

func (w *wgWaiter) onCancel() {
	w.wg.removeWaiter(w)
	w.r.SetValueNoinline(struct{}{})
}

func (wg *WaitGroup) removeWaiter(w *wgWaiter) {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	for i, other := range wg.waiters {
		if other == w {
			wg.waiters = append(wg.waiters[:i], wg.waiters[i+1:]...)
			return
		}
	}
}
