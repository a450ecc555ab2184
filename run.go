package async

import (
	"sync/atomic"

	"code.hybscloud.com/iox"
)

// A Waiter is the blocking strategy [RunWithWaiter] parks the calling
// goroutine with while a Sender is still pending. [iox.Backoff], the
// default Run uses, satisfies this with its adaptive busy-wait; an
// embedder with something better to interleave with (its own run-queue,
// a condition variable, a channel select) can supply one instead.
type Waiter interface {
	Wait()
}

// Run starts s and blocks the calling goroutine until it completes,
// returning its value. If s completes synchronously, Run returns
// without waiting. Otherwise Run busy-waits with adaptive backoff
// (the same iox.Backoff-driven wait cycle code.hybscloud.com/iox
// provides, and that the source's own run-queue entry points use to
// interleave progress without spawning a goroutine or blocking on a
// channel) until some other goroutine completes the operation.
//
// Run does not itself spawn a goroutine: the caller's goroutine is the
// one that waits. For a Sender whose completion depends on a separate
// goroutine making progress (e.g. another call to Run on a different
// Sender, or a plain goroutine driving an Executor), that progress
// must happen independently — Run here only parks and polls.
func Run[T any](s Sender[T]) T {
	var bo iox.Backoff
	return RunWithWaiter(s, &bo)
}

// RunWithWaiter is Run, parameterized over the blocking strategy used
// once s is found pending, in place of Run's default [iox.Backoff].
// This is the waiter-parameterized blocking entry point the source
// exposes alongside its allocator-less run(sender): an embedder that
// already runs its own poll loop (e.g. driving an [Executor]) can pass
// a Waiter that steps that loop instead of sitting in an unrelated
// busy-wait.
func RunWithWaiter[T any](s Sender[T], w Waiter) T {
	var (
		value T
		done  atomic.Bool
	)

	op := Connect(s, Noinline[T]{Receive: func(v T) {
		value = v
		done.Store(true)
	}})

	if op.StartInline() {
		return value
	}

	for !done.Load() {
		w.Wait()
	}
	return value
}

// Detach starts s and discards its result, without blocking the
// calling goroutine. Use this for fire-and-forget work whose
// completion is observed some other way (e.g. a [WaitGroup] the
// Sender itself counts down).
func Detach(s Sender[struct{}]) {
	Connect(s, Noinline[struct{}]{Receive: func(struct{}) {}}).StartInline()
}
