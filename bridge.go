package async

// senderAwaiter bridges an arbitrary [Sender] into a [Coroutine]'s
// suspension model: a [Signal] that the coroutine watches, notified
// from the sender's receiver once the sender completes. This plays
// the role the source's sender_awaiter<S,T> plays for its own
// coroutine_handle-based resumption — adapted here to the library's
// own watch/notify suspension primitive instead of a raw
// coroutine_handle.
type senderAwaiter[T any] struct {
	Signal
	value T
}

// SenderTask adapts s into a [Task]: running it in a [Coroutine] runs
// s to completion — synchronously if s completes inline, otherwise by
// suspending the coroutine until s's receiver fires — and stores the
// result through out before ending. A completion through
// SetValueNoinline, which may run on any goroutine, is handed back to
// the coroutine by spawning a small Task on the coroutine's [Executor]
// ([Executor.Spawn] is safe for concurrent use); that Task stores the
// value and resumes the coroutine on the Executor's own goroutine.
//
// SenderTask lets Executor-bound reactive code (a [Task] function,
// a [Memo], a [Semaphore] waiter) consume the sender/receiver
// primitives in this package (a [Mutex], a [Queue], a [Future], ...)
// without leaving the single-threaded run-queue model.
func SenderTask[T any](s Sender[T], out *T) Task {
	return func(co *Coroutine) Result {
		sa := new(senderAwaiter[T])
		e := co.Executor()

		op := Connect(s, ReceiverFunc(
			func(v T) { sa.value = v },
			func(v T) {
				e.Spawn(Do(func() {
					sa.value = v
					sa.Notify()
				}))
			},
		))

		if op.StartInline() {
			*out = sa.value
			return co.End()
		}

		return co.Await(sa).Then(Do(func() {
			*out = sa.value
		}))
	}
}
