package async_test

import (
	"sync"
	"testing"

	"github.com/b97tsk/corax"
)

func TestMutexTryLock(t *testing.T) {
	var m async.Mutex

	if !m.TryLock() {
		t.Fatal("TryLock on a free mutex should succeed")
	}
	if m.TryLock() {
		t.Fatal("TryLock on a held mutex should fail")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock after Unlock should succeed")
	}
	m.Unlock()
}

func TestMutexAsyncLockInline(t *testing.T) {
	var m async.Mutex

	var acquired bool
	op := async.Connect(
		m.AsyncLock(async.CancellationToken{}),
		async.Noinline[struct{}]{Receive: func(struct{}) { acquired = true }},
	)
	if !op.StartInline() {
		t.Fatal("AsyncLock on a free mutex should complete inline")
	}
	if !acquired {
		t.Fatal("receiver was never called")
	}
	m.Unlock()
}

func TestMutexContention(t *testing.T) {
	var m async.Mutex
	m.TryLock()

	done := make(chan struct{})

	op := async.Connect(
		m.AsyncLock(async.CancellationToken{}),
		async.Noinline[struct{}]{Receive: func(struct{}) { close(done) }},
	)
	if op.StartInline() {
		t.Fatal("AsyncLock on a held mutex should not complete inline")
	}

	select {
	case <-done:
		t.Fatal("waiter completed before the holder unlocked")
	default:
	}

	m.Unlock()
	<-done
}

func TestMutexExcludesConcurrentGoroutines(t *testing.T) {
	var m async.Mutex

	const n = 64
	var count int
	var wg sync.WaitGroup

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			async.Run(m.AsyncLock(async.CancellationToken{}))
			count++
			m.Unlock()
		}()
	}
	wg.Wait()

	if count != n {
		t.Fatalf("count = %d, want %d", count, n)
	}
}

func TestMutexCancelledWaiterIsSkipped(t *testing.T) {
	var m async.Mutex
	var evt async.CancellationEvent
	token := async.TokenFor(&evt)

	m.TryLock()

	var got bool
	op := async.Connect(
		m.AsyncLock(token),
		async.Noinline[struct{}]{Receive: func(struct{}) { got = true }},
	)
	op.StartInline()

	evt.Cancel()
	if !got {
		t.Fatal("cancelled waiter never completed")
	}

	m.Unlock()
	if !m.TryLock() {
		t.Fatal("mutex should be free after the only waiter was cancelled")
	}
}
