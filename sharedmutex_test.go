package async_test

import (
	"testing"

	"github.com/b97tsk/corax"
)

func TestSharedMutexTryLocks(t *testing.T) {
	var m async.SharedMutex

	if !m.TryRLock() {
		t.Fatal("TryRLock should succeed on a free SharedMutex")
	}
	if !m.TryRLock() {
		t.Fatal("TryRLock should succeed while only shared holders are present")
	}
	if m.TryLock() {
		t.Fatal("TryLock should fail while shared holders are present")
	}
	m.UnlockShared()
	m.UnlockShared()

	if !m.TryLock() {
		t.Fatal("TryLock should succeed once all shared holders are gone")
	}
	if m.TryRLock() {
		t.Fatal("TryRLock should fail while the exclusive lock is held")
	}
	m.Unlock()
}

func TestSharedMutexWriterWaitsForReaders(t *testing.T) {
	var m async.SharedMutex
	m.TryRLock()

	var gotLock bool
	op := async.Connect(
		m.AsyncLock(async.CancellationToken{}),
		async.Noinline[struct{}]{Receive: func(struct{}) { gotLock = true }},
	)
	if op.StartInline() {
		t.Fatal("AsyncLock should not complete inline while a reader holds the lock")
	}
	if gotLock {
		t.Fatal("writer should not run before the reader releases")
	}

	m.UnlockShared()
	if !gotLock {
		t.Fatal("writer should run once the only reader releases")
	}
	m.Unlock()
}

func TestSharedMutexReadersQueueBehindWriter(t *testing.T) {
	var m async.SharedMutex
	m.TryLock()

	var r1, r2 bool
	op1 := async.Connect(m.AsyncLockShared(async.CancellationToken{}),
		async.Noinline[struct{}]{Receive: func(struct{}) { r1 = true }})
	op2 := async.Connect(m.AsyncLockShared(async.CancellationToken{}),
		async.Noinline[struct{}]{Receive: func(struct{}) { r2 = true }})
	op1.StartInline()
	op2.StartInline()

	if r1 || r2 {
		t.Fatal("readers should not run before the writer releases")
	}

	m.Unlock()
	if !r1 || !r2 {
		t.Fatal("both queued readers should run once the writer releases")
	}

	m.UnlockShared()
	m.UnlockShared()
}

// TestSharedMutexUnlockSharedResetsStateAfterCancelToEmpty exercises a
// maintainer-flagged regression: a writer queued behind shared holders
// (setting the contended bit) that cancels before its turn must not
// leave the contended bit stuck once the last shared holder releases
// to an empty waiter list.
func TestSharedMutexUnlockSharedResetsStateAfterCancelToEmpty(t *testing.T) {
	var m async.SharedMutex

	if !m.TryRLock() || !m.TryRLock() {
		t.Fatal("TryRLock should succeed twice on a free SharedMutex")
	}

	var e async.CancellationEvent
	var gotLock bool
	op := async.Connect(
		m.AsyncLock(async.TokenFor(&e)),
		async.Noinline[struct{}]{Receive: func(struct{}) { gotLock = true }},
	)
	if op.StartInline() {
		t.Fatal("AsyncLock should not complete inline while readers hold the lock")
	}

	e.Cancel()
	if gotLock {
		t.Fatal("a cancelled writer must not acquire the lock")
	}

	m.UnlockShared()
	m.UnlockShared()

	if !m.TryLock() {
		t.Fatal("TryLock should succeed once every reader has released and the cancelled writer is gone; a stuck contended bit means this SharedMutex is permanently deadlocked")
	}
	m.Unlock()
}
