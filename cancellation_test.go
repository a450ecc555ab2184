package async_test

import (
	"testing"

	"github.com/b97tsk/corax"
)

func TestCancellationEventRegisterAfterRaiseFiresSynchronously(t *testing.T) {
	var e async.CancellationEvent
	e.Cancel()

	var ran bool
	cb := async.NewCancellationCallback(async.TokenFor(&e), func() { ran = true })
	if !ran {
		t.Fatal("callback registered against an already-raised event must run synchronously")
	}
	cb.Close()
}

func TestCancellationObserverTrySetAlreadyRaised(t *testing.T) {
	var e async.CancellationEvent
	e.Cancel()

	var obs async.CancellationObserver
	if obs.TrySet(async.TokenFor(&e), func() { t.Fatal("onCancel must not run for a raced TrySet") }) {
		t.Fatal("TrySet against an already-raised event should report false")
	}
}

func TestCancellationObserverTryResetWinsRace(t *testing.T) {
	var e async.CancellationEvent

	var obs async.CancellationObserver
	if !obs.TrySet(async.TokenFor(&e), func() {}) {
		t.Fatal("TrySet against a pristine event should succeed")
	}
	if !obs.TryReset() {
		t.Fatal("TryReset should win the race against an event that never fired")
	}
}

func TestSuspendIndefinitelyCompletesInlineWhenAlreadyCancelled(t *testing.T) {
	var e async.CancellationEvent
	e.Cancel()

	var got bool
	op := async.Connect(
		async.SuspendIndefinitely(async.TokenFor(&e)),
		async.Noinline[struct{}]{Receive: func(struct{}) { got = true }},
	)
	if !op.StartInline() {
		t.Fatal("StartInline must report synchronous completion for an already-cancelled token")
	}
	if !got {
		t.Fatal("receiver was never called")
	}
}

// TestSuspendIndefinitelyLaterCancelledTokenCompletesInline checks that
// when a token other than the first is already cancelled before start,
// StartInline still reports true and calls the receiver, just as it does
// when the first token is the cancelled one.
func TestSuspendIndefinitelyLaterCancelledTokenCompletesInline(t *testing.T) {
	var pristine, raised async.CancellationEvent
	raised.Cancel()

	var got bool
	op := async.Connect(
		async.SuspendIndefinitely(async.TokenFor(&pristine), async.TokenFor(&raised)),
		async.Noinline[struct{}]{Receive: func(struct{}) { got = true }},
	)
	if !op.StartInline() {
		t.Fatal("StartInline must report true when a later token is found already cancelled")
	}
	if !got {
		t.Fatal("receiver was never called")
	}
}

func TestSuspendIndefinitelySuspendsThenFires(t *testing.T) {
	var e async.CancellationEvent

	done := make(chan struct{})
	op := async.Connect(
		async.SuspendIndefinitely(async.TokenFor(&e)),
		async.Noinline[struct{}]{Receive: func(struct{}) { close(done) }},
	)
	if op.StartInline() {
		t.Fatal("StartInline should suspend when no token is cancelled yet")
	}

	select {
	case <-done:
		t.Fatal("receiver completed before the event was raised")
	default:
	}

	e.Cancel()

	select {
	case <-done:
	default:
		t.Fatal("receiver never completed after the event was raised")
	}
}
