package async_test

import (
	"sync"
	"testing"

	"github.com/b97tsk/corax"
)

func TestRunInline(t *testing.T) {
	got := async.Run(async.Invocable(func() int { return 11 }))
	if got != 11 {
		t.Fatalf("got %d, want 11", got)
	}
}

func TestRunBlocksUntilCompletion(t *testing.T) {
	var q async.Queue[int]

	go func() {
		q.Put(21)
	}()

	item := async.Run(q.AsyncGet(async.CancellationToken{}))
	if !item.OK || item.Value != 21 {
		t.Fatalf("item = %+v, want {Value:21 OK:true}", item)
	}
}

type countingWaiter struct{ waits int }

func (w *countingWaiter) Wait() { w.waits++ }

func TestRunWithWaiterInline(t *testing.T) {
	var w countingWaiter
	got := async.RunWithWaiter(async.Invocable(func() int { return 11 }), &w)
	if got != 11 {
		t.Fatalf("got %d, want 11", got)
	}
	if w.waits != 0 {
		t.Fatalf("waits = %d, want 0 for a sender that completes inline", w.waits)
	}
}

func TestRunWithWaiterCustomStrategy(t *testing.T) {
	var q async.Queue[int]

	go func() {
		q.Put(21)
	}()

	var w countingWaiter
	item := async.RunWithWaiter(q.AsyncGet(async.CancellationToken{}), &w)
	if !item.OK || item.Value != 21 {
		t.Fatalf("item = %+v, want {Value:21 OK:true}", item)
	}
}

func TestDetach(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	async.Detach(async.Invocable(func() struct{} {
		wg.Done()
		return struct{}{}
	}))

	wg.Wait()
}

func TestSenderTaskInline(t *testing.T) {
	var myExecutor async.Executor
	myExecutor.Autorun(myExecutor.Run)

	p := async.NewPromise[int]()
	p.SetValue(7)

	var got async.FutureResult[int]
	myExecutor.Spawn(async.SenderTask(p.Future().AsyncGet(async.CancellationToken{}), &got))

	if !got.OK || got.Value != 7 {
		t.Fatalf("got = %+v, want {Value:7 OK:true}", got)
	}
}

func TestSenderTaskSuspendsThenResumes(t *testing.T) {
	var myExecutor async.Executor
	myExecutor.Autorun(myExecutor.Run)

	var q async.Queue[int]

	var out async.QueueItem[int]
	var done bool

	myExecutor.Spawn(async.Block(
		async.SenderTask(q.AsyncGet(async.CancellationToken{}), &out),
		async.Do(func() { done = true }),
	))

	if done {
		t.Fatal("coroutine should not have finished before the queue received an item")
	}

	myExecutor.Spawn(async.Do(func() { q.Put(55) }))

	if !done {
		t.Fatal("coroutine should have resumed once the queue received an item")
	}
	if !out.OK || out.Value != 55 {
		t.Fatalf("out = %+v, want {Value:55 OK:true}", out)
	}
}
