package async_test

import (
	"testing"

	"github.com/b97tsk/corax"
)

func TestMemo(t *testing.T) {
	var myExecutor async.Executor
	myExecutor.Autorun(myExecutor.Run)

	a := async.NewState(1)
	b := async.NewState(2)

	var computations int

	sum := async.NewMemo(&myExecutor, func(co *async.Coroutine, s *async.State[int]) {
		computations++
		s.Set(a.Get() + b.Get())
		co.Watch(a, b)
	})

	var got int

	myExecutor.Spawn(func(co *async.Coroutine) async.Result {
		co.Watch(sum)
		got = sum.Get()
		return co.Yield()
	})

	if got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
	if computations != 1 {
		t.Fatalf("computations = %d, want 1 before any dependency changed", computations)
	}

	myExecutor.Spawn(async.Do(func() { a.Set(10) }))

	if got := sum.Get(); got != 12 {
		t.Fatalf("got %d, want 12 after a changed", got)
	}
	if computations != 2 {
		t.Fatalf("computations = %d, want 2 after one dependency changed", computations)
	}
}

func TestStrictMemoGoesStaleWhenUnwatched(t *testing.T) {
	var myExecutor async.Executor
	myExecutor.Autorun(myExecutor.Run)

	n := async.NewState(1)

	var computations int

	doubled := async.NewStrictMemo(&myExecutor, func(co *async.Coroutine, s *async.State[int]) {
		computations++
		s.Set(n.Get() * 2)
		co.Watch(n)
	})

	var done bool
	var watched int

	myExecutor.Spawn(func(co *async.Coroutine) async.Result {
		co.Watch(doubled)
		watched = doubled.Get()
		done = true
		return co.End()
	})

	if !done || watched != 2 {
		t.Fatalf("watched = %d, done = %v, want 2 and true", watched, done)
	}

	first := computations

	// Force a fresh computation by reading the Memo again: a strict Memo
	// ends its internal coroutine once every watcher above has gone, so
	// this Get recomputes from scratch instead of reusing a cached value.
	if got := doubled.Get(); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
	if computations != first+1 {
		t.Fatalf("computations = %d, want %d (strict memo should recompute once stale)", computations, first+1)
	}
}
