package async_test

import (
	"testing"

	"github.com/b97tsk/corax"
)

func TestInvocable(t *testing.T) {
	got := async.Run(async.Invocable(func() int { return 7 }))
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestTransformCombinator(t *testing.T) {
	s := async.Transform(async.Invocable(func() int { return 2 }), func(v int) int { return v * v })
	if got := async.Run(s); got != 4 {
		t.Fatalf("got %d, want 4", got)
	}
}

func TestIte(t *testing.T) {
	thenS := async.Invocable(func() string { return "then" })
	elseS := async.Invocable(func() string { return "else" })

	if got := async.Run(async.Ite(func() bool { return true }, thenS, elseS)); got != "then" {
		t.Fatalf("got %q, want %q", got, "then")
	}
	if got := async.Run(async.Ite(func() bool { return false }, thenS, elseS)); got != "else" {
		t.Fatalf("got %q, want %q", got, "else")
	}
}

func TestRepeatWhile(t *testing.T) {
	n := 0
	s := async.RepeatWhile(
		func() bool { return n < 5 },
		func() async.Sender[struct{}] {
			return async.Invocable(func() struct{} {
				n++
				return struct{}{}
			})
		},
	)
	async.Run(s)
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
}

func TestSequence(t *testing.T) {
	var order []int
	step := func(i int) async.Sender[struct{}] {
		return async.Invocable(func() struct{} {
			order = append(order, i)
			return struct{}{}
		})
	}
	final := async.Invocable(func() int {
		order = append(order, 3)
		return 99
	})

	got := async.Run(async.Sequence([]async.Sender[struct{}]{step(1), step(2)}, final))
	if got != 99 {
		t.Fatalf("got %d, want 99", got)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestWhenAll(t *testing.T) {
	var a, b bool
	s := async.WhenAll(
		async.Invocable(func() struct{} { a = true; return struct{}{} }),
		async.Invocable(func() struct{} { b = true; return struct{}{} }),
	)
	async.Run(s)
	if !a || !b {
		t.Fatal("both senders passed to WhenAll should run")
	}
}

func TestLet(t *testing.T) {
	s := async.Let(
		func() int { return 10 },
		func(v *int) async.Sender[int] {
			return async.Invocable(func() int { return *v * 2 })
		},
	)
	if got := async.Run(s); got != 20 {
		t.Fatalf("got %d, want 20", got)
	}
}

func TestLambda(t *testing.T) {
	var calls int
	f := async.Lambda(func(n int) async.Sender[int] {
		calls++
		return async.Invocable(func() int { return n * 2 })
	})

	s := f(21)
	if calls != 0 {
		t.Fatal("Lambda must defer calling f until the sender is connected")
	}

	var got int
	op := async.Connect(s, async.Noinline[int]{Receive: func(v int) { got = v }})
	if !op.StartInline() {
		t.Fatal("expected StartInline to report synchronous completion")
	}
	if calls != 1 {
		t.Fatalf("f called %d times, want 1", calls)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestRaceAndCancel(t *testing.T) {
	var cancelled bool
	fast := func(token async.CancellationToken) async.Sender[struct{}] {
		return async.Invocable(func() struct{} { return struct{}{} })
	}
	slow := func(token async.CancellationToken) async.Sender[struct{}] {
		return async.SenderFunc(func(r async.Receiver[struct{}]) async.Operation {
			return async.OperationFunc(func() bool {
				async.NewCancellationCallback(token, func() {
					cancelled = true
					r.SetValueNoinline(struct{}{})
				})
				return false
			})
		})
	}

	async.Run(async.RaceAndCancel(fast, slow))
	if !cancelled {
		t.Fatal("the slower sender should have been cancelled once the faster one completed")
	}
}
