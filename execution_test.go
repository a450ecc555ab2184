package async_test

import (
	"testing"

	"github.com/b97tsk/corax"
)

func TestConnectInline(t *testing.T) {
	s := async.Invocable(func() int { return 42 })

	var got int
	op := async.Connect(s, async.Noinline[int]{Receive: func(v int) { got = v }})
	if !op.StartInline() {
		t.Fatal("expected StartInline to report synchronous completion")
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestTransform(t *testing.T) {
	s := async.Transform(async.Invocable(func() int { return 3 }), func(v int) string {
		return itoa(v)
	})

	var got string
	op := async.Connect(s, async.Noinline[string]{Receive: func(v string) { got = v }})
	op.StartInline()
	if got != "3" {
		t.Fatalf("got %q, want %q", got, "3")
	}
}

func itoa(v int) string {
	digits := "0123456789"
	if v == 0 {
		return "0"
	}
	var b []byte
	for v > 0 {
		b = append([]byte{digits[v%10]}, b...)
		v /= 10
	}
	return string(b)
}
