package async_test

import (
	"sync"
	"testing"

	"github.com/b97tsk/corax"
)

func TestConcatSeqRunsInOrder(t *testing.T) {
	var wg sync.WaitGroup // For keeping track of goroutines.

	var myExecutor async.Executor

	myExecutor.Autorun(func() { wg.Go(myExecutor.Run) })

	var mu sync.Mutex
	var order []int

	done := make(chan struct{})
	myExecutor.Spawn(async.Block(
		async.ConcatSeq(func(yield func(async.Task) bool) {
			for i := range 4 {
				if !yield(async.Do(func() {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
				})) {
					return
				}
			}
		}),
		async.Do(func() { close(done) }),
	))

	<-done
	wg.Wait()

	want := []int{0, 1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i, v := range want {
		if order[i] != v {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
