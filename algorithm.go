package async

import "sync/atomic"

// Invocable returns a [Sender] that, when started, calls f and
// completes inline with its result. It is the sender equivalent of a
// function call: no suspension is possible.
func Invocable[T any](f func() T) Sender[T] {
	return SenderFunc(func(r Receiver[T]) Operation {
		return invocableOp[T]{f: f, r: r}
	})
}

type invocableOp[T any] struct {
	f func() T
	r Receiver[T]
}

func (op invocableOp[T]) StartInline() bool {
	op.r.SetValueInline(op.f())
	return true
}

// Transform returns a [Sender] that completes with f applied to s's
// result.
func Transform[T, U any](s Sender[T], f func(T) U) Sender[U] {
	return SenderFunc(func(r Receiver[U]) Operation {
		return Connect(s, transformReceiver[T, U]{dr: r, f: f})
	})
}

type transformReceiver[T, U any] struct {
	dr Receiver[U]
	f  func(T) U
}

func (tr transformReceiver[T, U]) SetValueInline(v T)   { tr.dr.SetValueInline(tr.f(v)) }
func (tr transformReceiver[T, U]) SetValueNoinline(v T) { tr.dr.SetValueNoinline(tr.f(v)) }

// Ite ("if-then-else") returns a [Sender] that, when started,
// evaluates cond and starts thenS if true, elseS otherwise.
func Ite[T any](cond func() bool, thenS, elseS Sender[T]) Sender[T] {
	return Let(cond, func(c *bool) Sender[T] {
		if *c {
			return thenS
		}
		return elseS
	})
}

// RepeatWhile returns a [Sender] that repeatedly evaluates cond; while
// it holds, it connects and starts a new [Sender] produced by factory,
// waiting for each one to complete before checking cond again.
// RepeatWhile itself completes with struct{}{} once cond first returns
// false.
func RepeatWhile(cond func() bool, factory func() Sender[struct{}]) Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		return &repeatWhileOp{cond: cond, factory: factory, dr: r}
	})
}

type repeatWhileOp struct {
	cond    func() bool
	factory func() Sender[struct{}]
	dr      Receiver[struct{}]
}

func (op *repeatWhileOp) StartInline() bool {
	if !op.loop() {
		return false
	}
	op.dr.SetValueInline(struct{}{})
	return true
}

func (op *repeatWhileOp) loop() bool {
	for op.cond() {
		if !Connect(op.factory(), repeatWhileReceiver{op}).StartInline() {
			return false
		}
	}
	return true
}

type repeatWhileReceiver struct{ op *repeatWhileOp }

func (r repeatWhileReceiver) SetValueInline(struct{}) {}

func (r repeatWhileReceiver) SetValueNoinline(struct{}) {
	if r.op.loop() {
		r.op.dr.SetValueNoinline(struct{}{})
	}
}

// RaceAndCancel starts every sender produced by fs (each given its own
// [CancellationToken]), and, the first time one of them completes,
// cancels the tokens of all the others. It completes once every
// sender has completed (whether by finishing its own work or by
// reacting to cancellation).
func RaceAndCancel(fs ...func(CancellationToken) Sender[struct{}]) Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		op := &raceAndCancelOp{r: r, events: make([]CancellationEvent, len(fs))}
		op.ops = make([]Operation, len(fs))
		for i, f := range fs {
			i := i
			op.ops[i] = Connect(f(TokenFor(&op.events[i])), raceAndCancelReceiver{op: op, i: i})
		}
		return op
	})
}

type raceAndCancelOp struct {
	r      Receiver[struct{}]
	events []CancellationEvent
	ops    []Operation
	nDone  atomic.Int64
}

func (op *raceAndCancelOp) StartInline() bool {
	nSync := 0
	for _, o := range op.ops {
		if o.StartInline() {
			nSync++
		}
	}
	if nSync == 0 {
		return false
	}

	n := op.nDone.Add(int64(nSync)) - int64(nSync)
	if n == 0 {
		op.cancelAllBut(-1)
	}
	if n+int64(nSync) == int64(len(op.ops)) {
		op.r.SetValueInline(struct{}{})
		return true
	}
	return false
}

func (op *raceAndCancelOp) cancelAllBut(except int) {
	for j := range op.events {
		if j != except {
			op.events[j].Cancel()
		}
	}
}

type raceAndCancelReceiver struct {
	op *raceAndCancelOp
	i  int
}

func (r raceAndCancelReceiver) SetValueInline(struct{}) {}

func (r raceAndCancelReceiver) SetValueNoinline(struct{}) {
	n := r.op.nDone.Add(1)
	if n == 1 {
		r.op.cancelAllBut(r.i)
	}
	if n == int64(len(r.op.ops)) {
		r.op.r.SetValueNoinline(struct{}{})
	}
}

// Sequence starts each of steps in order, one after another, then
// starts final and completes with its result. All but the last
// [Sender] in a C++-style heterogeneous sequence must return void;
// the Go equivalent makes that explicit by typing every step
// struct{} and giving the final sender its own type parameter.
func Sequence[T any](steps []Sender[struct{}], final Sender[T]) Sender[T] {
	return SenderFunc(func(r Receiver[T]) Operation {
		return &sequenceOp[T]{steps: steps, final: final, r: r}
	})
}

type sequenceOp[T any] struct {
	steps []Sender[struct{}]
	final Sender[T]
	r     Receiver[T]
	i     int
}

func (op *sequenceOp[T]) StartInline() bool {
	return op.step(true)
}

func (op *sequenceOp[T]) step(inline bool) bool {
	for op.i < len(op.steps) {
		s := op.steps[op.i]
		op.i++
		rcv := sequenceStepReceiver[T]{op: op, inline: inline}
		if !Connect(s, rcv).StartInline() {
			return false
		}
	}

	rcv := sequenceFinalReceiver[T]{op: op, inline: inline}
	return Connect(op.final, rcv).StartInline()
}

type sequenceStepReceiver[T any] struct {
	op     *sequenceOp[T]
	inline bool
}

func (r sequenceStepReceiver[T]) SetValueInline(struct{}) {}

func (r sequenceStepReceiver[T]) SetValueNoinline(struct{}) {
	// step() delivers the final value itself via sequenceFinalReceiver;
	// nothing left to do here either way.
	r.op.step(false)
}

type sequenceFinalReceiver[T any] struct {
	op     *sequenceOp[T]
	inline bool
}

func (r sequenceFinalReceiver[T]) SetValueInline(v T) {
	if r.inline {
		r.op.r.SetValueInline(v)
	} else {
		r.op.r.SetValueNoinline(v)
	}
}

func (r sequenceFinalReceiver[T]) SetValueNoinline(v T) {
	r.op.r.SetValueNoinline(v)
}

// WhenAll starts every sender in senders concurrently (from the
// caller's point of view — each is simply started in turn) and
// completes once all of them have completed.
func WhenAll(senders ...Sender[struct{}]) Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		op := &whenAllOp{r: r}
		op.ops = make([]Operation, len(senders))
		for i, s := range senders {
			op.ops[i] = Connect(s, whenAllReceiver{op: op})
		}
		return op
	})
}

type whenAllOp struct {
	r   Receiver[struct{}]
	ops []Operation
	ctr atomic.Int64
}

func (op *whenAllOp) StartInline() bool {
	op.ctr.Store(int64(len(op.ops)))

	nFast := int64(0)
	for _, o := range op.ops {
		if o.StartInline() {
			nFast++
		}
	}
	if nFast == 0 && len(op.ops) != 0 {
		return false
	}

	c := op.ctr.Add(-nFast)
	if c == 0 {
		op.r.SetValueInline(struct{}{})
		return true
	}
	return false
}

type whenAllReceiver struct{ op *whenAllOp }

func (r whenAllReceiver) SetValueInline(struct{}) {}

func (r whenAllReceiver) SetValueNoinline(struct{}) {
	if r.op.ctr.Add(-1) == 0 {
		r.op.r.SetValueNoinline(struct{}{})
	}
}

// Let evaluates pred for an immediate value, then calls body with a
// pointer to it to produce the [Sender] that is actually started —
// useful when the continuation sender needs to borrow storage that
// outlives the call to body but not the overall operation.
func Let[I, T any](pred func() I, body func(*I) Sender[T]) Sender[T] {
	return SenderFunc(func(r Receiver[T]) Operation {
		return &letOp[I, T]{pred: pred, body: body, r: r}
	})
}

type letOp[I, T any] struct {
	pred func() I
	body func(*I) Sender[T]
	r    Receiver[T]
	imm  I
}

func (op *letOp[I, T]) StartInline() bool {
	op.imm = op.pred()
	return Connect(op.body(&op.imm), op.r).StartInline()
}

// Lambda adapts a callable that builds a [Sender] from an argument into
// a factory with the same shape: calling the returned function captures
// arg by value, but does not call f yet. f only runs once the resulting
// sender is connected and started, deferring construction of the real
// underlying sender — and any side effects f has — to start time.
// Mirrors the source's lambda/lambda_sender/lambda_operation split in
// algorithm.hpp.
func Lambda[A, T any](f func(A) Sender[T]) func(A) Sender[T] {
	return func(arg A) Sender[T] {
		return SenderFunc(func(r Receiver[T]) Operation {
			return &lambdaOp[A, T]{f: f, arg: arg, r: r}
		})
	}
}

type lambdaOp[A, T any] struct {
	f   func(A) Sender[T]
	arg A
	r   Receiver[T]
}

func (op *lambdaOp[A, T]) StartInline() bool {
	return Connect(op.f(op.arg), op.r).StartInline()
}
