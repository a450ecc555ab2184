package async

// Operation is the non-movable state produced by connecting a [Sender] to
// a [Receiver]. Once started, an Operation must complete exactly once.
//
// An Operation must not be copied after StartInline has been called; store
// it in place (a struct field, not behind an interface holding a copy) and
// take its address.
type Operation interface {
	// StartInline starts the operation. It returns true iff the operation
	// already completed, synchronously, before StartInline returned —
	// in which case the receiver's SetValueInline has already been called.
	// It returns false if the operation is armed: it will complete exactly
	// once, later, by calling the receiver's SetValueNoinline.
	StartInline() bool
}

// Sender is a value-typed factory for a computation producing a value of
// type T. A Sender must be consumed exactly once via [Connect].
type Sender[T any] interface {
	// Connect produces an [Operation] tied to r. Connect must not have
	// side effects beyond constructing the operation state.
	Connect(r Receiver[T]) Operation
}

// Receiver is the sink for a completed [Operation]'s value. Exactly one of
// SetValueInline or SetValueNoinline is called, at most once, before the
// operation is dropped.
//
// SetValueInline is a caller-side promise that StartInline has not yet
// returned. SetValueNoinline is used otherwise (a different goroutine, or
// a later turn of a run-queue). A Receiver implements both; one that
// does not care about the distinction can be built with [Noinline] or
// [ReceiverFunc].
type Receiver[T any] interface {
	SetValueInline(v T)
	SetValueNoinline(v T)
}

// Noinline is a [Receiver] that hands the value to Receive whichever of
// SetValueInline or SetValueNoinline is called. Most receivers don't
// care about the distinction and can use this.
type Noinline[T any] struct {
	Receive func(v T)
}

// SetValueInline implements [Receiver] by calling Receive.
func (n Noinline[T]) SetValueInline(v T) { n.Receive(v) }

// SetValueNoinline implements [Receiver].
func (n Noinline[T]) SetValueNoinline(v T) { n.Receive(v) }

// Connect is the free-function customization point for producing an
// [Operation] from a sender and a receiver. It exists, instead of relying
// solely on the Sender interface, to mirror the source's CPO dispatch and
// to give composed senders (see algorithm.go) a single call site to wrap.
func Connect[T any](s Sender[T], r Receiver[T]) Operation {
	return s.Connect(r)
}

// StartInlineOp is the free-function form of [Operation.StartInline].
func StartInlineOp(op Operation) bool {
	return op.StartInline()
}

// funcReceiver adapts two plain functions into a [Receiver].
type funcReceiver[T any] struct {
	inline   func(T)
	noinline func(T)
}

func (r funcReceiver[T]) SetValueInline(v T) {
	if r.inline != nil {
		r.inline(v)
		return
	}
	r.noinline(v)
}

func (r funcReceiver[T]) SetValueNoinline(v T) { r.noinline(v) }

// ReceiverFunc builds a [Receiver] from plain functions. If inline is nil,
// SetValueInline routes through noinline, matching the default the spec
// describes for receivers that only care about one path.
func ReceiverFunc[T any](inline, noinline func(T)) Receiver[T] {
	return funcReceiver[T]{inline: inline, noinline: noinline}
}

// senderFunc adapts a connect function into a [Sender].
type senderFunc[T any] struct {
	connect func(Receiver[T]) Operation
}

func (s senderFunc[T]) Connect(r Receiver[T]) Operation { return s.connect(r) }

// SenderFunc builds a [Sender] from a connect function. Useful for
// primitives (mutex.go, queue.go, ...) whose async operation is easiest to
// express as a closure rather than a named Operation type.
func SenderFunc[T any](connect func(Receiver[T]) Operation) Sender[T] {
	return senderFunc[T]{connect: connect}
}

// opFunc adapts a start function into an [Operation].
type opFunc func() bool

func (f opFunc) StartInline() bool { return f() }

// OperationFunc builds an [Operation] from a start function.
func OperationFunc(start func() bool) Operation { return opFunc(start) }
