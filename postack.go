package async

import "sync"

// A PostAckMechanism broadcasts posted values to every attached
// [PostAckAgent] and lets a poster wait until each attached agent has
// acknowledged receipt. It is safe for concurrent use from any
// goroutine.
type PostAckMechanism[T any] struct {
	mu           sync.Mutex
	postSeq      uint64
	activeAgents uint
	queue        []*postAckNode[T]
	pollQueue    []*postAckPollWaiter[T]
}

type postAckNode[T any] struct {
	seq      uint64
	acksLeft int64
	object   T
	mu       sync.Mutex
	complete func()
}

func (n *postAckNode[T]) ack() bool {
	n.mu.Lock()
	n.acksLeft--
	done := n.acksLeft == 0
	n.mu.Unlock()
	return done
}

type postAckPollWaiter[T any] struct {
	agent *PostAckAgent[T]
	r     Receiver[PostAckHandle[T]]
	obs   CancellationObserver
}

// onCancel splices w out of the poll queue and gives the agent back the
// position it would have consumed, so the next Poll call sees the same
// value this one would have (instead of silently skipping a slot that a
// future post would otherwise wait forever for this agent to ack).
func (w *postAckPollWaiter[T]) onCancel() {
	mech := w.agent.mech
	mech.mu.Lock()
	for i, other := range mech.pollQueue {
		if other == w {
			mech.pollQueue = append(mech.pollQueue[:i], mech.pollQueue[i+1:]...)
			break
		}
	}
	mech.mu.Unlock()
	w.agent.pollSeq--
	w.r.SetValueNoinline(PostAckHandle[T]{})
}

// Post returns a [Sender] that completes once every agent attached to
// m at post time has acknowledged the post. It completes inline if no
// agent is attached.
func (m *PostAckMechanism[T]) Post(object T) Sender[struct{}] {
	return SenderFunc(func(r Receiver[struct{}]) Operation {
		return &postAckPostOp[T]{m: m, object: object, r: r}
	})
}

type postAckPostOp[T any] struct {
	m      *PostAckMechanism[T]
	object T
	r      Receiver[struct{}]
	node   postAckNode[T]
}

func (op *postAckPostOp[T]) StartInline() bool {
	m := op.m

	m.mu.Lock()
	op.node.seq = m.postSeq
	m.postSeq++

	if m.activeAgents == 0 {
		m.mu.Unlock()
		op.r.SetValueInline(struct{}{})
		return true
	}

	op.node.object = op.object
	op.node.acksLeft = int64(m.activeAgents)
	op.node.complete = func() { op.r.SetValueNoinline(struct{}{}) }
	m.queue = append(m.queue, &op.node)

	pending := m.pollQueue
	m.pollQueue = nil
	m.mu.Unlock()

	for _, pn := range pending {
		if pn.obs.TryReset() {
			pn.r.SetValueNoinline(PostAckHandle[T]{mech: m, node: &op.node})
			continue
		}
		// pn's token raced this post and already fired; pn will never
		// see this node, so ack on its behalf (mirrors Detach's
		// auto-ack for a departing agent).
		if op.node.ack() {
			m.removeNode(&op.node)
			op.node.complete()
		}
	}

	return false
}

func (m *PostAckMechanism[T]) removeNode(n *postAckNode[T]) {
	m.mu.Lock()
	for i, other := range m.queue {
		if other == n {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// A PostAckHandle is a reference to one posted value, held by an
// agent until it acknowledges it with [PostAckHandle.Ack].
type PostAckHandle[T any] struct {
	mech *PostAckMechanism[T]
	node *postAckNode[T]
}

// Valid reports whether h refers to a node (the zero PostAckHandle
// does not).
func (h PostAckHandle[T]) Valid() bool { return h.node != nil }

// Value returns the posted object.
func (h PostAckHandle[T]) Value() T { return h.node.object }

// Ack acknowledges receipt. Once every agent that was attached at post
// time has acknowledged it, the poster's [PostAckMechanism.Post]
// completes.
func (h PostAckHandle[T]) Ack() {
	if h.node.ack() {
		h.mech.removeNode(h.node)
		h.node.complete()
	}
}

// A PostAckAgent receives every value posted to a [PostAckMechanism]
// while attached, via repeated calls to [PostAckAgent.Poll].
type PostAckAgent[T any] struct {
	mech    *PostAckMechanism[T]
	pollSeq uint64
}

// Attach attaches a to mech, starting from the next value posted
// after this call.
func (a *PostAckAgent[T]) Attach(mech *PostAckMechanism[T]) {
	if a.mech != nil {
		panic("async(PostAckAgent): already attached")
	}
	a.mech = mech

	mech.mu.Lock()
	a.pollSeq = mech.postSeq
	mech.activeAgents++
	mech.mu.Unlock()
}

// Detach detaches a. Any value posted while a was attached, but not
// yet polled and acknowledged by a, is automatically acknowledged on
// a's behalf so posters waiting on it are not blocked forever by a's
// departure.
func (a *PostAckAgent[T]) Detach() {
	mech := a.mech
	if mech == nil {
		panic("async(PostAckAgent): not attached")
	}

	mech.mu.Lock()
	mech.activeAgents--
	retireSeq := mech.postSeq
	if retireSeq <= a.pollSeq {
		mech.mu.Unlock()
	}

	for retireSeq > a.pollSeq {
		var nd *postAckNode[T]
		for _, cand := range mech.queue {
			if cand.seq == a.pollSeq {
				nd = cand
				break
			}
		}

		var done bool
		if nd != nil {
			done = nd.ack()
			if done {
				for i, other := range mech.queue {
					if other == nd {
						mech.queue = append(mech.queue[:i], mech.queue[i+1:]...)
						break
					}
				}
			}
		}
		mech.mu.Unlock()

		if done {
			nd.complete()
		}

		a.pollSeq++
		if retireSeq == a.pollSeq {
			break
		}
		mech.mu.Lock()
	}

	a.mech = nil
}

// Poll returns a [Sender] that completes with the next value posted to
// a's mechanism since a's last poll, or with a zero [PostAckHandle] if
// token is cancelled before a value arrives.
func (a *PostAckAgent[T]) Poll(token CancellationToken) Sender[PostAckHandle[T]] {
	return SenderFunc(func(r Receiver[PostAckHandle[T]]) Operation {
		return &postAckPollOp[T]{agent: a, token: token, r: r}
	})
}

type postAckPollOp[T any] struct {
	agent *PostAckAgent[T]
	token CancellationToken
	r     Receiver[PostAckHandle[T]]
	w     postAckPollWaiter[T]
}

func (op *postAckPollOp[T]) StartInline() bool {
	a := op.agent
	mech := a.mech
	seq := a.pollSeq
	a.pollSeq++

	mech.mu.Lock()
	if mech.postSeq <= seq {
		op.w.agent = a
		op.w.r = op.r
		if !op.w.obs.TrySet(op.token, op.w.onCancel) {
			mech.mu.Unlock()
			a.pollSeq--
			op.r.SetValueInline(PostAckHandle[T]{})
			return true
		}
		mech.pollQueue = append(mech.pollQueue, &op.w)
		mech.mu.Unlock()
		return false
	}

	var nd *postAckNode[T]
	for _, cand := range mech.queue {
		if cand.seq == seq {
			nd = cand
			break
		}
	}
	mech.mu.Unlock()

	op.r.SetValueInline(PostAckHandle[T]{mech: mech, node: nd})
	return true
}
