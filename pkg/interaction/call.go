package interaction

import "sync"

// Call is the handle of one issued request. It settles exactly once.
type Call struct {
	Seq uint64

	done    chan struct{}
	once    sync.Once
	applied bool
}

func newCall(seq uint64) *Call {
	return &Call{Seq: seq, done: make(chan struct{})}
}

// Done is closed once the call has settled and its result was either
// applied to the state or discarded as stale.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles and reports whether its result became
// the visible state.
func (c *Call) Wait() bool {
	<-c.done
	return c.applied
}

func (c *Call) settle(applied bool) {
	c.once.Do(func() {
		c.applied = applied
		close(c.done)
	})
}
