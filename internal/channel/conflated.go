package channel

// Conflated is a capacity-one channel that keeps only the newest value.
// Send never blocks: a pending unconsumed value is replaced. Slow
// consumers therefore see the latest state instead of a growing backlog.
type Conflated[T any] struct {
	ch chan T
}

// NewConflated creates a new conflated channel.
func NewConflated[T any]() *Conflated[T] {
	return &Conflated[T]{ch: make(chan T, 1)}
}

// Send replaces any pending value with v.
func (c *Conflated[T]) Send(v T) {
	for {
		select {
		case c.ch <- v:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// Receive returns the receive-only channel.
func (c *Conflated[T]) Receive() <-chan T {
	return c.ch
}

// Len returns 1 when a value is pending, 0 otherwise.
func (c *Conflated[T]) Len() int {
	return len(c.ch)
}

// Close closes the channel.
func (c *Conflated[T]) Close() {
	close(c.ch)
}
