package channel

// Buffered decouples producer and consumers up to its capacity; the
// import pool sizes it to the job count so the feeder never blocks.
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered returns a channel with the given capacity.
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send queues a value, blocking only when the buffer is full.
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// Receive exposes the consuming side for range loops and selects.
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len reports how many values sit in the buffer.
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Close ends the feed; consumers drain what remains.
func (b *Buffered[T]) Close() {
	close(b.ch)
}
