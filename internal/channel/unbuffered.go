package channel

// Unbuffered hands each value straight to a consumer; every Send
// blocks until a worker takes the job.
type Unbuffered[T any] struct {
	ch chan T
}

// NewUnbuffered returns a rendezvous channel.
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

// Send blocks until a consumer receives the value.
func (u *Unbuffered[T]) Send(v T) {
	u.ch <- v
}

// Receive exposes the consuming side for range loops and selects.
func (u *Unbuffered[T]) Receive() <-chan T {
	return u.ch
}

// Len is always 0; nothing is ever held.
func (u *Unbuffered[T]) Len() int {
	return 0
}

// Close ends the feed.
func (u *Unbuffered[T]) Close() {
	close(u.ch)
}
