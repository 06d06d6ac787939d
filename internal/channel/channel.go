// Package channel wraps Go channels behind small interfaces so the
// import pipeline can swap the buffering of its job feed without
// touching the workers. Production builds hand out buffered channels;
// the debug build tag forces unbuffered ones, which makes pipeline
// stalls reproduce deterministically.
package channel

// Receiver is the consuming side of a job feed.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender is the producing side of a job feed.
type Sender[T any] interface {
	Send(T)
}

// Channel combines both sides and owns the close.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
