//go:build debug

package channel

// New ignores size under the debug tag: an unbuffered feed surfaces
// producer/consumer stalls at the Send that caused them.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
