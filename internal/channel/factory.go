//go:build !debug

package channel

// New returns the job feed used by the import pool: buffered at the
// given size in normal builds.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
