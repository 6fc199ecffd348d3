package ringbuffer

import "errors"

// Ring is a fixed-capacity FIFO. Storage is reserved once by New and never
// grows.
type Ring[E any] struct {
	buffer []E
	begin  int
	end    int
	full   bool
}

var (
	ErrEmpty = errors.New("buffer is empty")
	ErrFull  = errors.New("buffer is full")
)

func New[E any](capacity int) *Ring[E] {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	return &Ring[E]{buffer: make([]E, capacity)}
}

func (r *Ring[E]) Enqueue(e E) error {
	if r.full {
		return ErrFull
	}

	// Set the current element
	r.buffer[r.end] = e

	// Advance the end iterator, wrapping around
	r.end++
	if r.end == len(r.buffer) {
		r.end = 0
	}

	// Check if the next element is the begin iterator
	if r.end == r.begin {
		r.full = true
	}
	return nil
}

func (r *Ring[E]) Dequeue() (E, error) {
	var zero E
	if !r.full && r.end == r.begin {
		return zero, ErrEmpty
	}

	// Take the current element and clear the slot
	e := r.buffer[r.begin]
	r.buffer[r.begin] = zero

	// Advance the begin iterator, wrapping around
	r.begin++
	if r.begin == len(r.buffer) {
		r.begin = 0
	}

	// The buffer would no longer be full
	r.full = false
	return e, nil
}

func (r *Ring[E]) Len() int {
	if r.full {
		return len(r.buffer)
	} else if r.end >= r.begin {
		return r.end - r.begin
	} else {
		return (len(r.buffer) - r.begin) + r.end
	}
}

func (r *Ring[E]) Cap() int {
	return len(r.buffer)
}

// Each calls fn for every queued element from oldest to newest.
func (r *Ring[E]) Each(fn func(E)) {
	for i, n := r.begin, r.Len(); n > 0; n-- {
		fn(r.buffer[i])
		i++
		if i == len(r.buffer) {
			i = 0
		}
	}
}
