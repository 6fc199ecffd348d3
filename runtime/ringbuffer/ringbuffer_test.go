package ringbuffer

import (
	"errors"
	"testing"
)

func TestRingFIFO(t *testing.T) {
	r := New[int](3)

	if _, err := r.Dequeue(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Dequeue() on empty ring error = %v, want ErrEmpty", err)
	}

	// Wrap around several times
	next := 0
	for round := 0; round < 5; round++ {
		for i := 0; i < 3; i++ {
			if err := r.Enqueue(round*3 + i); err != nil {
				t.Fatalf("Enqueue() error = %v", err)
			}
		}
		if err := r.Enqueue(-1); !errors.Is(err, ErrFull) {
			t.Fatalf("Enqueue() on full ring error = %v, want ErrFull", err)
		}
		if got := r.Len(); got != 3 {
			t.Fatalf("Len() = %d, want 3", got)
		}
		for i := 0; i < 3; i++ {
			got, err := r.Dequeue()
			if err != nil {
				t.Fatalf("Dequeue() error = %v", err)
			}
			if got != next {
				t.Fatalf("Dequeue() = %d, want %d", got, next)
			}
			next++
		}
		if got := r.Len(); got != 0 {
			t.Fatalf("Len() = %d, want 0", got)
		}
	}
}

func TestRingEach(t *testing.T) {
	r := New[string](2)
	_ = r.Enqueue("a")
	_, _ = r.Dequeue()
	_ = r.Enqueue("b")
	_ = r.Enqueue("c")

	var got []string
	r.Each(func(s string) { got = append(got, s) })
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("Each() visited %v, want [b c]", got)
	}
	if r.Cap() != 2 {
		t.Fatalf("Cap() = %d, want 2", r.Cap())
	}
}
