package sched

import "math"

// scope is a numbered window during which guards handed out from it are
// valid: a lock scope of a resource, or one invocation of a task.
type scope struct {
	epoch uint64
	open  bool
}

func (s *scope) enter() uint64 {
	if s.open {
		panic(ErrReentrant)
	}
	if s.epoch == math.MaxUint64 {
		panic(ErrCounterOverflow)
	}
	s.epoch++
	s.open = true
	return s.epoch
}

func (s *scope) exit() {
	s.open = false
}

func (s *scope) valid(epoch uint64) bool {
	return s.open && s.epoch == epoch
}

// Guard grants access to a value for the lifetime of one scope. Using a
// guard after its scope has ended panics with ErrGuardExpired.
type Guard[T any] struct {
	v     *T
	s     *scope
	epoch uint64
}

func (g Guard[T]) check() {
	if g.s == nil || !g.s.valid(g.epoch) {
		panic(ErrGuardExpired)
	}
}

func (g Guard[T]) Get() T {
	g.check()
	return *g.v
}

func (g Guard[T]) Set(v T) {
	g.check()
	*g.v = v
}

// Update applies fn to the guarded value in place.
func (g Guard[T]) Update(fn func(v *T)) {
	g.check()
	fn(g.v)
}

// Ptr returns the guarded value's address. It must not be retained past
// the scope.
func (g Guard[T]) Ptr() *T {
	g.check()
	return g.v
}
