package sched

type cellState uint8

const (
	cellUninit cellState = iota
	cellReady
)

// Cell is the static storage behind a resource. A late cell starts
// uninitialized and is filled once by the boot sequence.
type Cell[T any] struct {
	value T
	state cellState
	lock  scope
}

func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{value: v, state: cellReady}
}

func NewLateCell[T any]() *Cell[T] {
	return &Cell[T]{}
}

func (c *Cell[T]) Initialized() bool {
	return c.state == cellReady
}

// Initialize moves v into an uninitialized cell.
func (c *Cell[T]) Initialize(v T) {
	if c.state != cellUninit {
		panic(ErrAlreadyInitialized)
	}
	c.value = v
	c.state = cellReady
}

func (c *Cell[T]) ptr() *T {
	if c.state != cellReady {
		panic(ErrUninitialized)
	}
	return &c.value
}

// Shared is a contended resource. Its value is reachable only through
// Lock, which elevates the caller to the resource ceiling.
type Shared[T any] struct {
	cell    *Cell[T]
	ceiling uint8
}

func NewShared[T any](cell *Cell[T], ceiling uint8) *Shared[T] {
	return &Shared[T]{cell: cell, ceiling: ceiling}
}

func (s *Shared[T]) Ceiling() uint8 {
	return s.ceiling
}

// Lock runs fn with exclusive access to the value. The guard is valid only
// until fn returns.
func (s *Shared[T]) Lock(ctx *Context, fn func(g Guard[T])) {
	ctx.Lock(s.ceiling, func() {
		v := s.cell.ptr()
		// An open scope here means another accessor was preempted inside
		// its critical section: the ceiling is wrong.
		epoch := s.cell.lock.enter()
		defer s.cell.lock.exit()
		fn(Guard[T]{v: v, s: &s.cell.lock, epoch: epoch})
	})
}

// LockValue is Lock for critical sections that produce a result.
func LockValue[T, R any](ctx *Context, s *Shared[T], fn func(g Guard[T]) R) R {
	var r R
	s.Lock(ctx, func(g Guard[T]) {
		r = fn(g)
	})
	return r
}

// Exclusive is an uncontended resource: exactly one task accesses it, so it
// is reached directly and never touches the priority mask.
type Exclusive[T any] struct {
	cell *Cell[T]
}

func NewExclusive[T any](cell *Cell[T]) *Exclusive[T] {
	return &Exclusive[T]{cell: cell}
}

func (e *Exclusive[T]) Get() *T {
	return e.cell.ptr()
}

// Local is persistent storage private to one task. Every invocation of the
// owning task borrows the same value back.
type Local[T any] struct {
	value T
	owner *scope
}

func NewLocal[T any](v T) *Local[T] {
	return &Local[T]{value: v}
}

// Borrow hands the running invocation exclusive access to the value. The
// guard expires when the invocation returns. The first task to borrow a
// local owns it; any other task panics with ErrNotOwner.
func (l *Local[T]) Borrow(ctx *Context) Guard[T] {
	if l.owner == nil {
		l.owner = &ctx.scope
	} else if l.owner != &ctx.scope {
		panic(ErrNotOwner)
	}
	if !ctx.scope.open {
		panic(ErrGuardExpired)
	}
	return Guard[T]{v: &l.value, s: &ctx.scope, epoch: ctx.scope.epoch}
}
