package sched

import "context"

type taskKind uint8

const (
	kindInit taskKind = iota
	kindIdle
	kindHardware
	kindSoftware
	kindDispatcher
)

// Context is handed to a task body for one invocation. Its storage belongs
// to the task and is reused by every invocation.
type Context struct {
	name  string
	kind  taskKind
	prio  Priority
	hw    Hardware
	scope scope
}

func (c *Context) Name() string {
	return c.name
}

func (c *Context) Priority() *Priority {
	return &c.prio
}

// Lock runs fn under the lock protocol at the given ceiling.
func (c *Context) Lock(ceiling uint8, fn func()) {
	Lock(c.hw, &c.prio, ceiling, fn)
}

// Running reports whether an invocation is in progress.
func (c *Context) Running() bool {
	return c.scope.open
}

func (c *Context) init(name string, kind taskKind, priority uint8, hw Hardware) {
	c.name = name
	c.kind = kind
	c.prio = Priority{base: priority, current: priority}
	c.hw = hw
}

func (c *Context) begin() {
	c.prio.reset()
	c.scope.enter()
}

func (c *Context) end() {
	c.scope.exit()
}

// InitContext is the context of the init task. Init runs once, before any
// interrupt is unmasked, at priority 0.
type InitContext struct {
	Context
}

// IdleContext is the context of the idle task.
type IdleContext struct {
	Context
	run context.Context
}

// Done is closed when the application is asked to stop.
func (c *IdleContext) Done() <-chan struct{} {
	return c.run.Done()
}

// Wait sleeps until an interrupt is requested and serviced, or the
// application is stopped.
func (c *IdleContext) Wait() error {
	return c.hw.WaitForInterrupt(c.run)
}

// Poll services interrupts requested since the last call without blocking.
func (c *IdleContext) Poll() {
	c.hw.Poll()
}
