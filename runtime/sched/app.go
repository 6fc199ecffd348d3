// Package sched is the run-time half of the scheduler: the priority
// ceiling lock, resource accessors, software task queues with their
// dispatchers, and the boot sequence that ties them to the interrupt
// controller.
//
// Everything here is sized when the application is assembled. Nothing is
// allocated per spawn or per invocation, no task ever blocks, and mutual
// exclusion comes from raising the interrupt priority mask to ceilings
// computed ahead of time by the analyzer.
package sched

import (
	"context"
	"fmt"

	"omibyte.io/ceiling/runtime/nvic"
)

// HardwareTask runs directly off an interrupt line.
type HardwareTask struct {
	irq  nvic.Interrupt
	body func(ctx *Context)
	ctx  Context
}

func (t *HardwareTask) Name() string { return t.ctx.name }

func (t *HardwareTask) Interrupt() nvic.Interrupt { return t.irq }

func (t *HardwareTask) handle() {
	t.ctx.begin()
	defer t.ctx.end()
	t.body(&t.ctx)
}

// App is a complete, statically known task set bound to one core.
type App struct {
	hw   Hardware
	bits uint8

	init func(ctx *InitContext) LateResources
	idle func(ctx *IdleContext) error

	initCtx InitContext
	idleCtx IdleContext

	tasks     []*HardwareTask
	levels    []*Level
	late      []LateCell
	lateNames []string

	started bool
}

func New(hw Hardware) *App {
	a := &App{
		hw:   hw,
		bits: hw.PriorityBits(),
	}
	a.initCtx.init("init", kindInit, 0, hw)
	a.idleCtx.init("idle", kindIdle, 0, hw)
	return a
}

// MaxPriority returns the most urgent logical priority of the hardware.
func (a *App) MaxPriority() uint8 {
	return nvic.MaxLogical(a.bits)
}

// InitContext returns the context used by init. Spawn handles and
// accessors for init are built from it.
func (a *App) InitContext() *InitContext {
	return &a.initCtx
}

// IdleContext returns the context used by idle.
func (a *App) IdleContext() *IdleContext {
	return &a.idleCtx
}

// Init sets the init task body. Its LateResources fill every registered late
// cell.
func (a *App) Init(fn func(ctx *InitContext) LateResources) {
	a.init = fn
}

// Idle sets the idle task body. Without one the core waits for interrupts.
func (a *App) Idle(fn func(ctx *IdleContext) error) {
	a.idle = fn
}

// Bind attaches a hardware task to an interrupt line.
func (a *App) Bind(name string, irq nvic.Interrupt, priority uint8, body func(ctx *Context)) *HardwareTask {
	if a.started {
		panic(ErrStarted)
	}
	t := &HardwareTask{irq: irq, body: body}
	t.ctx.init(name, kindHardware, priority, a.hw)
	a.tasks = append(a.tasks, t)
	return t
}

// RequireLate registers a cell that init must provide.
func (a *App) RequireLate(name string, cell LateCell) {
	if a.started {
		panic(ErrStarted)
	}
	a.late = append(a.late, cell)
	a.lateNames = append(a.lateNames, name)
}

func (a *App) validate() error {
	max := a.MaxPriority()
	for _, t := range a.tasks {
		if p := t.ctx.prio.base; p < 1 || p > max {
			return fmt.Errorf("%w: task %s at %d, hardware supports 1..%d", ErrPriority, t.ctx.name, p, max)
		}
	}
	for _, l := range a.levels {
		if l.priority < 1 || l.priority > max {
			return fmt.Errorf("%w: dispatch level %d, hardware supports 1..%d", ErrPriority, l.priority, max)
		}
	}
	return nil
}

// Start runs the boot sequence up to the point where idle would take over:
// interrupts are masked, init runs and its late resources are moved into
// place, the interrupt lines are enabled, and interrupts are unmasked.
// Anything init spawned is dispatched before Start returns.
func (a *App) Start() error {
	if a.started {
		return ErrStarted
	}
	if err := a.validate(); err != nil {
		return err
	}
	a.started = true

	state := a.hw.DisableInterrupts()

	// Program the vector table and priorities
	for _, t := range a.tasks {
		a.hw.SetPriority(t.irq, nvic.Logical2HW(t.ctx.prio.base, a.bits))
		a.hw.SetHandler(t.irq, t.handle)
	}
	for _, l := range a.levels {
		a.hw.SetPriority(l.irq, nvic.Logical2HW(l.priority, a.bits))
		a.hw.SetHandler(l.irq, l.dispatch)
	}

	// Run init and hand its late resources over
	var late LateResources
	if a.init != nil {
		a.initCtx.begin()
		late = a.init(&a.initCtx)
		a.initCtx.end()
	}
	if err := distribute(late, a.late, a.lateNames); err != nil {
		a.hw.EnableInterrupts(state)
		return err
	}

	// Enable the lines, then let them fire
	for _, t := range a.tasks {
		a.hw.EnableIRQ(t.irq)
	}
	for _, l := range a.levels {
		a.hw.EnableIRQ(l.irq)
	}
	a.hw.Barrier()
	a.hw.EnableInterrupts(0)
	return nil
}

// Run boots the application and then runs idle until ctx is done. Without
// an idle task the core sleeps between interrupts.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	a.idleCtx.run = ctx
	a.idleCtx.begin()
	defer a.idleCtx.end()

	if a.idle != nil {
		return a.idle(&a.idleCtx)
	}
	for {
		if err := a.idleCtx.Wait(); err != nil {
			return err
		}
	}
}
