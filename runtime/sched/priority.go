package sched

import (
	"context"

	"omibyte.io/ceiling/runtime/nvic"
)

// Mask is the priority mask capability the lock protocol is built on.
type Mask interface {
	PriorityBits() uint8
	BasePri() uint8
	SetBasePri(uint8)
	SetBasePriMax(uint8)
	DisableInterrupts() uint32
	EnableInterrupts(uint32)
	Barrier()
}

// Hardware is the interrupt controller boundary used by an App.
type Hardware interface {
	Mask
	SetPriority(nvic.Interrupt, uint8)
	SetHandler(nvic.Interrupt, func())
	EnableIRQ(nvic.Interrupt)
	Pend(nvic.Interrupt)
	Poll()
	WaitForInterrupt(context.Context) error
}

// Priority is the priority one invocation is currently running at. It starts
// at the task's static priority and is raised while locks are held.
type Priority struct {
	base    uint8
	current uint8
}

func NewPriority(base uint8) *Priority {
	return &Priority{base: base, current: base}
}

// Base returns the static priority of the running task.
func (p *Priority) Base() uint8 { return p.base }

// Current returns the effective priority, including held locks.
func (p *Priority) Current() uint8 { return p.current }

func (p *Priority) reset() { p.current = p.base }
