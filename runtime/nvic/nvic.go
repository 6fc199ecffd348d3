// Package nvic models the nested vectored interrupt controller and the
// priority mask registers (BASEPRI, PRIMASK) of a single Cortex-M core.
//
// Handlers run synchronously on the goroutine that pends or unmasks them,
// nested inside whatever is currently executing, exactly when the hardware
// would take the exception: the line must be enabled and pending, and its
// priority strictly more urgent than the current execution priority.
package nvic

import (
	"context"
	"math/bits"
)

// Interrupt is an external interrupt line number.
type Interrupt int16

const maxLines = 16 * 32

// Stats counts the side effects observable on the mask registers.
type Stats struct {
	MaskWrites uint64
	Barriers   uint64
	Handled    uint64
}

type registers struct {
	ISER [16]uint32
	ISPR [16]uint32
	IABR [16]uint32
	IPRn [maxLines]uint8
}

// Controller is the interrupt controller of one core. Apart from Raise,
// its methods must be called from the goroutine that owns the core.
type Controller struct {
	regs     registers
	handlers []func()
	lines    int
	bits     uint8

	basepri uint8
	primask bool
	active  []Interrupt

	maskWrites uint64
	barriers   uint64
	handled    uint64

	requests chan Interrupt
}

// New creates a controller with the given number of lines and implemented
// priority bits.
func New(lines int, bits uint8) *Controller {
	if lines <= 0 || lines > maxLines {
		panic("nvic: invalid number of interrupt lines")
	}
	if bits == 0 || bits > 7 {
		panic("nvic: invalid number of priority bits")
	}
	return &Controller{
		handlers: make([]func(), lines),
		lines:    lines,
		bits:     bits,
		requests: make(chan Interrupt, 64),
	}
}

// PriorityBits returns the number of implemented priority bits.
func (c *Controller) PriorityBits() uint8 {
	return c.bits
}

func (c *Controller) check(i Interrupt) {
	if i < 0 || int(i) >= c.lines {
		panic("nvic: interrupt line out of range")
	}
}

// SetHandler installs the vector for a line.
func (c *Controller) SetHandler(i Interrupt, fn func()) {
	c.check(i)
	c.handlers[i] = fn
}

func (c *Controller) EnableIRQ(i Interrupt) {
	c.check(i)
	c.regs.ISER[i>>5] |= 1 << (i & 0x1F)
	c.service()
}

func (c *Controller) DisableIRQ(i Interrupt) {
	c.check(i)
	c.regs.ISER[i>>5] &^= 1 << (i & 0x1F)
}

func (c *Controller) IsEnabled(i Interrupt) bool {
	c.check(i)
	return c.regs.ISER[i>>5]&(1<<(i&0x1F)) != 0
}

// SetPriority writes the raw priority byte. Unimplemented low bits read as
// zero, as on hardware.
func (c *Controller) SetPriority(i Interrupt, priority uint8) {
	c.check(i)
	c.regs.IPRn[i] = priority & c.implemented()
	c.service()
}

func (c *Controller) Priority(i Interrupt) uint8 {
	c.check(i)
	return c.regs.IPRn[i]
}

// Pend marks the line pending. If it can preempt the current execution
// priority its handler runs before Pend returns.
func (c *Controller) Pend(i Interrupt) {
	c.check(i)
	c.regs.ISPR[i>>5] |= 1 << (i & 0x1F)
	c.service()
}

func (c *Controller) Unpend(i Interrupt) {
	c.check(i)
	c.regs.ISPR[i>>5] &^= 1 << (i & 0x1F)
}

func (c *Controller) IsPending(i Interrupt) bool {
	c.check(i)
	return c.regs.ISPR[i>>5]&(1<<(i&0x1F)) != 0
}

// IsActive reports whether the line's handler is running or preempted.
func (c *Controller) IsActive(i Interrupt) bool {
	c.check(i)
	return c.regs.IABR[i>>5]&(1<<(i&0x1F)) != 0
}

// Active returns the line whose handler is executing, if any.
func (c *Controller) Active() (Interrupt, bool) {
	if len(c.active) == 0 {
		return 0, false
	}
	return c.active[len(c.active)-1], true
}

func (c *Controller) BasePri() uint8 {
	return c.basepri
}

// SetBasePri writes BASEPRI. Zero disables priority masking.
func (c *Controller) SetBasePri(value uint8) {
	c.basepri = value & c.implemented()
	c.maskWrites++
	c.service()
}

// SetBasePriMax writes BASEPRI only when that raises the masking threshold,
// like the BASEPRI_MAX alias of the register. It never unmasks anything.
func (c *Controller) SetBasePriMax(value uint8) {
	value &= c.implemented()
	if value != 0 && (c.basepri == 0 || value < c.basepri) {
		c.basepri = value
	}
	c.maskWrites++
}

// DisableInterrupts sets PRIMASK and returns the previous state.
func (c *Controller) DisableInterrupts() uint32 {
	var state uint32
	if c.primask {
		state = 1
	}
	c.primask = true
	c.maskWrites++
	return state
}

// EnableInterrupts restores a PRIMASK state returned by DisableInterrupts.
func (c *Controller) EnableInterrupts(state uint32) {
	c.primask = state != 0
	c.maskWrites++
	c.service()
}

func (c *Controller) InterruptsDisabled() bool {
	return c.primask
}

// Barrier stands in for DSB/ISB around mask register writes.
func (c *Controller) Barrier() {
	c.barriers++
}

func (c *Controller) Stats() Stats {
	return Stats{
		MaskWrites: c.maskWrites,
		Barriers:   c.barriers,
		Handled:    c.handled,
	}
}

func (c *Controller) implemented() uint8 {
	return uint8(0xFF << (8 - c.bits))
}

// executionPriority returns the raw priority below which an exception can
// preempt. Thread mode is less urgent than any configurable priority.
func (c *Controller) executionPriority() int {
	if c.primask {
		return 0
	}
	prio := 256
	if len(c.active) > 0 {
		prio = int(c.regs.IPRn[c.active[len(c.active)-1]])
	}
	if c.basepri != 0 && int(c.basepri) < prio {
		prio = int(c.basepri)
	}
	return prio
}

// next returns the most urgent line that may preempt now. Ties go to the
// lowest line number.
func (c *Controller) next() (Interrupt, bool) {
	limit := c.executionPriority()
	best, found := Interrupt(0), false
	for word := 0; word*32 < c.lines; word++ {
		ready := c.regs.ISPR[word] & c.regs.ISER[word] &^ c.regs.IABR[word]
		for ready != 0 {
			bit := bits.TrailingZeros32(ready)
			ready &^= 1 << bit
			i := Interrupt(word*32 + bit)
			if int(c.regs.IPRn[i]) >= limit {
				continue
			}
			if !found || c.regs.IPRn[i] < c.regs.IPRn[best] {
				best, found = i, true
			}
		}
	}
	return best, found
}

func (c *Controller) service() {
	for {
		i, ok := c.next()
		if !ok {
			return
		}
		c.take(i)
	}
}

func (c *Controller) take(i Interrupt) {
	c.regs.ISPR[i>>5] &^= 1 << (i & 0x1F)
	c.regs.IABR[i>>5] |= 1 << (i & 0x1F)
	c.active = append(c.active, i)
	defer func() {
		c.active = c.active[:len(c.active)-1]
		c.regs.IABR[i>>5] &^= 1 << (i & 0x1F)
	}()

	c.handled++
	if fn := c.handlers[i]; fn != nil {
		fn()
	}
}

// Raise requests a line from outside the core, like a peripheral asserting
// its interrupt. It is safe to call from any goroutine; the request is
// pended the next time the core waits or polls.
func (c *Controller) Raise(i Interrupt) {
	c.check(i)
	c.requests <- i
}

// Poll pends every outstanding Raise request without blocking.
func (c *Controller) Poll() {
	for {
		select {
		case i := <-c.requests:
			c.Pend(i)
		default:
			return
		}
	}
}

// WaitForInterrupt blocks the core until an external request arrives and
// services it, or until ctx is done.
func (c *Controller) WaitForInterrupt(ctx context.Context) error {
	select {
	case i := <-c.requests:
		c.Pend(i)
		c.Poll()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
