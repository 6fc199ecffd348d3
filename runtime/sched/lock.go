package sched

import "omibyte.io/ceiling/runtime/nvic"

// Lock runs fn with exclusive access to a resource whose ceiling is given.
//
// A caller already running at or above the ceiling cannot be preempted by
// any other accessor, so fn runs directly. Otherwise BASEPRI is raised to
// the ceiling through BASEPRI_MAX for the duration of fn and restored on
// every exit path, including panics. Ceilings at the most urgent priority cannot be expressed
// in BASEPRI and fall back to PRIMASK.
func Lock(m Mask, p *Priority, ceiling uint8, fn func()) {
	if ceiling < p.base {
		panic(ErrCeilingViolation)
	}

	current := p.current
	if current >= ceiling {
		fn()
		return
	}

	bits := m.PriorityBits()
	if ceiling >= nvic.MaxLogical(bits) {
		state := m.DisableInterrupts()
		p.current = ceiling
		m.Barrier()
		defer func() {
			m.Barrier()
			p.current = current
			m.EnableInterrupts(state)
		}()
		fn()
		return
	}

	old := m.BasePri()
	p.current = ceiling
	m.SetBasePriMax(nvic.Logical2HW(ceiling, bits))
	m.Barrier()
	defer func() {
		m.Barrier()
		p.current = current
		m.SetBasePri(old)
	}()
	fn()
}
