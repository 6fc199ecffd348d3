package sched

import (
	"omibyte.io/ceiling/runtime/nvic"
	"omibyte.io/ceiling/runtime/ringbuffer"
)

type readyEntry struct {
	task uint8
	slot uint8
}

// Level is one software dispatch priority. Its dispatcher interrupt drains
// the ready queue shared by every software task at that priority, in FIFO
// order.
type Level struct {
	app      *App
	priority uint8
	irq      nvic.Interrupt
	ceiling  uint8
	ready    *ringbuffer.Ring[readyEntry]

	// table is indexed by readyEntry.task and fixed once the app starts.
	table []func(slot uint8)
	ctx   Context

	// inflight counts, per task, slots that are in neither queue. Each
	// counter is only touched under that task's free or ready queue lock.
	inflight []int
}

// NewLevel reserves a dispatch level served by irq. The ready queue holds
// capacity entries and is protected at ceiling.
func (a *App) NewLevel(priority uint8, irq nvic.Interrupt, ceiling uint8, capacity int) *Level {
	if a.started {
		panic(ErrStarted)
	}
	l := &Level{
		app:      a,
		priority: priority,
		irq:      irq,
		ceiling:  ceiling,
		ready:    ringbuffer.New[readyEntry](capacity),
	}
	l.ctx.init("dispatcher", kindDispatcher, priority, a.hw)
	a.levels = append(a.levels, l)
	return l
}

func (l *Level) Priority() uint8 { return l.priority }

func (l *Level) Interrupt() nvic.Interrupt { return l.irq }

// Pending returns the number of queued invocations.
func (l *Level) Pending() int { return l.ready.Len() }

// dispatch is the interrupt handler of the level.
func (l *Level) dispatch() {
	l.ctx.begin()
	defer l.ctx.end()

	for {
		var (
			entry readyEntry
			err   error
		)
		l.ctx.Lock(l.ceiling, func() {
			if entry, err = l.ready.Dequeue(); err == nil {
				l.inflight[entry.task]++
			}
		})
		if err != nil {
			return
		}
		l.table[entry.task](entry.slot)
	}
}

// Task is a software task taking payloads of type T. Spawned payloads wait
// in a fixed set of input slots whose indices circulate between the free
// queue and the level's ready queue.
type Task[T any] struct {
	level       *Level
	index       uint8
	free        *ringbuffer.Ring[uint8]
	freeCeiling uint8
	slots       []T
	body        func(ctx *Context, payload T)
	ctx         Context
}

// NewTask adds a software task to a level. The free queue is protected at
// freeCeiling, the highest priority among the task's spawners and its
// dispatcher.
func NewTask[T any](l *Level, name string, capacity uint8, freeCeiling uint8, body func(ctx *Context, payload T)) *Task[T] {
	if l.app.started {
		panic(ErrStarted)
	}
	if capacity == 0 {
		panic("sched: task capacity must be positive")
	}
	if len(l.table) > 0xFF {
		panic("sched: too many tasks on one level")
	}

	t := &Task[T]{
		level:       l,
		index:       uint8(len(l.table)),
		free:        ringbuffer.New[uint8](int(capacity)),
		freeCeiling: freeCeiling,
		slots:       make([]T, capacity),
		body:        body,
	}
	for i := 0; i < int(capacity); i++ {
		_ = t.free.Enqueue(uint8(i))
	}
	t.ctx.init(name, kindSoftware, l.priority, l.app.hw)
	l.table = append(l.table, t.run)
	l.inflight = append(l.inflight, 0)
	return t
}

func (t *Task[T]) Name() string { return t.ctx.name }

// Spawn schedules one invocation of the task with payload. When every slot
// is taken the payload is returned with ErrFull and nothing changes.
//
// From init the queues are touched directly: interrupts are still masked.
// Everywhere else both queue operations go through the lock protocol.
func (t *Task[T]) Spawn(ctx *Context, payload T) (T, error) {
	var zero T

	level := t.level
	direct := ctx.kind == kindInit
	var (
		slot uint8
		err  error
	)
	claim := func() {
		if slot, err = t.free.Dequeue(); err == nil {
			level.inflight[t.index]++
		}
	}
	if direct {
		claim()
	} else {
		ctx.Lock(t.freeCeiling, claim)
	}
	if err != nil {
		return payload, ErrFull
	}

	// The payload is written before the entry is published.
	t.slots[slot] = payload

	publish := func() {
		if err = level.ready.Enqueue(readyEntry{task: t.index, slot: slot}); err == nil {
			level.inflight[t.index]--
		}
	}
	if direct {
		publish()
	} else {
		ctx.Lock(level.ceiling, publish)
	}
	if err != nil {
		// The ready queue is sized to the sum of its tasks' capacities.
		panic(err)
	}

	ctx.hw.Pend(level.irq)
	return zero, nil
}

// run takes the payload out of slot, releases the slot and invokes the body.
func (t *Task[T]) run(slot uint8) {
	var zero T
	payload := t.slots[slot]
	t.slots[slot] = zero

	level := t.level
	var err error
	level.ctx.Lock(t.freeCeiling, func() {
		if err = t.free.Enqueue(slot); err == nil {
			level.inflight[t.index]--
		}
	})
	if err != nil {
		panic(err)
	}

	t.ctx.begin()
	defer t.ctx.end()
	t.body(&t.ctx, payload)
}

// Spawner returns a spawn handle bound to ctx.
func (t *Task[T]) Spawner(ctx *Context) Spawner[T] {
	return Spawner[T]{task: t, ctx: ctx}
}

// Spawner is the capability to spawn one task from one context.
type Spawner[T any] struct {
	task *Task[T]
	ctx  *Context
}

func (s Spawner[T]) Spawn(payload T) (T, error) {
	return s.task.Spawn(s.ctx, payload)
}

// QueueStats is a snapshot of where a task's slots are.
type QueueStats struct {
	Capacity int
	Free     int
	Ready    int
	InFlight int
}

func (t *Task[T]) Stats() QueueStats {
	ready := 0
	t.level.ready.Each(func(e readyEntry) {
		if e.task == t.index {
			ready++
		}
	})
	return QueueStats{
		Capacity: len(t.slots),
		Free:     t.free.Len(),
		Ready:    ready,
		InFlight: t.level.inflight[t.index],
	}
}
