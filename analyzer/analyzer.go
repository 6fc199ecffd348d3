// Package analyzer computes resource ceilings for a static task set.
//
// The analysis is a pure function of the declaration and the target
// profile. Every correctness check happens here; an Analysis that is
// returned without error can be turned into a program that needs no
// runtime checks beyond the lock protocol itself.
package analyzer

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/ceiling/decl"
	"omibyte.io/ceiling/targets"
)

// Task is a declared task annotated with analysis results.
type Task struct {
	*decl.Task

	// ID is the position of the task in the declaration.
	ID int

	// Interrupt is the bound line of a hardware task.
	Interrupt targets.Interrupt

	// Level is the dispatch level of a software task.
	Level *Level

	// Index is the position of a software task within its level.
	Index int

	Spawns   []*Task
	Spawners []*Task

	// FreeCeiling protects the free queue of a software task.
	FreeCeiling uint8

	// Shared lists contended resources, Owned uncontended ones.
	Shared []*Resource
	Owned  []*Resource
}

// Resource is a declared resource annotated with its ceiling.
type Resource struct {
	*decl.Resource

	index int

	Ceiling   uint8
	Contended bool
	Accessors []*Task
}

// Level is one software dispatch priority.
type Level struct {
	Priority   uint8
	Dispatcher targets.Interrupt
	Tasks      []*Task

	// Capacity is the sum of the capacities of Tasks.
	Capacity int

	// Ceiling protects the ready queue.
	Ceiling uint8
}

type Analysis struct {
	Declaration *decl.Declaration
	Target      targets.TargetInfo

	Init      *Task
	Idle      *Task
	Tasks     []*Task
	Resources []*Resource

	// Levels are ordered from the highest priority down.
	Levels []*Level

	// SpawnCycles lists tasks that can re-spawn themselves through a chain
	// of spawns. They are legal but can exhaust their capacity.
	SpawnCycles [][]string
}

// Task returns the named task or nil.
func (a *Analysis) Task(name string) *Task {
	for _, task := range a.Tasks {
		if task.Name == name {
			return task
		}
	}
	return nil
}

// Resource returns the named resource or nil.
func (a *Analysis) Resource(name string) *Resource {
	for _, resource := range a.Resources {
		if resource.Name == name {
			return resource
		}
	}
	return nil
}

// Ceilings maps every resource name to its ceiling.
func (a *Analysis) Ceilings() map[string]uint8 {
	ceilings := make(map[string]uint8, len(a.Resources))
	for _, resource := range a.Resources {
		ceilings[resource.Name] = resource.Ceiling
	}
	return ceilings
}

// LateResources returns the resources produced by init.
func (a *Analysis) LateResources() []*Resource {
	var late []*Resource
	for _, resource := range a.Resources {
		if resource.Late {
			late = append(late, resource)
		}
	}
	return late
}

// SoftwareTasks returns the spawnable tasks in declaration order.
func (a *Analysis) SoftwareTasks() []*Task {
	var tasks []*Task
	for _, task := range a.Tasks {
		if task.Kind == decl.KindSoftware {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Analyze validates the declaration against the target and computes the
// ceiling of every resource. All validation failures are returned together.
func Analyze(d *decl.Declaration, target targets.TargetInfo) (*Analysis, error) {
	a := &Analysis{
		Declaration: d,
		Target:      target,
	}

	var errs []error
	errs = append(errs, a.collectTasks()...)
	errs = append(errs, a.collectResources()...)
	errs = append(errs, a.resolveInterrupts()...)
	errs = append(errs, a.resolveSpawns()...)

	ag := newAccessGraph(a.Tasks, a.Resources)
	errs = append(errs, a.resolveAccesses(ag)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	a.computeCeilings()
	if err := a.computeLevels(); err != nil {
		return nil, err
	}
	a.computeQueueCeilings()
	a.SpawnCycles = spawnCycles(a.Tasks)
	return a, nil
}

func (a *Analysis) collectTasks() (errs []error) {
	names := map[string]bool{}
	max := a.Target.MaxPriority()

	for i := range a.Declaration.Tasks {
		dt := &a.Declaration.Tasks[i]
		task := &Task{Task: dt, ID: i}
		a.Tasks = append(a.Tasks, task)

		if names[dt.Name] {
			errs = append(errs, fmt.Errorf("%w: task %s", ErrDuplicateName, dt.Name))
		}
		names[dt.Name] = true

		switch dt.Kind {
		case decl.KindInit, decl.KindIdle:
			if dt.Kind == decl.KindInit {
				if a.Init != nil {
					errs = append(errs, fmt.Errorf("%w: second init task %s", ErrInitTask, dt.Name))
				}
				a.Init = task
			} else {
				if a.Idle != nil {
					errs = append(errs, fmt.Errorf("%w: second idle task %s", ErrInitTask, dt.Name))
				}
				a.Idle = task
			}
			if dt.Priority != 0 {
				errs = append(errs, fmt.Errorf("%w: %s task %s runs at priority 0, not %d", ErrPriorityRange, dt.Kind, dt.Name, dt.Priority))
			}
		case decl.KindHardware, decl.KindSoftware:
			if dt.Priority < 1 || dt.Priority > max {
				errs = append(errs, fmt.Errorf("%w: task %s has priority %d, %s supports 1..%d", ErrPriorityRange, dt.Name, dt.Priority, a.Target.Series, max))
			}
			if dt.Kind == decl.KindSoftware && dt.Capacity == 0 {
				errs = append(errs, fmt.Errorf("%w: task %s has capacity 0", ErrCapacity, dt.Name))
			}
		}
	}

	if a.Init == nil {
		errs = append(errs, fmt.Errorf("%w: no init task", ErrInitTask))
	}
	return errs
}

func (a *Analysis) collectResources() (errs []error) {
	names := map[string]bool{}
	for i := range a.Declaration.Resources {
		dr := &a.Declaration.Resources[i]
		a.Resources = append(a.Resources, &Resource{Resource: dr, index: i})

		if names[dr.Name] {
			errs = append(errs, fmt.Errorf("%w: resource %s", ErrDuplicateName, dr.Name))
		}
		names[dr.Name] = true

		if dr.Late && dr.Init != "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrLateInit, dr.Name))
		}
	}
	return errs
}

func (a *Analysis) resolveInterrupts() (errs []error) {
	bound := map[int16]string{}
	bind := func(owner, name string) (targets.Interrupt, bool) {
		irq, err := a.Target.Interrupt(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", ErrUnknownInterrupt, name, owner))
			return irq, false
		}
		if prev, ok := bound[irq.Number]; ok {
			errs = append(errs, fmt.Errorf("%w: %s is used by %s and %s", ErrInterruptInUse, name, prev, owner))
			return irq, false
		}
		bound[irq.Number] = owner
		return irq, true
	}

	for _, task := range a.Tasks {
		if task.Kind != decl.KindHardware {
			continue
		}
		if task.Task.Interrupt == "" {
			errs = append(errs, fmt.Errorf("%w: hardware task %s has no interrupt", ErrUnknownInterrupt, task.Name))
			continue
		}
		task.Interrupt, _ = bind("task "+task.Name, task.Task.Interrupt)
	}

	for _, name := range a.Declaration.Dispatchers {
		bind("dispatcher", name)
	}
	return errs
}

func (a *Analysis) resolveSpawns() (errs []error) {
	for _, task := range a.Tasks {
		for _, name := range task.Task.Spawns {
			target := a.Task(name)
			switch {
			case target == nil:
				errs = append(errs, fmt.Errorf("%w: %s spawns %s", ErrUnknownTask, task.Name, name))
				continue
			case target.Kind != decl.KindSoftware:
				errs = append(errs, fmt.Errorf("%w: %s spawns %s task %s", ErrNotSpawnable, task.Name, target.Kind, name))
				continue
			case slices.Contains(task.Spawns, target):
				continue
			}
			task.Spawns = append(task.Spawns, target)
			target.Spawners = append(target.Spawners, task)
		}
	}
	return errs
}

func (a *Analysis) resolveAccesses(ag *accessGraph) (errs []error) {
	for _, task := range a.Tasks {
		for _, name := range task.Task.Resources {
			resource := a.Resource(name)
			if resource == nil {
				errs = append(errs, fmt.Errorf("%w: %s accesses %s", ErrUnknownResource, task.Name, name))
				continue
			}
			if task.Kind == decl.KindInit && resource.Late {
				errs = append(errs, fmt.Errorf("%w: %s", ErrLateAccess, name))
				continue
			}
			ag.addAccess(task, resource)
		}
	}

	for _, resource := range a.Resources {
		resource.Accessors = ag.accessors(resource)
		if len(resource.Accessors) == 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoAccessor, resource.Name))
		}
	}
	return errs
}

// computeCeilings assigns ceiling = max accessor priority. A resource with a
// single accessor is uncontended and never locked.
func (a *Analysis) computeCeilings() {
	for _, resource := range a.Resources {
		for _, task := range resource.Accessors {
			if task.Priority > resource.Ceiling {
				resource.Ceiling = task.Priority
			}
		}
		resource.Contended = len(resource.Accessors) > 1

		for _, task := range resource.Accessors {
			if resource.Contended {
				task.Shared = append(task.Shared, resource)
			} else {
				task.Owned = append(task.Owned, resource)
			}
		}
	}
}

func (a *Analysis) computeLevels() error {
	byPriority := map[uint8][]*Task{}
	for _, task := range a.SoftwareTasks() {
		byPriority[task.Priority] = append(byPriority[task.Priority], task)
	}

	priorities := maps.Keys(byPriority)
	slices.Sort(priorities)
	if len(priorities) > len(a.Declaration.Dispatchers) {
		return fmt.Errorf("%w: %d software priority levels, %d dispatchers", ErrNoDispatcher, len(priorities), len(a.Declaration.Dispatchers))
	}

	// The first dispatcher serves the highest level
	for i := len(priorities) - 1; i >= 0; i-- {
		irq, err := a.Target.Interrupt(a.Declaration.Dispatchers[len(a.Levels)])
		if err != nil {
			return err
		}
		level := &Level{
			Priority:   priorities[i],
			Dispatcher: irq,
			Tasks:      byPriority[priorities[i]],
		}
		for j, task := range level.Tasks {
			task.Level = level
			task.Index = j
			level.Capacity += int(task.Capacity)
		}
		a.Levels = append(a.Levels, level)
	}
	return nil
}

// computeQueueCeilings protects each free queue at the highest priority of
// its spawners and its dispatcher. A ready queue is touched by the spawners
// of every task on the level.
func (a *Analysis) computeQueueCeilings() {
	for _, level := range a.Levels {
		level.Ceiling = level.Priority
		for _, task := range level.Tasks {
			task.FreeCeiling = level.Priority
			for _, spawner := range task.Spawners {
				if spawner.Priority > task.FreeCeiling {
					task.FreeCeiling = spawner.Priority
				}
			}
			if task.FreeCeiling > level.Ceiling {
				level.Ceiling = task.FreeCeiling
			}
		}
	}
}
