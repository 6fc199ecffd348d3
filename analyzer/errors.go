package analyzer

import "errors"

var (
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInitTask         = errors.New("invalid init/idle declaration")
	ErrPriorityRange    = errors.New("priority out of range")
	ErrUnknownResource  = errors.New("access to undeclared resource")
	ErrUnknownTask      = errors.New("spawn of undeclared task")
	ErrNotSpawnable     = errors.New("task cannot be spawned")
	ErrNoAccessor       = errors.New("resource has no accessor")
	ErrLateInit         = errors.New("late resource has a static initializer")
	ErrLateAccess       = errors.New("init cannot access a late resource")
	ErrUnknownInterrupt = errors.New("unknown interrupt")
	ErrInterruptInUse   = errors.New("interrupt already bound")
	ErrNoDispatcher     = errors.New("not enough dispatcher interrupts")
	ErrCapacity         = errors.New("capacity out of range")
)
