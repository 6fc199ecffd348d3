package sched

import "fmt"

// LateCell is a cell that starts empty and is filled by init.
type LateCell interface {
	Initialized() bool
}

// LateValue moves one value produced by init into its late cell.
type LateValue struct {
	cell  LateCell
	apply func()
}

// LateResources is the bundle returned by init.
type LateResources []LateValue

// Late pairs a late cell with its initial value.
func Late[T any](cell *Cell[T], v T) LateValue {
	return LateValue{
		cell:  cell,
		apply: func() { cell.Initialize(v) },
	}
}

// distribute moves every value into its cell and checks that each
// registered late cell was provided exactly once.
func distribute(values LateResources, cells []LateCell, names []string) error {
	for _, lv := range values {
		if lv.cell.Initialized() {
			return ErrAlreadyInitialized
		}
		lv.apply()
	}
	for i, cell := range cells {
		if !cell.Initialized() {
			return fmt.Errorf("%w: %s", ErrLateMissing, names[i])
		}
	}
	return nil
}
