package sched

import (
	"errors"
	"sync/atomic"
)

var ErrDeviceBusy = errors.New("storage device busy")

// DeviceLock is the busy flag a storage driver raises while it runs a
// transaction spanning several files. It is not a ceiling lock: it never
// touches the priority mask and never waits. A task that finds the device
// busy gets ErrDeviceBusy and decides for itself whether to retry later.
type DeviceLock struct {
	busy atomic.Bool
}

func (d *DeviceLock) TryLock() error {
	if !d.busy.CompareAndSwap(false, true) {
		return ErrDeviceBusy
	}
	return nil
}

func (d *DeviceLock) Unlock() {
	d.busy.Store(false)
}

func (d *DeviceLock) Locked() bool {
	return d.busy.Load()
}

// Do runs fn while holding the device, or returns ErrDeviceBusy.
func (d *DeviceLock) Do(fn func() error) error {
	if err := d.TryLock(); err != nil {
		return err
	}
	defer d.Unlock()
	return fn()
}
