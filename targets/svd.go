package targets

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"

	"omibyte.io/ceiling/targets/svd"
)

var ErrInvalidDevice = errors.New("invalid device description")

// cpuNames maps CMSIS core names onto the names used in targets.yaml.
var cpuNames = map[string]string{
	"CM0":     "cortex-m0",
	"CM0+":    "cortex-m0plus",
	"CM0PLUS": "cortex-m0plus",
	"CM3":     "cortex-m3",
	"CM4":     "cortex-m4",
	"CM7":     "cortex-m7",
	"CM23":    "cortex-m23",
	"CM33":    "cortex-m33",
}

// FromSVD builds a target profile from a CMSIS SVD file. Interrupts shared
// by several peripherals are listed once, under the first name seen.
func FromSVD(r io.Reader) (TargetInfo, error) {
	device, err := svd.Decode(r)
	if err != nil {
		return TargetInfo{}, errors.Join(ErrInvalidDevice, err)
	}

	bits := uint8(device.CPU.NVICPriorityBits)
	if bits == 0 || bits > 7 {
		return TargetInfo{}, fmt.Errorf("%w: %s implements %d priority bits", ErrInvalidDevice, device.Name, device.CPU.NVICPriorityBits)
	}

	series := device.Series
	if series == "" {
		series = device.Name
	}
	cpu, ok := cpuNames[strings.ToUpper(device.CPU.Name)]
	if !ok {
		cpu = strings.ToLower(device.CPU.Name)
	}

	target := TargetInfo{
		Series:       strings.ToLower(series),
		Chips:        []string{strings.ToLower(device.Name)},
		Cpu:          cpu,
		Architecture: "arm",
		PriorityBits: bits,
	}

	seen := map[int16]bool{}
	for _, periph := range device.Peripherals.Elements {
		for _, irq := range periph.Interrupts {
			number := int16(irq.Value)
			if seen[number] {
				continue
			}
			seen[number] = true
			target.Interrupts = append(target.Interrupts, Interrupt{Name: irq.Name, Number: number})
		}
	}

	slices.SortFunc(target.Interrupts, func(a, b Interrupt) bool {
		return a.Number < b.Number
	})
	if n := len(target.Interrupts); n > 0 {
		target.Lines = target.Interrupts[n-1].Number + 1
	}
	return target, nil
}
