package targets

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

//go:embed targets.yaml
var rawTargets []byte

var targets Targets
var (
	ErrTargetNotFound    = errors.New("target not found")
	ErrInterruptNotFound = errors.New("interrupt not found")
)

func All() Targets {
	return targets
}

type Targets []TargetInfo

// Interrupt is one external interrupt line of a device.
type Interrupt struct {
	Name   string `yaml:"name"`
	Number int16  `yaml:"number"`
}

type TargetInfo struct {
	Series       string      `yaml:"series"`
	Chips        []string    `yaml:"chips"`
	Cpu          string      `yaml:"cpu"`
	Architecture string      `yaml:"architecture"`
	PriorityBits uint8       `yaml:"priorityBits"`
	Lines        int16       `yaml:"lines"`
	Interrupts   []Interrupt `yaml:"interrupts"`
}

// MaxPriority returns the highest logical priority a task may use.
func (t TargetInfo) MaxPriority() uint8 {
	return uint8(1 << t.PriorityBits)
}

// Interrupt looks up an interrupt line by name. Targets declaring a line
// count without names expose generic lines named IRQ0..IRQn-1.
func (t TargetInfo) Interrupt(name string) (Interrupt, error) {
	for _, irq := range t.Interrupts {
		if strings.EqualFold(irq.Name, name) {
			return irq, nil
		}
	}

	var n int16
	if _, err := fmt.Sscanf(strings.ToUpper(name), "IRQ%d", &n); err == nil && n >= 0 && n < t.Lines {
		return Interrupt{Name: name, Number: n}, nil
	}
	return Interrupt{}, fmt.Errorf("%w: %s on %s", ErrInterruptNotFound, name, t.Series)
}

// NumInterrupts returns the size of the device's vector table.
func (t TargetInfo) NumInterrupts() int {
	n := int(t.Lines)
	for _, irq := range t.Interrupts {
		if int(irq.Number)+1 > n {
			n = int(irq.Number) + 1
		}
	}
	return n
}

func (t Targets) FindBySeries(name string) (TargetInfo, error) {
	for _, target := range t {
		if target.Series == strings.ToLower(name) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: series %s", ErrTargetNotFound, name)
}

func (t Targets) FindByChip(name string) (TargetInfo, error) {
	for _, target := range t {
		if slices.Contains(target.Chips, strings.ToLower(name)) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: chip %s", ErrTargetNotFound, name)
}

// Find resolves a series or chip name.
func (t Targets) Find(name string) (TargetInfo, error) {
	if target, err := t.FindBySeries(name); err == nil {
		return target, nil
	}
	return t.FindByChip(name)
}

func init() {
	var t struct {
		Elements []TargetInfo `yaml:"targets"`
	}
	if err := yaml.Unmarshal(rawTargets, &t); err != nil {
		panic(err)
	}

	// Logical priorities are stored in a byte.
	for _, target := range t.Elements {
		if target.PriorityBits == 0 || target.PriorityBits > 7 {
			panic("targets: invalid priorityBits for " + target.Series)
		}
	}

	targets = t.Elements
}
