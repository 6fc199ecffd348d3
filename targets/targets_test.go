package targets

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestFind(t *testing.T) {
	tests := []struct {
		name   string
		series string
		bits   uint8
	}{
		{"samd21", "samd21", 2},
		{"atsamd21g18a", "samd21", 2},
		{"ATSAME51J19A", "samx51", 3},
		{"host", "host", 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target, err := All().Find(tc.name)
			if err != nil {
				t.Fatalf("Find(%q) error = %v", tc.name, err)
			}
			if target.Series != tc.series {
				t.Fatalf("Find(%q).Series = %q, want %q", tc.name, target.Series, tc.series)
			}
			if target.PriorityBits != tc.bits {
				t.Fatalf("Find(%q).PriorityBits = %d, want %d", tc.name, target.PriorityBits, tc.bits)
			}
		})
	}

	if _, err := All().Find("esp32"); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("Find(esp32) error = %v, want ErrTargetNotFound", err)
	}
}

func TestInterrupt(t *testing.T) {
	samd21, err := All().FindBySeries("samd21")
	if err != nil {
		t.Fatal(err)
	}
	irq, err := samd21.Interrupt("tc6")
	if err != nil {
		t.Fatalf("Interrupt(tc6) error = %v", err)
	}
	if irq.Number != 21 {
		t.Fatalf("Interrupt(tc6).Number = %d, want 21", irq.Number)
	}
	if _, err := samd21.Interrupt("IRQ3"); !errors.Is(err, ErrInterruptNotFound) {
		t.Fatalf("Interrupt(IRQ3) on samd21 error = %v, want ErrInterruptNotFound", err)
	}
	if got := samd21.MaxPriority(); got != 4 {
		t.Fatalf("MaxPriority() = %d, want 4", got)
	}

	host, err := All().FindBySeries("host")
	if err != nil {
		t.Fatal(err)
	}
	irq, err = host.Interrupt("IRQ31")
	if err != nil || irq.Number != 31 {
		t.Fatalf("Interrupt(IRQ31) = %v, %v, want line 31", irq, err)
	}
	if _, err := host.Interrupt("IRQ32"); err == nil {
		t.Fatal("Interrupt(IRQ32) succeeded on a 32 line device")
	}
	if got := host.NumInterrupts(); got != 32 {
		t.Fatalf("NumInterrupts() = %d, want 32", got)
	}
}

func TestFromSVD(t *testing.T) {
	f, err := os.Open("testdata/device.svd")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	target, err := FromSVD(f)
	if err != nil {
		t.Fatalf("FromSVD() error = %v", err)
	}
	if target.Series != "samd21" || target.Cpu != "cortex-m0plus" || target.PriorityBits != 2 {
		t.Fatalf("FromSVD() = %+v", target)
	}

	want := []Interrupt{{"PM", 0}, {"EIC", 4}, {"EVSYS", 8}, {"TC3", 18}, {"TC4", 19}}
	if !reflect.DeepEqual(target.Interrupts, want) {
		t.Fatalf("Interrupts = %v, want %v", target.Interrupts, want)
	}
	if target.Lines != 20 {
		t.Fatalf("Lines = %d, want 20", target.Lines)
	}
	if irq, err := target.Interrupt("tc3"); err != nil || irq.Number != 18 {
		t.Fatalf("Interrupt(tc3) = %v, %v", irq, err)
	}
}

func TestFromSVDErrors(t *testing.T) {
	for _, src := range []string{
		"<device><name>X</name>",
		"<device><name>X</name><cpu><name>CM4</name><nvicPrioBits>0</nvicPrioBits></cpu></device>",
	} {
		if _, err := FromSVD(strings.NewReader(src)); !errors.Is(err, ErrInvalidDevice) {
			t.Errorf("FromSVD(%q) error = %v, want %v", src, err, ErrInvalidDevice)
		}
	}
}
