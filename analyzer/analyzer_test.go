package analyzer

import (
	"errors"
	"reflect"
	"testing"

	"omibyte.io/ceiling/decl"
	"omibyte.io/ceiling/targets"
)

func hostTarget(t *testing.T) targets.TargetInfo {
	t.Helper()
	target, err := targets.All().FindBySeries("host")
	if err != nil {
		t.Fatal(err)
	}
	return target
}

func analyzeSource(t *testing.T, src string) (*Analysis, error) {
	t.Helper()
	d, err := decl.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return Analyze(d, hostTarget(t))
}

func TestAnalyzeScenario(t *testing.T) {
	d, err := decl.Load("testdata/scenario.yaml")
	if err != nil {
		t.Fatal(err)
	}
	a, err := Analyze(d, hostTarget(t))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	wantCeilings := map[string]uint8{"shared": 3, "counter": 2, "console": 1}
	if got := a.Ceilings(); !reflect.DeepEqual(got, wantCeilings) {
		t.Fatalf("Ceilings() = %v, want %v", got, wantCeilings)
	}

	contended := map[string]bool{"shared": true, "counter": false, "console": true}
	for name, want := range contended {
		if got := a.Resource(name).Contended; got != want {
			t.Errorf("Resource(%s).Contended = %v, want %v", name, got, want)
		}
	}

	foo := a.Task("foo")
	if len(foo.Owned) != 1 || foo.Owned[0].Name != "counter" || len(foo.Shared) != 0 {
		t.Fatalf("foo owns %v, shares %v", foo.Owned, foo.Shared)
	}
	low := a.Task("low")
	if len(low.Shared) != 2 {
		t.Fatalf("low shares %d resources, want 2", len(low.Shared))
	}

	if len(a.Levels) != 1 {
		t.Fatalf("len(Levels) = %d, want 1", len(a.Levels))
	}
	level := a.Levels[0]
	if level.Priority != 2 || level.Dispatcher.Number != 30 || level.Capacity != 3 || level.Ceiling != 2 {
		t.Fatalf("Levels[0] = %+v", level)
	}
	if foo.Level != level || foo.Index != 0 || a.Task("bar").Index != 1 {
		t.Fatal("software tasks are not assigned to their level in declaration order")
	}
	if got := len(foo.Spawners); got != 3 {
		t.Fatalf("len(foo.Spawners) = %d, want 3", got)
	}
	if foo.FreeCeiling != 2 {
		t.Fatalf("foo.FreeCeiling = %d, want 2", foo.FreeCeiling)
	}

	if a.Init.Name != "init" || a.Idle.Name != "idle" {
		t.Fatalf("Init = %s, Idle = %s", a.Init.Name, a.Idle.Name)
	}
	if late := a.LateResources(); len(late) != 1 || late[0].Name != "console" {
		t.Fatalf("LateResources() = %v", late)
	}
	if len(a.SpawnCycles) != 0 {
		t.Fatalf("SpawnCycles = %v, want none", a.SpawnCycles)
	}
}

func TestCeilingIsMaxOverAllAccessors(t *testing.T) {
	a, err := analyzeSource(t, `
device: host
dispatchers: [IRQ31]
resources:
  - {name: r, type: int}
tasks:
  - {name: init, kind: init}
  - {name: a, kind: software, priority: 2, resources: [r]}
  - {name: b, kind: software, priority: 2, resources: [r]}
  - {name: c, kind: hardware, interrupt: IRQ0, priority: 5, resources: [r]}
`)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	r := a.Resource("r")
	if r.Ceiling != 5 || !r.Contended {
		t.Fatalf("r = {Ceiling: %d, Contended: %v}, want {5, true}", r.Ceiling, r.Contended)
	}
}

func TestEqualPriorityAccessorsStillContend(t *testing.T) {
	a, err := analyzeSource(t, `
device: host
dispatchers: [IRQ31]
resources:
  - {name: r, type: int}
tasks:
  - {name: init, kind: init}
  - {name: a, kind: software, priority: 2, resources: [r]}
  - {name: b, kind: software, priority: 2, resources: [r]}
`)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if r := a.Resource("r"); !r.Contended || r.Ceiling != 2 {
		t.Fatalf("r = {Ceiling: %d, Contended: %v}, want {2, true}", r.Ceiling, r.Contended)
	}
}

func TestLevelsAndQueueCeilings(t *testing.T) {
	a, err := analyzeSource(t, `
device: host
dispatchers: [IRQ29, IRQ30, IRQ31]
tasks:
  - {name: init, kind: init, spawns: [slow]}
  - {name: isr, kind: hardware, interrupt: IRQ0, priority: 6, spawns: [slow, fast]}
  - {name: slow, kind: software, priority: 1, capacity: 4, spawns: [fast]}
  - {name: fast, kind: software, priority: 4, capacity: 2, spawns: [slow]}
`)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(a.Levels) != 2 {
		t.Fatalf("len(Levels) = %d, want 2", len(a.Levels))
	}

	high, low := a.Levels[0], a.Levels[1]
	if high.Priority != 4 || high.Dispatcher.Number != 29 {
		t.Fatalf("Levels[0] = {Priority: %d, Dispatcher: %d}, want {4, 29}", high.Priority, high.Dispatcher.Number)
	}
	if low.Priority != 1 || low.Dispatcher.Number != 30 {
		t.Fatalf("Levels[1] = {Priority: %d, Dispatcher: %d}, want {1, 30}", low.Priority, low.Dispatcher.Number)
	}
	if got := a.Task("slow").FreeCeiling; got != 6 {
		t.Fatalf("slow.FreeCeiling = %d, want 6", got)
	}
	if high.Ceiling != 6 || low.Ceiling != 6 {
		t.Fatalf("ready ceilings = %d, %d, want 6, 6", high.Ceiling, low.Ceiling)
	}
	if want := [][]string{{"slow", "fast"}}; !reflect.DeepEqual(a.SpawnCycles, want) {
		t.Fatalf("SpawnCycles = %v, want %v", a.SpawnCycles, want)
	}
}

func TestSelfSpawnCycle(t *testing.T) {
	a, err := analyzeSource(t, `
device: host
dispatchers: [IRQ31]
tasks:
  - {name: init, kind: init, spawns: [tick]}
  - {name: tick, kind: software, priority: 1, spawns: [tick]}
`)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if want := [][]string{{"tick"}}; !reflect.DeepEqual(a.SpawnCycles, want) {
		t.Fatalf("SpawnCycles = %v, want %v", a.SpawnCycles, want)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"no accessor", `
resources: [{name: r, type: int}]
tasks: [{name: init, kind: init}]
`, ErrNoAccessor},
		{"priority too high", `
tasks:
  - {name: init, kind: init}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 9}
`, ErrPriorityRange},
		{"priority zero", `
tasks:
  - {name: init, kind: init}
  - {name: a, kind: hardware, interrupt: IRQ0}
`, ErrPriorityRange},
		{"init priority", `
tasks: [{name: init, kind: init, priority: 2}]
`, ErrPriorityRange},
		{"late double init", `
resources: [{name: r, type: int, init: "1", late: true}]
tasks:
  - {name: init, kind: init}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 1, resources: [r]}
`, ErrLateInit},
		{"init accesses late", `
resources: [{name: r, type: int, late: true}]
tasks:
  - {name: init, kind: init, resources: [r]}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 1, resources: [r]}
`, ErrLateAccess},
		{"undeclared spawn", `
tasks: [{name: init, kind: init, spawns: [ghost]}]
`, ErrUnknownTask},
		{"spawn hardware", `
tasks:
  - {name: init, kind: init, spawns: [a]}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 1}
`, ErrNotSpawnable},
		{"undeclared resource", `
tasks: [{name: init, kind: init, resources: [ghost]}]
`, ErrUnknownResource},
		{"no init", `
tasks: [{name: a, kind: hardware, interrupt: IRQ0, priority: 1}]
`, ErrInitTask},
		{"two idles", `
tasks:
  - {name: init, kind: init}
  - {name: i1, kind: idle}
  - {name: i2, kind: idle}
`, ErrInitTask},
		{"duplicate task", `
tasks:
  - {name: init, kind: init}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 1}
  - {name: a, kind: hardware, interrupt: IRQ1, priority: 1}
`, ErrDuplicateName},
		{"unknown interrupt", `
tasks:
  - {name: init, kind: init}
  - {name: a, kind: hardware, interrupt: UART9, priority: 1}
`, ErrUnknownInterrupt},
		{"shared line", `
tasks:
  - {name: init, kind: init}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 1}
  - {name: b, kind: hardware, interrupt: IRQ0, priority: 2}
`, ErrInterruptInUse},
		{"dispatcher line bound", `
dispatchers: [IRQ0]
tasks:
  - {name: init, kind: init}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 1}
`, ErrInterruptInUse},
		{"missing dispatcher", `
dispatchers: [IRQ31]
tasks:
  - {name: init, kind: init, spawns: [a, b]}
  - {name: a, kind: software, priority: 1}
  - {name: b, kind: software, priority: 2}
`, ErrNoDispatcher},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := analyzeSource(t, "device: host\n"+tc.src)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Analyze() error = %v, want %v", err, tc.want)
			}
			if a != nil {
				t.Fatal("Analyze() returned an analysis alongside an error")
			}
		})
	}
}

func TestAnalyzeReportsEveryError(t *testing.T) {
	_, err := analyzeSource(t, `
device: host
resources: [{name: r, type: int}]
tasks:
  - {name: init, kind: init, spawns: [ghost]}
  - {name: a, kind: hardware, interrupt: IRQ0, priority: 12}
`)
	for _, want := range []error{ErrNoAccessor, ErrUnknownTask, ErrPriorityRange} {
		if !errors.Is(err, want) {
			t.Errorf("Analyze() error = %v, want it to include %v", err, want)
		}
	}
}

func TestCapacityZero(t *testing.T) {
	d := &decl.Declaration{
		Device:      "host",
		Dispatchers: []string{"IRQ31"},
		Tasks: []decl.Task{
			{Name: "init", Kind: decl.KindInit},
			{Name: "a", Kind: decl.KindSoftware, Priority: 1},
		},
	}
	if _, err := Analyze(d, hostTarget(t)); !errors.Is(err, ErrCapacity) {
		t.Fatalf("Analyze() error = %v, want ErrCapacity", err)
	}
}

func TestCapacityZeroFromYAML(t *testing.T) {
	_, err := analyzeSource(t, `
device: host
dispatchers: [IRQ31]
tasks:
  - {name: init, kind: init}
  - {name: a, kind: software, priority: 1, capacity: 0}
`)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("Analyze() error = %v, want ErrCapacity", err)
	}
}
