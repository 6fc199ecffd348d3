// Package codegen turns an analysis into Go source that wires an
// application onto the runtime: task identities, ceilings, typed resource
// accessors, spawn handles and the boot-time assembly of levels and tasks.
package codegen

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/tools/imports"

	"omibyte.io/ceiling/analyzer"
	"omibyte.io/ceiling/decl"
)

var ErrNameClash = errors.New("generated identifiers clash")

const DefaultRuntime = "omibyte.io/ceiling/runtime"

type Options struct {
	// Package is the package clause of the generated file.
	Package string

	// Runtime is the import path prefix of the nvic and sched packages.
	Runtime string

	// Filename is used for import resolution and error messages.
	Filename string
}

type generator struct {
	a    *analyzer.Analysis
	opts Options
}

// Generate emits the application source for a.
func Generate(a *analyzer.Analysis, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "app"
	}
	if opts.Runtime == "" {
		opts.Runtime = DefaultRuntime
	}
	if opts.Filename == "" {
		opts.Filename = "app_gen.go"
	}

	g := &generator{a: a, opts: opts}
	if err := g.checkNames(); err != nil {
		return nil, err
	}

	var w strings.Builder
	g.writePreamble(&w)
	g.writeIdentities(&w)
	g.writeCeilings(&w)
	g.writeInterrupts(&w)
	g.writeLate(&w)
	for _, task := range a.Tasks {
		g.writeContext(&w, task)
	}
	g.writeHandlers(&w)
	g.writeBuild(&w)

	// Format the final output and add imports for resource types
	src := w.String()
	buf, err := imports.Process(opts.Filename, []byte(src), nil)
	if err != nil {
		return nil, fmt.Errorf("error formatting %s: %w", opts.Filename, err)
	}
	return buf, nil
}

func (g *generator) writePreamble(w io.Writer) {
	fmt.Fprintln(w, "// Code generated by ceilingc. DO NOT EDIT.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "package %s\n\n", g.opts.Package)
	fmt.Fprintln(w, "import (")
	fmt.Fprintf(w, "%q\n", g.opts.Runtime+"/nvic")
	fmt.Fprintf(w, "%q\n", g.opts.Runtime+"/sched")
	fmt.Fprintln(w, ")")
	fmt.Fprintln(w)
}

func (g *generator) writeIdentities(w io.Writer) {
	fmt.Fprintln(w, "// TaskID identifies a task of the application.")
	fmt.Fprintln(w, "type TaskID uint8")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "const (")
	for i, task := range g.a.Tasks {
		if i == 0 {
			fmt.Fprintf(w, "Task%s TaskID = iota\n", exported(task.Name))
		} else {
			fmt.Fprintf(w, "Task%s\n", exported(task.Name))
		}
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "func (id TaskID) String() string {")
	fmt.Fprintln(w, "switch id {")
	for _, task := range g.a.Tasks {
		fmt.Fprintf(w, "case Task%s:\nreturn %q\n", exported(task.Name), task.Name)
	}
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w, `return "unknown"`)
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)
}

func (g *generator) writeCeilings(w io.Writer) {
	if len(g.a.Resources) == 0 {
		return
	}
	fmt.Fprintln(w, "// Resource ceilings.")
	fmt.Fprintln(w, "const (")
	for _, resource := range g.a.Resources {
		fmt.Fprintf(w, "Ceiling%s uint8 = %d\n", exported(resource.Name), resource.Ceiling)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintln(w)
}

func (g *generator) writeInterrupts(w io.Writer) {
	var hardware []*analyzer.Task
	for _, task := range g.a.Tasks {
		if task.Kind == decl.KindHardware {
			hardware = append(hardware, task)
		}
	}
	if len(hardware) == 0 {
		return
	}
	fmt.Fprintln(w, "// Interrupt lines of hardware tasks.")
	fmt.Fprintln(w, "const (")
	for _, task := range hardware {
		fmt.Fprintf(w, "Interrupt%s nvic.Interrupt = %d\n", exported(task.Name), task.Interrupt.Number)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintln(w)
}

func (g *generator) writeLate(w io.Writer) {
	late := g.a.LateResources()

	fmt.Fprintln(w, "// LateResources is returned by init. Every field is moved into its")
	fmt.Fprintln(w, "// resource before interrupts are unmasked.")
	fmt.Fprintln(w, "type LateResources struct {")
	for _, resource := range late {
		fmt.Fprintf(w, "%s %s\n", exported(resource.Name), resource.Type)
	}
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)
}

func contextName(task *analyzer.Task) string {
	return exported(task.Name) + "Context"
}

func (g *generator) writeContext(w io.Writer, task *analyzer.Task) {
	name := contextName(task)
	fmt.Fprintf(w, "// %s is handed to each invocation of %s.\n", name, task.Name)
	fmt.Fprintf(w, "type %s struct {\n", name)
	switch task.Kind {
	case decl.KindInit:
		fmt.Fprintln(w, "*sched.InitContext")
	case decl.KindIdle:
		fmt.Fprintln(w, "*sched.IdleContext")
	default:
		fmt.Fprintln(w, "*sched.Context")
	}

	for _, resource := range task.Shared {
		fmt.Fprintf(w, "%s *sched.Shared[%s]\n", exported(resource.Name), resource.Type)
	}
	for _, resource := range task.Owned {
		fmt.Fprintf(w, "%s *sched.Exclusive[%s]\n", exported(resource.Name), resource.Type)
	}
	for _, local := range task.Locals {
		fmt.Fprintf(w, "%s *sched.Local[%s]\n", exported(local.Name), local.Type)
	}
	for _, target := range task.Spawns {
		fmt.Fprintf(w, "Spawn%s sched.Spawner[%s]\n", exported(target.Name), target.Input)
	}
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)
}

func (g *generator) writeHandlers(w io.Writer) {
	fmt.Fprintln(w, "// Handlers holds the body of every task.")
	fmt.Fprintln(w, "type Handlers struct {")
	for _, task := range g.a.Tasks {
		field, ctx := exported(task.Name), contextName(task)
		switch task.Kind {
		case decl.KindInit:
			fmt.Fprintf(w, "%s func(ctx %s) LateResources\n", field, ctx)
		case decl.KindIdle:
			fmt.Fprintf(w, "%s func(ctx %s) error\n", field, ctx)
		case decl.KindHardware:
			fmt.Fprintf(w, "%s func(ctx %s)\n", field, ctx)
		case decl.KindSoftware:
			fmt.Fprintf(w, "%s func(ctx %s, payload %s)\n", field, ctx, task.Input)
		}
	}
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)
}

func cellVar(resource *analyzer.Resource) string {
	return "cell" + exported(resource.Name)
}

func accessorVar(resource *analyzer.Resource) string {
	return "res" + exported(resource.Name)
}

func taskVar(task *analyzer.Task) string {
	return "task" + exported(task.Name)
}

func localVar(task *analyzer.Task, local decl.Local) string {
	return "local" + exported(task.Name) + exported(local.Name)
}

func levelVar(level *analyzer.Level) string {
	return fmt.Sprintf("level%d", level.Priority)
}

func zero(typ string) string {
	return fmt.Sprintf("*new(%s)", typ)
}

func (g *generator) writeBuild(w io.Writer) {
	fmt.Fprintln(w, "// Build assembles the application on ctrl. Every resource, queue and slot")
	fmt.Fprintln(w, "// is allocated here, once.")
	fmt.Fprintln(w, "func Build(ctrl *nvic.Controller, h Handlers) *sched.App {")
	fmt.Fprintln(w, "app := sched.New(ctrl)")
	fmt.Fprintln(w)

	// Resource cells and accessors
	for _, resource := range g.a.Resources {
		switch {
		case resource.Late:
			fmt.Fprintf(w, "%s := sched.NewLateCell[%s]()\n", cellVar(resource), resource.Type)
			fmt.Fprintf(w, "app.RequireLate(%q, %s)\n", resource.Name, cellVar(resource))
		case resource.Init == "":
			fmt.Fprintf(w, "%s := sched.NewCell[%s](%s)\n", cellVar(resource), resource.Type, zero(resource.Type))
		default:
			fmt.Fprintf(w, "%s := sched.NewCell[%s](%s)\n", cellVar(resource), resource.Type, resource.Init)
		}
		if resource.Contended {
			fmt.Fprintf(w, "%s := sched.NewShared(%s, Ceiling%s)\n", accessorVar(resource), cellVar(resource), exported(resource.Name))
		} else {
			fmt.Fprintf(w, "%s := sched.NewExclusive(%s)\n", accessorVar(resource), cellVar(resource))
		}
	}

	// Task locals
	for _, task := range g.a.Tasks {
		for _, local := range task.Locals {
			init := local.Init
			if init == "" {
				init = zero(local.Type)
			}
			fmt.Fprintf(w, "%s := sched.NewLocal[%s](%s)\n", localVar(task, local), local.Type, init)
		}
	}
	fmt.Fprintln(w)

	// Dispatch levels
	for _, level := range g.a.Levels {
		fmt.Fprintf(w, "%s := app.NewLevel(%d, %d, %d, %d)\n", levelVar(level), level.Priority, level.Dispatcher.Number, level.Ceiling, level.Capacity)
	}

	// Software tasks are declared first so any body can spawn any task
	software := g.a.SoftwareTasks()
	if len(software) > 0 {
		fmt.Fprintln(w, "var (")
		for _, task := range software {
			fmt.Fprintf(w, "%s *sched.Task[%s]\n", taskVar(task), task.Input)
		}
		fmt.Fprintln(w, ")")
	}
	for _, task := range software {
		fmt.Fprintf(w, "%s = sched.NewTask(%s, %q, %d, %d, func(ctx *sched.Context, payload %s) {\n",
			taskVar(task), levelVar(task.Level), task.Name, task.Capacity, task.FreeCeiling, task.Input)
		fmt.Fprintf(w, "h.%s(%s, payload)\n", exported(task.Name), g.contextLiteral(task, "ctx"))
		fmt.Fprintln(w, "})")
		if len(task.Spawners) == 0 {
			// Nothing holds a spawn handle for it
			fmt.Fprintf(w, "_ = %s\n", taskVar(task))
		}
	}
	fmt.Fprintln(w)

	// Hardware tasks
	for _, task := range g.a.Tasks {
		if task.Kind != decl.KindHardware {
			continue
		}
		fmt.Fprintf(w, "app.Bind(%q, %d, %d, func(ctx *sched.Context) {\n", task.Name, task.Interrupt.Number, task.Priority)
		fmt.Fprintf(w, "h.%s(%s)\n", exported(task.Name), g.contextLiteral(task, "ctx"))
		fmt.Fprintln(w, "})")
	}
	fmt.Fprintln(w)

	// Init and idle
	if task := g.a.Init; task != nil {
		fmt.Fprintln(w, "app.Init(func(ctx *sched.InitContext) sched.LateResources {")
		fmt.Fprintf(w, "if h.%s == nil {\nreturn nil\n}\n", exported(task.Name))
		if late := g.a.LateResources(); len(late) == 0 {
			fmt.Fprintf(w, "h.%s(%s)\n", exported(task.Name), g.contextLiteral(task, "&ctx.Context"))
			fmt.Fprintln(w, "return nil")
		} else {
			fmt.Fprintf(w, "late := h.%s(%s)\n", exported(task.Name), g.contextLiteral(task, "&ctx.Context"))
			fmt.Fprintln(w, "return sched.LateResources{")
			for _, resource := range late {
				fmt.Fprintf(w, "sched.Late(%s, late.%s),\n", cellVar(resource), exported(resource.Name))
			}
			fmt.Fprintln(w, "}")
		}
		fmt.Fprintln(w, "})")
	}
	if task := g.a.Idle; task != nil {
		fmt.Fprintf(w, "if h.%s != nil {\n", exported(task.Name))
		fmt.Fprintln(w, "app.Idle(func(ctx *sched.IdleContext) error {")
		fmt.Fprintf(w, "return h.%s(%s)\n", exported(task.Name), g.contextLiteral(task, "&ctx.Context"))
		fmt.Fprintln(w, "})")
		fmt.Fprintln(w, "}")
	}
	fmt.Fprintln(w, "return app")
	fmt.Fprintln(w, "}")
}

// contextLiteral builds the context value for one invocation. base is the
// *sched.Context expression spawn handles are bound to.
func (g *generator) contextLiteral(task *analyzer.Task, base string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s{\n", contextName(task))
	switch task.Kind {
	case decl.KindInit:
		fmt.Fprintln(&b, "InitContext: ctx,")
	case decl.KindIdle:
		fmt.Fprintln(&b, "IdleContext: ctx,")
	default:
		fmt.Fprintln(&b, "Context: ctx,")
	}
	for _, resource := range task.Shared {
		fmt.Fprintf(&b, "%s: %s,\n", exported(resource.Name), accessorVar(resource))
	}
	for _, resource := range task.Owned {
		fmt.Fprintf(&b, "%s: %s,\n", exported(resource.Name), accessorVar(resource))
	}
	for _, local := range task.Locals {
		fmt.Fprintf(&b, "%s: %s,\n", exported(local.Name), localVar(task, local))
	}
	for _, target := range task.Spawns {
		fmt.Fprintf(&b, "Spawn%s: %s.Spawner(%s),\n", exported(target.Name), taskVar(target), base)
	}
	b.WriteString("}")
	return b.String()
}

// checkNames rejects declarations whose names collapse onto the same Go
// identifier.
func (g *generator) checkNames() error {
	var errs []error
	claim := func(kind string, names map[string]string, id, name string) {
		if prev, ok := names[id]; ok && prev != name {
			errs = append(errs, fmt.Errorf("%w: %s %s and %s both become %s", ErrNameClash, kind, prev, name, id))
		}
		names[id] = name
	}
	seen := func(kind string, names map[string]string, name string) {
		claim(kind, names, exported(name), name)
	}

	tasks := map[string]string{}
	for _, task := range g.a.Tasks {
		seen("task", tasks, task.Name)
	}
	resources := map[string]string{}
	for _, resource := range g.a.Resources {
		seen("resource", resources, resource.Name)
	}
	for _, task := range g.a.Tasks {
		fields := map[string]string{}
		switch task.Kind {
		case decl.KindInit:
			fields["InitContext"] = "the embedded context"
		case decl.KindIdle:
			fields["IdleContext"] = "the embedded context"
		default:
			fields["Context"] = "the embedded context"
		}
		for _, resource := range task.Shared {
			seen("field of "+task.Name, fields, resource.Name)
		}
		for _, resource := range task.Owned {
			seen("field of "+task.Name, fields, resource.Name)
		}
		for _, local := range task.Locals {
			seen("field of "+task.Name, fields, local.Name)
		}
		for _, target := range task.Spawns {
			claim("field of "+task.Name, fields, "Spawn"+exported(target.Name), "the spawn handle of "+target.Name)
		}
	}
	return errors.Join(errs...)
}

// exported converts a declaration name such as "uart_rx" into "UartRx".
func exported(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == '.' || unicode.IsSpace(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
