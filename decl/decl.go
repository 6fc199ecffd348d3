// Package decl holds the task and resource declarations consumed by the
// analyzer. A declaration is normally read from a YAML file produced by a
// front end.
package decl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrParse       = errors.New("declaration parse error")
	ErrUnknownKind = errors.New("unknown task kind")
)

// TaskKind distinguishes how a task is started.
type TaskKind uint8

const (
	KindInit TaskKind = iota
	KindIdle
	KindHardware
	KindSoftware
)

func (k TaskKind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindIdle:
		return "idle"
	case KindHardware:
		return "hardware"
	case KindSoftware:
		return "software"
	default:
		return "unknown"
	}
}

func (k TaskKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TaskKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "init":
		*k = KindInit
	case "idle":
		*k = KindIdle
	case "hardware", "hw", "interrupt":
		*k = KindHardware
	case "software", "sw":
		*k = KindSoftware
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, text)
	}
	return nil
}

// Task is one statically declared task.
type Task struct {
	Name      string   `yaml:"name"`
	Kind      TaskKind `yaml:"kind"`
	Interrupt string   `yaml:"interrupt,omitempty"`
	Priority  uint8    `yaml:"priority,omitempty"`
	Resources []string `yaml:"resources,omitempty"`
	Spawns    []string `yaml:"spawns,omitempty"`
	Capacity  uint8    `yaml:"capacity,omitempty"`
	Input     string   `yaml:"input,omitempty"`
	Locals    []Local  `yaml:"locals,omitempty"`
}

// Local is task-private persistent storage.
type Local struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Init string `yaml:"init,omitempty"`
}

// Resource is one piece of shared state.
type Resource struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Init string `yaml:"init,omitempty"`
	Late bool   `yaml:"late,omitempty"`
}

// Declaration is the complete static description of an application.
type Declaration struct {
	Device      string     `yaml:"device"`
	Dispatchers []string   `yaml:"dispatchers,omitempty"`
	Resources   []Resource `yaml:"resources,omitempty"`
	Tasks       []Task     `yaml:"tasks"`
}

// Accesses reports whether the task declares access to the named resource.
func (t *Task) Accesses(resource string) bool {
	for _, name := range t.Resources {
		if name == resource {
			return true
		}
	}
	return false
}

// Task returns the task with the given name, or nil.
func (d *Declaration) Task(name string) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].Name == name {
			return &d.Tasks[i]
		}
	}
	return nil
}

// Resource returns the resource with the given name, or nil.
func (d *Declaration) Resource(name string) *Resource {
	for i := range d.Resources {
		if d.Resources[i].Name == name {
			return &d.Resources[i]
		}
	}
	return nil
}

// Parse decodes a YAML declaration. Unknown fields are rejected.
func Parse(buf []byte) (*Declaration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)

	var d Declaration
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Join(ErrParse, err)
	}

	// yaml.v3 cannot tell an omitted field from its zero value, so the
	// task keys are read again from the node tree.
	var root yaml.Node
	if err := yaml.Unmarshal(buf, &root); err != nil {
		return nil, errors.Join(ErrParse, err)
	}
	keys := taskKeys(&root)

	// Apply defaults
	for i := range d.Tasks {
		task := &d.Tasks[i]
		var set map[string]bool
		if i < len(keys) {
			set = keys[i]
		}
		if !set["kind"] {
			return nil, errors.Join(ErrParse, fmt.Errorf("%w: task %q has no kind", ErrUnknownKind, task.Name))
		}
		if task.Kind != KindSoftware {
			continue
		}
		if !set["capacity"] {
			task.Capacity = 1
		}
		if task.Input == "" {
			task.Input = "struct{}"
		}
	}
	return &d, nil
}

// taskKeys returns, for every entry of the tasks list, the keys written out
// in the document.
func taskKeys(root *yaml.Node) []map[string]bool {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "tasks" {
			continue
		}
		var keys []map[string]bool
		for _, item := range doc.Content[i+1].Content {
			set := map[string]bool{}
			for j := 0; j+1 < len(item.Content); j += 2 {
				set[item.Content[j].Value] = true
			}
			keys = append(keys, set)
		}
		return keys
	}
	return nil
}

// Load reads and parses the declaration file at path.
func Load(path string) (*Declaration, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
