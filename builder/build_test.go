package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"omibyte.io/ceiling/analyzer"
	"omibyte.io/ceiling/codegen"
)

func testEnv(out string) Env {
	return Env{
		"CEILINGTARGET":  "",
		"CEILINGOUT":     out,
		"CEILINGPACKAGE": "app",
		"CEILINGRUNTIME": codegen.DefaultRuntime,
	}
}

func TestBuild(t *testing.T) {
	out := t.TempDir()
	opts := Options{
		Inputs:      []string{"testdata/scenario.yaml"},
		Package:     "demo",
		Environment: testEnv(filepath.Join(out, "gen")),
	}
	if err := Build(context.Background(), opts); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	buf, err := os.ReadFile(filepath.Join(out, "gen", "scenario_gen.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(buf), "package demo") {
		t.Fatalf("generated file has wrong package:\n%s", buf)
	}
}

func TestBuildToFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "app.go")
	opts := Options{
		Inputs:      []string{"testdata/scenario.yaml"},
		Output:      output,
		Target:      "samd21",
		Environment: testEnv(""),
	}

	// samd21 only has named lines, so IRQn does not resolve
	err := Build(context.Background(), opts)
	if !errors.Is(err, ErrAnalysis) || !errors.Is(err, analyzer.ErrUnknownInterrupt) {
		t.Fatalf("Build() error = %v, want %v", err, analyzer.ErrUnknownInterrupt)
	}

	opts.Target = "sim"
	if err := Build(context.Background(), opts); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatal(err)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{
			name: "no input",
			opts: Options{},
			want: ErrNoInput,
		},
		{
			name: "several inputs into one file",
			opts: Options{
				Inputs: []string{"testdata/scenario.yaml", "testdata/scenario.yaml"},
				Output: "out.go",
			},
			want: ErrUnexpectedOutputPath,
		},
		{
			name: "two inputs with one name",
			opts: Options{
				Inputs: []string{"testdata/scenario.yaml", "../codegen/testdata/scenario.yaml"},
			},
			want: ErrUnexpectedOutputPath,
		},
		{
			name: "missing file",
			opts: Options{Inputs: []string{"testdata/nope.yaml"}},
			want: os.ErrNotExist,
		},
		{
			name: "unknown field",
			opts: Options{Inputs: []string{"testdata/unknown_field.yaml"}},
			want: ErrParserError,
		},
		{
			name: "unknown target",
			opts: Options{Inputs: []string{"testdata/scenario.yaml"}, Target: "pdp11"},
			want: ErrUnknownTarget,
		},
		{
			name: "unknown resource",
			opts: Options{Inputs: []string{"testdata/unknown_resource.yaml"}},
			want: analyzer.ErrUnknownResource,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Environment = testEnv(t.TempDir())
			if err := Build(context.Background(), tt.opts); !errors.Is(err, tt.want) {
				t.Fatalf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildSeveral(t *testing.T) {
	out := t.TempDir()
	opts := Options{
		Inputs:      []string{"testdata/scenario.yaml", "testdata/unknown_resource.yaml"},
		Jobs:        2,
		Environment: testEnv(out),
	}
	if err := Build(context.Background(), opts); !errors.Is(err, analyzer.ErrUnknownResource) {
		t.Fatalf("Build() error = %v, want %v", err, analyzer.ErrUnknownResource)
	}

	opts.Inputs = opts.Inputs[:1]
	if err := Build(context.Background(), opts); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "scenario_gen.go")); err != nil {
		t.Fatal(err)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{
		Inputs:      []string{"testdata/scenario.yaml"},
		Environment: testEnv(t.TempDir()),
	}
	if err := Build(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want %v", err, context.Canceled)
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("CEILINGTARGET", "samd21")
	env := Environment()
	if got := env.Value("CEILINGTARGET"); got != "samd21" {
		t.Fatalf("Value(CEILINGTARGET) = %q, want samd21", got)
	}
	if got := env.Value("CEILINGRUNTIME"); got != codegen.DefaultRuntime {
		t.Fatalf("Value(CEILINGRUNTIME) = %q, want %q", got, codegen.DefaultRuntime)
	}
	list := env.List()
	if len(list) != 4 || list[0] != "CEILINGOUT="+env["CEILINGOUT"] {
		t.Fatalf("List() = %v, want sorted entries", list)
	}
}
