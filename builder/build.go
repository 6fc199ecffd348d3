// Package builder runs the offline pipeline: a declaration file is loaded,
// checked against its target, analyzed, and turned into Go source.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"omibyte.io/ceiling/analyzer"
	"omibyte.io/ceiling/codegen"
	"omibyte.io/ceiling/decl"
	"omibyte.io/ceiling/targets"
)

// Build generates one Go file per input declaration. Inputs are processed
// concurrently, at most opts.Jobs at a time.
func Build(ctx context.Context, opts Options) error {
	if len(opts.Inputs) == 0 {
		return ErrNoInput
	}
	opts = withDefaults(opts)

	// Output must be a directory if multiple inputs were specified
	if strings.HasSuffix(opts.Output, ".go") && len(opts.Inputs) > 1 {
		return ErrUnexpectedOutputPath
	}
	if info, err := os.Stat(opts.Output); err == nil && !info.IsDir() && len(opts.Inputs) > 1 {
		return ErrUnexpectedOutputPath
	}

	outputs := map[string]string{}
	for _, input := range opts.Inputs {
		output := outputPath(opts.Output, input)
		if prev, ok := outputs[output]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", ErrUnexpectedOutputPath, prev, input, output)
		}
		outputs[output] = input
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for _, input := range opts.Inputs {
		input := input
		g.Go(func() error {
			return build(ctx, input, outputPath(opts.Output, input), opts)
		})
	}
	return g.Wait()
}

// Analyze loads a declaration and runs the analysis without generating
// anything.
func Analyze(ctx context.Context, input string, opts Options) (*analyzer.Analysis, error) {
	opts = withDefaults(opts)

	d, err := decl.Load(input)
	if err != nil {
		return nil, errors.Join(ErrParserError, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := resolveTarget(d, opts)
	if err != nil {
		return nil, err
	}

	a, err := analyzer.Analyze(d, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAnalysis, input, err)
	}
	return a, nil
}

func build(ctx context.Context, input, output string, opts Options) error {
	a, err := Analyze(ctx, input, opts)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := codegen.Generate(a, codegen.Options{
		Package:  opts.Package,
		Runtime:  opts.Runtime,
		Filename: filepath.Base(output),
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return writeOutput(output, src)
}

func withDefaults(opts Options) Options {
	if opts.Environment == nil {
		opts.Environment = Environment()
	}
	if opts.Output == "" {
		opts.Output = opts.Environment.Value("CEILINGOUT")
	}
	if opts.Target == "" {
		opts.Target = opts.Environment.Value("CEILINGTARGET")
	}
	if opts.Package == "" {
		opts.Package = opts.Environment.Value("CEILINGPACKAGE")
	}
	if opts.Runtime == "" {
		opts.Runtime = opts.Environment.Value("CEILINGRUNTIME")
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	return opts
}

func resolveTarget(d *decl.Declaration, opts Options) (targets.TargetInfo, error) {
	name := opts.Target
	if name == "" {
		name = d.Device
	}
	if name == "" {
		return targets.TargetInfo{}, fmt.Errorf("%w: no device declared", ErrUnknownTarget)
	}
	target, err := targets.All().Find(name)
	if err != nil {
		return targets.TargetInfo{}, errors.Join(ErrUnknownTarget, err)
	}
	return target, nil
}

// outputPath places the generated file for input. A .go output is used as
// is; anything else is treated as a directory.
func outputPath(output, input string) string {
	if strings.HasSuffix(output, ".go") {
		return output
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(output, base+"_gen.go")
}

func writeOutput(fname string, src []byte) error {
	// The path to the output must exist. Create it if it doesn't
	dir := filepath.Dir(fname)
	if stat, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else if !stat.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnexpectedOutputPath, dir)
	}

	return os.WriteFile(fname, src, 0644)
}
