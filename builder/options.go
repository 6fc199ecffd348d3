package builder

type Options struct {
	// Inputs are declaration files.
	Inputs []string

	// Output is a .go file when there is a single input, or a directory
	// receiving one <input>_gen.go file per input.
	Output string

	// Package is the package clause of the generated files.
	Package string

	// Target overrides the device named by each declaration.
	Target string

	// Runtime is the import path prefix of the runtime packages.
	Runtime string

	// Jobs bounds the number of declarations processed concurrently.
	Jobs int

	Environment Env
}
