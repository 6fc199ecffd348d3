package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"omibyte.io/ceiling/builder"
)

var (
	genOpts = struct {
		output  string
		pkg     string
		target  string
		runtime string
		jobs    int
	}{}

	genCmd = &cobra.Command{
		Use:   "gen <declaration.yaml>...",
		Short: "Generate the application wiring",
		Long:  "Analyze declarations and write the Go source that assembles them on the runtime",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := builder.Options{
				Inputs:  args,
				Output:  genOpts.output,
				Package: genOpts.pkg,
				Target:  genOpts.target,
				Runtime: genOpts.runtime,
				Jobs:    genOpts.jobs,
			}
			if err := builder.Build(cmd.Context(), opts); err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			return nil
		},
	}
)

func init() {
	genCmd.Flags().StringVarP(&genOpts.output, "output", "o", "", "output file or directory (default: $CEILINGOUT)")
	genCmd.Flags().StringVarP(&genOpts.pkg, "package", "p", "", "package name of the generated file (default: $CEILINGPACKAGE)")
	genCmd.Flags().StringVarP(&genOpts.target, "target", "t", "", "target series or chip (default: the declared device)")
	genCmd.Flags().IntVarP(&genOpts.jobs, "jobs", "j", runtime.NumCPU(), "number of declarations processed concurrently")
	genCmd.Flags().StringVar(&genOpts.runtime, "runtime", "", "import path of the runtime packages (default: $CEILINGRUNTIME)")
}
