package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"omibyte.io/ceiling/builder"
)

var (
	checkOpts = struct {
		target string
	}{}

	checkCmd = &cobra.Command{
		Use:   "check <declaration.yaml>...",
		Short: "Validate declarations",
		Long:  "Validate declarations against their target and report every error found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed []error
			for _, input := range args {
				a, err := builder.Analyze(cmd.Context(), input, builder.Options{Target: checkOpts.target})
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), describe(err))
					failed = append(failed, err)
					continue
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d tasks, %d resources, %d dispatch levels on %s)\n",
					input, len(a.Tasks), len(a.Resources), len(a.Levels), a.Target.Series)
				for _, cycle := range a.SpawnCycles {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: note: spawn cycle %s\n", input, strings.Join(cycle, " -> "))
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d declarations failed", len(failed), len(args))
			}
			return nil
		},
	}
)

func init() {
	checkCmd.Flags().StringVarP(&checkOpts.target, "target", "t", "", "target series or chip (default: the declared device)")
}

// describe prefixes an error with the pipeline stage that produced it.
func describe(err error) string {
	switch {
	case errors.Is(err, builder.ErrParserError):
		return fmt.Sprint("Parse error: ", err)
	case errors.Is(err, builder.ErrUnknownTarget):
		return fmt.Sprint("Target error: ", err)
	case errors.Is(err, builder.ErrAnalysis):
		return fmt.Sprint("Analysis error: ", err)
	default:
		return fmt.Sprint("Error: ", err)
	}
}
