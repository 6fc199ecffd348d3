package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"omibyte.io/ceiling/analyzer"
	"omibyte.io/ceiling/builder"
)

var (
	ceilingsOpts = struct {
		target string
	}{}

	ceilingsCmd = &cobra.Command{
		Use:   "ceilings <declaration.yaml>",
		Short: "Print the ceiling table",
		Long:  "Print the ceiling of every resource and the dispatch levels of a declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := builder.Analyze(cmd.Context(), args[0], builder.Options{Target: ceilingsOpts.target})
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			printCeilings(cmd, a)
			return nil
		},
	}
)

func init() {
	ceilingsCmd.Flags().StringVarP(&ceilingsOpts.target, "target", "t", "", "target series or chip (default: the declared device)")
}

func names(tasks []*analyzer.Task) string {
	var result []string
	for _, task := range tasks {
		result = append(result, task.Name)
	}
	if len(result) == 0 {
		return "-"
	}
	return strings.Join(result, ",")
}

func printCeilings(cmd *cobra.Command, a *analyzer.Analysis) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tTYPE\tCEILING\tLOCKED\tACCESSORS")
	for _, resource := range a.Resources {
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", resource.Name, resource.Type, resource.Ceiling, resource.Contended, names(resource.Accessors))
	}
	w.Flush()

	if len(a.Levels) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout())
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tDISPATCHER\tCAPACITY\tCEILING\tTASKS")
	for _, level := range a.Levels {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", level.Priority, level.Dispatcher.Name, level.Capacity, level.Ceiling, names(level.Tasks))
	}
	w.Flush()
}
