package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"omibyte.io/ceiling/builder"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print ceilingc environment information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, entry := range builder.Environment().List() {
			fmt.Fprintln(cmd.OutOrStdout(), entry)
		}
	},
}
