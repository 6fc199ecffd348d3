package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ceilingc",
	Short: "Static priority ceiling analysis and code generation",
	Long: `ceilingc checks a static task declaration, computes the priority ceiling of
every shared resource and generates the Go wiring for the runtime scheduler.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(checkCmd, ceilingsCmd, genCmd, envCmd)
}

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
