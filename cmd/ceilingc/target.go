package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"omibyte.io/ceiling/targets"
)

var targetCmd = &cobra.Command{
	Use:   "target <device.svd>",
	Short: "Derive a target profile from an SVD file",
	Long:  "Read the interrupt lines and priority bits of a device from its CMSIS SVD file and print them as a targets.yaml entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		target, err := targets.FromSVD(f)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode([]targets.TargetInfo{target}); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(targetCmd)
}
