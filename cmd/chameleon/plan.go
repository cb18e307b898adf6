package main

import (
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <scenario.yaml>",
	Short: "Compile a scenario's diff into atomic-before/main/atomic-after rounds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadAndCompile(args[0])
		if err != nil {
			return err
		}
		renderDecomposition(c)
		return nil
	},
}
