package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsg-ethz/chameleon/pkg/controller"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Decompose a scenario and drive it to completion against the in-process simulator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadAndCompile(args[0])
		if err != nil {
			return err
		}
		renderDecomposition(c)

		ctrl := controller.New(c.decomp)
		fmt.Println()
		for {
			progress, err := ctrl.Step(c.before)
			if err != nil {
				return fmt.Errorf("simulation stuck in stage %s: %w", ctrl.Stage(), err)
			}
			if app.watchMode {
				fmt.Printf("%s: %s\n", bold(ctrl.Stage().String()), progress)
			}
			if progress == controller.Complete {
				break
			}
		}

		ok, violation := c.scn.CheckReachability(c.before)
		if ok {
			fmt.Println(green("reachability check: OK"))
		} else {
			fmt.Println(red(fmt.Sprintf("reachability check: FAILED (%v)", violation)))
		}
		return nil
	},
}
