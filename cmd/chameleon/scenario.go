package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsg-ethz/chameleon/pkg/controller"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run a scenario fixture end-to-end and check it against its declared expectations",
}

func init() {
	scenarioCmd.AddCommand(scenarioRunCmd)
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Decompose, execute against the in-process simulator, and assert plan shape and reachability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadAndCompile(args[0])
		if err != nil {
			return err
		}

		ctrl := controller.New(c.decomp)
		for {
			progress, err := ctrl.Step(c.before)
			if err != nil {
				return fmt.Errorf("%s: stuck in stage %s: %w", c.scn.Name, ctrl.Stage(), err)
			}
			if progress == controller.Complete {
				break
			}
		}

		pass := true

		gotBefore, gotMain, gotAfter := countRounds(c.decomp.AtomicBefore), len(c.decomp.MainCommands), countRounds(c.decomp.AtomicAfter)
		want := c.scn.ExpectedPlan
		if gotBefore != want.AtomicBefore || gotMain != want.Main || gotAfter != want.AtomicAfter {
			pass = false
			fmt.Printf("%s plan shape: %s (got atomic_before=%d main=%d atomic_after=%d, want atomic_before=%d main=%d atomic_after=%d)\n",
				c.scn.Name, red("MISMATCH"), gotBefore, gotMain, gotAfter, want.AtomicBefore, want.Main, want.AtomicAfter)
		} else {
			fmt.Printf("%s plan shape: %s\n", c.scn.Name, green("OK"))
		}

		reachable, violation := c.scn.CheckReachability(c.before)
		if c.scn.ExpectReachable != nil {
			want := *c.scn.ExpectReachable
			if reachable != want {
				pass = false
				fmt.Printf("%s reachability: %s (got %v, want %v, violation=%v)\n", c.scn.Name, red("MISMATCH"), reachable, want, violation)
			} else {
				fmt.Printf("%s reachability: %s\n", c.scn.Name, green("OK"))
			}
		}

		if !pass {
			return fmt.Errorf("%s: scenario expectations not met", c.scn.Name)
		}
		fmt.Println(bold(c.scn.Name + ": PASS"))
		return nil
	},
}
