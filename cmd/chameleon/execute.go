package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsg-ethz/chameleon/pkg/audit"
	"github.com/nsg-ethz/chameleon/pkg/controller"
	"github.com/nsg-ethz/chameleon/pkg/device"
	"github.com/nsg-ethz/chameleon/pkg/liveadapter"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

var executeCmd = &cobra.Command{
	Use:   "execute <scenario.yaml>",
	Short: "Decompose a scenario and drive it to completion, recording an audit trail",
	Long: `Execute compiles a scenario's diff and steps the controller to
completion against the in-process network that backs every command's
precondition/postcondition gate.

Without -x (and without --live), execute only renders the compiled plan
and prints a dry-run notice; no step is run. Pass -x to step the
controller and leave an audit trail. Pass --live <addr> (which also
steps the controller) to additionally mirror each router's selected route into
a redis-backed liveadapter.Store as it changes, and to record a
DispatchRecord per fired command there.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadAndCompile(args[0])
		if err != nil {
			return err
		}
		renderDecomposition(c)

		if !app.executeMode && app.liveAddr == "" {
			printDryRunNotice()
			return nil
		}

		ctx := context.Background()
		var store *liveadapter.Store[int]
		if app.liveAddr != "" {
			store, err = liveadapter.Dial[int](ctx, app.liveAddr, prefix.FlatOps)
			if err != nil {
				return fmt.Errorf("connecting to live store: %w", err)
			}
			defer store.Close()
		}

		ctrl := controller.New(c.decomp)
		round := 0
		fmt.Println()
		for {
			stage := ctrl.Stage()
			start := time.Now()
			progress, stepErr := ctrl.Step(c.before)
			elapsed := time.Since(start)

			ev := audit.NewEvent("cli", c.scn.Name, stage.String()).
				WithRound(round).
				WithExecuteMode(app.executeMode).
				WithDuration(elapsed)
			if stepErr != nil {
				ev = ev.WithError(stepErr)
			} else {
				ev = ev.WithSuccess()
			}
			audit.Log(ev)

			if stepErr != nil {
				return fmt.Errorf("execution stuck in stage %s: %w", stage, stepErr)
			}
			if app.watchMode {
				fmt.Printf("%s: %s\n", bold(stage.String()), progress)
			}
			if store != nil && progress == controller.Changed {
				if err := mirrorRibs(ctx, store, c); err != nil {
					util.WithField("error", err).Warn("execute: failed to mirror rib state to live store")
				}
				rec := liveadapter.DispatchRecord{
					ID: fmt.Sprintf("%s-%d", c.scn.Name, round), Stage: stage.String(), Status: progress.String(), Timestamp: time.Now(),
				}
				if err := store.RecordDispatch(ctx, rec); err != nil {
					util.WithField("error", err).Warn("execute: failed to record dispatch")
				}
			}
			round++
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

// mirrorRibs pushes every internal router's currently selected route for
// every prefix the scenario advertises, as a router agent would when its
// converged RIB entry changes.
func mirrorRibs(ctx context.Context, store *liveadapter.Store[int], c *compiled) error {
	for _, r := range c.scn.Routers {
		if r.Kind != "internal" {
			continue
		}
		router := c.before.Routers[r.ID]
		if router == nil || router.Kind != device.Internal {
			continue
		}
		for _, adv := range c.scn.ExternalRoutes {
			entry, ok := router.Rib.Get(adv.Prefix)
			if !ok {
				if err := store.DeleteRib(ctx, r.ID, adv.Prefix); err != nil {
					return err
				}
				continue
			}
			if err := store.PutRib(ctx, r.ID, adv.Prefix, entry.Route, entry.FromPeer); err != nil {
				return err
			}
		}
	}
	return nil
}
