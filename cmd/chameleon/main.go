// Chameleon - BGP/OSPF Network Reconfiguration Planner
//
// A CLI tool for planning and executing disruption-free network
// reconfigurations:
//   - Decomposes a configuration diff into atomic-before/main/atomic-after
//     command rounds that never transit an unreachable or looping
//     intermediate state
//   - Dry-run by default (plan/simulate preview only; execute requires -x)
//   - Audit logging of every controller step during execute
//   - Targets either the in-process simulator or a live (redis-backed)
//     network via --live
//
// Usage:
//
//	chameleon plan <scenario.yaml>              # show the compiled rounds
//	chameleon simulate <scenario.yaml>          # decompose + run to completion, in-memory
//	chameleon execute <scenario.yaml> [-x]      # decompose + run to completion, optionally live
//	chameleon scenario run <scenario.yaml>      # full pass/fail check against the fixture's expectations
//	chameleon settings show                     # no scenario needed
//	chameleon version                           # no scenario needed
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nsg-ethz/chameleon/pkg/audit"
	"github.com/nsg-ethz/chameleon/pkg/cli"
	"github.com/nsg-ethz/chameleon/pkg/settings"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// App holds CLI state shared across all commands.
type App struct {
	// Option flags
	executeMode bool
	watchMode   bool
	liveAddr    string
	verbose     bool
	timeoutSec  int
	tempCap     int

	// Initialized state (set in PersistentPreRunE)
	settings *settings.Settings
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "chameleon",
	Short:             "BGP/OSPF network reconfiguration planner",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Chameleon plans and executes BGP/OSPF reconfigurations without
transiently breaking reachability.

Given a scenario (topology, initial advertisements and a configuration
diff), it decomposes the diff into atomic-before, main and atomic-after
command rounds and drives them to completion against either the
in-process simulator or a live network.

  chameleon plan <scenario.yaml>
  chameleon simulate <scenario.yaml>
  chameleon execute <scenario.yaml> -x
  chameleon scenario run <scenario.yaml>
  chameleon settings show
  chameleon version`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		app.settings, err = settings.Load()
		if err != nil {
			util.Logger.Warnf("could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}

		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		auditPath := app.settings.GetAuditLogPath("")
		auditLogger, err := audit.NewFileLogger(auditPath, audit.RotationConfig{
			MaxSize:    int64(app.settings.GetAuditMaxSizeMB()) * 1024 * 1024,
			MaxBackups: app.settings.GetAuditMaxBackups(),
		})
		if err != nil {
			util.Logger.Warnf("could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().IntVar(&app.timeoutSec, "timeout", 0, "Solver timeout in seconds (0: use settings default)")
	rootCmd.PersistentFlags().IntVar(&app.tempCap, "temp-session-cap", 0, "Max temporary iBGP sessions the scheduler may use (0: use settings default; unbounded if unset)")

	executeCmd.Flags().BoolVarP(&app.executeMode, "execute", "x", false, "Step the controller against the in-process network (default is dry-run: render the plan only)")
	executeCmd.Flags().StringVar(&app.liveAddr, "live", "", "redis address of a live network's RIB/dispatch store (implies --execute)")
	for _, cmd := range []*cobra.Command{executeCmd, simulateCmd} {
		cmd.Flags().BoolVar(&app.watchMode, "watch", false, "Print each Step as the controller progresses")
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "plan", Title: "Planning:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{planCmd, simulateCmd, executeCmd, scenarioCmd} {
		cmd.GroupID = "plan"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

// isSettingsOrHelp checks whether cmd (or any ancestor) is a settings, help,
// or version command, which run without scenario/audit-logger setup.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// Color helpers, delegating to pkg/cli.
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }

func printDryRunNotice() {
	fmt.Println("\n" + yellow("DRY-RUN: no changes applied. Use -x (and --live) to execute against a live network."))
}
