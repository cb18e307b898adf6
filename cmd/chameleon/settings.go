package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nsg-ethz/chameleon/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.chameleon/settings.json.

Settings:
  - scenario_dir:             stored and shown only; commands take scenario paths as given
  - default_timeout_seconds:  solver wall-clock budget when --timeout is unset
  - default_temp_session_cap: scheduler bound on temporary iBGP sessions when --temp-session-cap is unset
  - audit_log_path:           where execute records its audit trail
  - live_addr:                stored and shown only; execute reads the address from --live

Examples:
  chameleon settings show
  chameleon settings set scenario_dir ./testdata/scenarios
  chameleon settings set default_timeout_seconds 60
  chameleon settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SETTING\tVALUE")
		fmt.Fprintln(w, "-------\t-----")

		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			fmt.Fprintf(w, "%s\t%s\n", name, value)
		}

		printSetting("scenario_dir", s.ScenarioDir)
		printSetting("default_timeout_seconds", intOrUnset(s.DefaultTimeoutSeconds))
		printSetting("default_temp_session_cap", intOrUnset(s.DefaultTempSessionCap))
		printSetting("audit_log_path", s.AuditLogPath)
		printSetting("audit_max_size_mb", intOrUnset(s.AuditMaxSizeMB))
		printSetting("audit_max_backups", intOrUnset(s.AuditMaxBackups))
		printSetting("live_addr", s.LiveAddr)

		w.Flush()
		return nil
	},
}

func intOrUnset(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Long: `Set a persistent setting value.

Available settings:
  scenario_dir             - scenario fixture directory (stored only)
  default_timeout_seconds  - solver wall-clock budget in seconds
  default_temp_session_cap - max temporary iBGP sessions the scheduler may use
  audit_log_path           - audit log file path
  audit_max_size_mb        - audit log rotation threshold in MB
  audit_max_backups        - number of rotated audit log files kept
  live_addr                - redis address (stored only; execute reads --live)`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting := args[0]
		value := args[1]

		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		switch setting {
		case "scenario_dir":
			s.ScenarioDir = value
		case "default_timeout_seconds":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("default_timeout_seconds: %w", err)
			}
			s.DefaultTimeoutSeconds = n
		case "default_temp_session_cap":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("default_temp_session_cap: %w", err)
			}
			s.DefaultTempSessionCap = n
		case "audit_log_path":
			s.AuditLogPath = value
		case "audit_max_size_mb":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("audit_max_size_mb: %w", err)
			}
			s.AuditMaxSizeMB = n
		case "audit_max_backups":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("audit_max_backups: %w", err)
			}
			s.AuditMaxBackups = n
		case "live_addr":
			s.LiveAddr = value
		default:
			return fmt.Errorf("unknown setting: %s", setting)
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", setting, value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("All settings cleared.")
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(settings.DefaultSettingsPath())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}
