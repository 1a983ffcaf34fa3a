package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"railbook/internal/booking"
	"railbook/internal/config"
	appLog "railbook/internal/log"
)

const version = "0.3.0"

var (
	configPath string
	envFile    string

	// cfg is loaded once by the root PersistentPreRunE.
	cfg *config.Config
	// flags carries command-line overrides bound to config keys.
	flags = config.NewViper()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "railbook",
		Short:         "IRCTC booking-date calculator",
		Long:          "Works out when IRCTC booking opens for a travel date, serves the booking page and exports reminders.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			appLog.Sync()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "config.yaml", "Config file path")
	pf.StringVar(&envFile, "env-file", ".env", "Optional dotenv file with RAILBOOK_* overrides")
	pf.String("log-level", "", "Log level: debug, info or error")
	pf.String("log-file", "", "Write rotating JSON logs to this file")
	pf.String("tatkal-rule", "", "Tatkal rule: next-day or same-day")
	_ = flags.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = flags.BindPFlag("log.file", pf.Lookup("log-file"))
	_ = flags.BindPFlag("tatkal_rule", pf.Lookup("tatkal-rule"))

	rootCmd.AddCommand(
		serveCmd(),
		whenCmd(),
		calendarCmd(),
		countdownCmd(),
		reminderCmd(),
		snapshotCmd(),
		chartCmd(),
		themeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads .env, the YAML config and RAILBOOK_* / flag overrides, then
// configures logging.
func setup() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c, err := config.Load(configPath)
	if err != nil {
		if c == nil {
			return fmt.Errorf("load config: %w", err)
		}
		// Defaults are still usable when the first-run write fails.
		appLog.Error("failed to write default config", err, "config_path", configPath)
	}
	c.Overlay(flags)
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	appLog.UseFile(cfg.Log.File)
	appLog.SetLevel(appLog.ParseLevel(cfg.Log.Level))
	if cfg.TatkalRule != string(booking.TatkalNextDay) {
		appLog.Info("non-default tatkal rule in effect", "tatkal_rule", cfg.TatkalRule)
	}
	appLog.Debug("effective config",
		"config_path", configPath,
		"listen", cfg.Listen,
		"advance_days", cfg.AdvanceDays,
		"tatkal_rule", cfg.TatkalRule,
		"overview_mode", cfg.Overview.Mode,
		"preference_backend", cfg.Preference.Backend,
	)
	return nil
}

// bindFlag maps a command flag onto a config key so Overlay picks it up.
func bindFlag(cmd *cobra.Command, key, flag string) {
	_ = flags.BindPFlag(key, cmd.Flags().Lookup(flag))
}
