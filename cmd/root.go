package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingua/internal/app"
	"github.com/abhisek/lingua/internal/config"
	"github.com/abhisek/lingua/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "lingua",
	Short:         "Progression engine for language learning",
	Long:          "Lingua tracks XP, streaks, missions, weekly goals and badges, and runs timed mock exams.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LINGUA_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./lingua.yaml or $XDG_CONFIG_HOME/lingua/lingua.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(examCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration, letting --db override the sqlite path.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB.Driver = "sqlite"
		cfg.DB.DSN = p
	}
	return cfg, nil
}

// openApp wires the services for a one-shot command. Logging defaults to
// warnings so command output stays readable.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if level == "" {
		level = "warn"
	}
	log, err := logger.New(cfg.Log.Mode, level)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, log, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return a, nil
}

func requireUser(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}
