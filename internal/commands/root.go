package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/taskd/internal/app"
	"github.com/nhle/taskd/internal/logging"
	"github.com/nhle/taskd/internal/model"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskd",
	Short: "Task reminder and notification service",
	Long: `taskd emails task owners before their deadlines and notifies them
whenever one of their tasks changes status, by email and over a live
websocket session.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "taskd %s (commit %s, built %s)\n", version, commit, date)
	},
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the file named by --config and builds the logger.
func loadConfig() (*model.AppConfig, zerolog.Logger, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Log), nil
}

// withApp loads config, builds the application and closes it after fn.
func withApp(fn func(cmd *cobra.Command, a *app.App) error, opts ...app.Option) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cfg, log, opts...)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(cmd, a)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(versionCmd)
}
