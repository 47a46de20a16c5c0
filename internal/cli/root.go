package cli

import (
	"github.com/BartekS5/rawimport/internal/config"
	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "rawimport",
		Short: "rawimport - incremental importer for raw sensor records",
		Long: `rawimport moves time-stamped sensor and behavioral records (call logs, SMS,
bluetooth, location, wifi, accelerometer) from a source store into a normalized
target store, encoding categorical fields and resuming from the last imported id.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if logLevel != "" {
				settings.LogLevel = logLevel
			}
			return logger.InitLogger(logger.Config{
				Level:    settings.LogLevel,
				Encoding: settings.LogFormat,
			})
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides RAWIMPORT_LOG_LEVEL)")

	rootCmd.AddCommand(NewImportCmd(), newIndexCmd(), newCheckpointCmd())

	return rootCmd
}
