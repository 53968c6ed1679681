// Package root contains the root command for the application
package root

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/salmenktata/quelyosSuite-sub025/internal/common"
	"github.com/salmenktata/quelyosSuite-sub025/internal/config"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input  string
	Output string
	Format string
}

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cfg is the loaded application configuration, populated before any
	// subcommand runs.
	Cfg *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "quelyos-finance",
		Short: "Bank statement import and cash-flow forecasting engine.",
		Long: `quelyos-finance ingests bank statements (CSV, OFX, CAMT.053, MT940),
reconciles them against the ledger and serves cash-flow forecasts with
confidence bands, scenarios and risk indicators.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to quelyos-finance!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv(logrus.StandardLogger())

			cfg, err := config.InitializeConfig()
			if err != nil {
				Log.WithError(err).Fatal("Invalid configuration")
			}
			Cfg = cfg

			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			common.SetLogger(Log)

			if delim := os.Getenv("CSV_DELIMITER"); delim != "" {
				Log.Debug("Setting CSV delimiter from environment",
					logging.F(logging.FieldDelimiter, delim))
				common.SetDelimiter([]rune(delim)[0])
			}
		},
	}

	// Common flags accessible to all commands
	SharedFlags = CommonFlags{}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Format, "format", "f", "", "Statement format (csv, ofx, camt053, mt940)")
}
