package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "estate-crm",
	Short: "Real-estate lead CRM",
	Long: `estate-crm keeps the lead book for a real-estate sales team.

Admins import lead spreadsheets (CSV or XLSX) into sheets; staff work the
leads by changing lead stage, lead type, deal status, location and visit
date, and by logging calling comments. Every edit lands in the activity log.
"serve" exposes the same operations over HTTP with a live-merged client grid
on a WebSocket.

Configuration comes from ./config.yaml and ESTATE_* environment variables;
--driver, --database-url and --log-level override both.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyOverrides(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("command", cmd.CommandPath()),
			zap.String("driver", cfg.Store.Driver),
		)
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("driver", "", "store driver (sqlite, postgres)")
	pf.String("database-url", "", "sqlite file path or postgres connection string")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
}

// applyOverrides copies explicitly set persistent flags onto c.
func applyOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("driver") {
		c.Store.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("database-url") {
		c.Store.DatabaseURL, _ = flags.GetString("database-url")
	}
	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
