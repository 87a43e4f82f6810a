// Command reportctl fetches, exports and mails training reports from a coachreports server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/myrjola/coachreports/internal/logging"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8081"

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	server     string
	token      string
	out        string
	logLevel   string

	client int
	from   string
	to     string
	charts []string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	rootCmd := &cobra.Command{
		Use:          "reportctl",
		Short:        "Fetch, export and mail training reports",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.applyConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", defaultConfigPath(), "path of the TOML config file")
	flags.StringVar(&o.server, "server", defaultServer, "base URL of the coachreports server")
	flags.StringVar(&o.token, "token", "", "API token")
	flags.StringVar(&o.out, "out", ".", "directory exported charts are written to")
	flags.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.IntVar(&o.client, "client", 0, "id of the client to report on, as a trainer (default: yourself)")
	flags.StringVar(&o.from, "from", "", "first day of the period, YYYY-MM-DD")
	flags.StringVar(&o.to, "to", "", "last day of the period, YYYY-MM-DD")
	flags.StringSliceVar(&o.charts, "charts", nil,
		"charts to include in mails: typeChart, exerciseChart, strengthChart, cardioChart, crossfitChart (default: all)")

	rootCmd.AddCommand(o.newFetchCmd())
	rootCmd.AddCommand(o.newExportCmd())
	rootCmd.AddCommand(o.newShareCmd())
	rootCmd.AddCommand(o.newSendCmd())
	rootCmd.AddCommand(o.newSendAllCmd())
	rootCmd.AddCommand(o.newSelectionCmd())

	return rootCmd
}

// applyConfig fills the flags the user did not set from the config file.
func (o *options) applyConfig(cmd *cobra.Command) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	apply := func(name string, target, value *string) {
		if value != nil && !cmd.Flags().Changed(name) {
			*target = *value
		}
	}
	apply("server", &o.server, cfg.Server)
	apply("token", &o.token, cfg.Token)
	apply("out", &o.out, cfg.Out)
	apply("log-level", &o.logLevel, cfg.LogLevel)
	return nil
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewLogger(cmd.ErrOrStderr(), logging.SinkConfig{Level: o.logLevel})
}

func (o *options) dates() (report.DateRange, error) {
	dates, err := report.ParseDateRange(o.from, o.to)
	if err != nil {
		return report.DateRange{}, fmt.Errorf("parse --from and --to: %w", err)
	}
	return dates, nil
}

func (o *options) selection() (report.Selection, error) {
	if len(o.charts) == 0 {
		return report.SelectAllCharts(), nil
	}
	sel, err := report.SelectionFromKeys(o.charts)
	if err != nil {
		return report.Selection{}, fmt.Errorf("parse --charts: %w", err)
	}
	return sel, nil
}
