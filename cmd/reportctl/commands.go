package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cli/browser"
	"github.com/myrjola/coachreports/internal/chartrender"
	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/spf13/cobra"
)

func (o *options) newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Show what every chart area of the report would display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			state, err := s.load(cmd.Context(), o)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(report.RegionIDs()))
			for _, id := range report.RegionIDs() {
				region, _ := state.Region(id)
				rows = append(rows, []string{id, region.Title(), region.Decision.String(),
					strconv.Itoa(len(region.Entries) + len(region.Points))})
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("REGION", "TITLE", "SHOWS", "ITEMS").
				Rows(rows...)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err //nolint:wrapcheck // stdout.
		},
	}
}

// regionArgs returns the requested region ids, or every region with something to draw when none were given.
func regionArgs(state report.State, args []string) []string {
	if len(args) > 0 {
		return args
	}
	var ids []string
	for _, id := range report.RegionIDs() {
		if region, _ := state.Region(id); region.HasData() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (o *options) newExportCmd() *cobra.Command {
	var open bool
	cmd := &cobra.Command{
		Use:   "export [region...]",
		Short: "Save chart areas as PNG files",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			state, err := s.load(cmd.Context(), o)
			if err != nil {
				return err
			}
			exporter := report.NewExporter(report.ExporterConfig{
				Regions:  s.controller,
				Renderer: chartrender.PNG{},
				Sink:     report.DirSink{Dir: o.out},
				Notifier: s.notifier,
				Logger:   s.logger,
			})
			failed := 0
			for _, id := range regionArgs(state, args) {
				filename, ok := exporter.ExportRegion(cmd.Context(), id, s.exportHint(o, id))
				if !ok {
					failed++
					continue
				}
				path := filepath.Join(o.out, filename)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
				if open {
					if err = browser.OpenFile(path); err != nil {
						return fmt.Errorf("open %s: %w", path, err)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d charts could not be exported", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "open the exported files")
	return cmd
}

func (o *options) newShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share region...",
		Short: "Upload chart areas and print their public URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err = s.load(cmd.Context(), o); err != nil {
				return err
			}
			exporter := report.NewExporter(report.ExporterConfig{
				Regions:  s.controller,
				Renderer: chartrender.PNG{},
				Uploader: s.client,
				Notifier: s.notifier,
				Logger:   s.logger,
			})
			for _, id := range args {
				url, ok := exporter.ShareRegion(cmd.Context(), id)
				if !ok {
					return errors.New("could not share chart", slog.String("region", id))
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, url)
			}
			return nil
		},
	}
}

func (o *options) newSendCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Mail the report to one client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			dates, err := o.dates()
			if err != nil {
				return err
			}
			mailer := report.NewMailer(report.MailerConfig{
				Transport: s.client,
				Notifier:  s.notifier,
				Logger:    s.logger,
			})
			return mailer.SendToOne(cmd.Context(), email, s.controller.Selection(), dates) //nolint:wrapcheck // already reported.
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "recipient address")
	return cmd
}

func (o *options) newSendAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-all",
		Short: "Mail every client opted in to reports their own report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			dates, err := o.dates()
			if err != nil {
				return err
			}
			mailer := report.NewMailer(report.MailerConfig{
				Transport: s.client,
				Notifier:  s.notifier,
				Logger:    s.logger,
			})
			return mailer.SendToAll(cmd.Context(), s.controller.Selection(), dates) //nolint:wrapcheck // already reported.
		},
	}
}

func (o *options) newSelectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selection id",
		Short: "Show the charts of a mailed report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			sel, err := s.client.ChartSelection(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch selection: %w", err)
			}
			for _, c := range report.AllCharts {
				mark := " "
				if sel.Enabled(c) {
					mark = "x"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", mark, c.Label())
			}
			return nil
		},
	}
}
