package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/reportclient"
	"github.com/spf13/cobra"
)

var errMissingToken = errors.NewSentinel("missing API token")

// printNotifier prints notifications, errors to stderr, and remembers whether any error was reported.
type printNotifier struct {
	out    io.Writer
	errOut io.Writer

	mu     sync.Mutex
	failed bool
}

func (n *printNotifier) Notify(_ context.Context, notification report.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if notification.Type == report.NotificationError {
		n.failed = true
		_, _ = fmt.Fprintln(n.errOut, "error:", notification.Message)
		return
	}
	_, _ = fmt.Fprintln(n.out, notification.Message)
}

func (n *printNotifier) Failed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failed
}

// session is one report screen driven from the command line.
type session struct {
	client     *reportclient.Client
	controller *report.Controller
	notifier   *printNotifier
	logger     *slog.Logger
	ready      chan report.State
	trainer    bool
}

func (o *options) openSession(cmd *cobra.Command) (*session, error) {
	if o.token == "" {
		return nil, errors.Wrap(errMissingToken, "open session",
			slog.String("hint", "pass --token or set token in "+o.configPath))
	}
	logger := o.logger(cmd)
	client, err := reportclient.New(o.server, o.token, logger)
	if err != nil {
		return nil, fmt.Errorf("new report client: %w", err)
	}
	s := &session{
		client:   client,
		notifier: &printNotifier{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()},
		logger:   logger,
		ready:    make(chan report.State, 1),
		trainer:  o.client > 0,
	}
	s.controller = report.NewController(report.ControllerConfig{
		Fetcher:  client,
		Notifier: s.notifier,
		Logger:   logger,
		Trainer:  s.trainer,
		// Clients look at their whole history when no period is given.
		FetchOpenRange: !s.trainer,
		OnChange: func(state report.State) {
			if !state.HasUser || state.Loading {
				return
			}
			select {
			case s.ready <- state:
			default:
			}
		},
	})
	sel, err := o.selection()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.controller.SetSelection(sel)
	return s, nil
}

// load targets the client and period of the flags and waits until their data is in.
func (s *session) load(ctx context.Context, o *options) (report.State, error) {
	dates, err := o.dates()
	if err != nil {
		return report.State{}, err
	}
	// Without a full period a trainer view only has sample charts, which must never pass for the client's data.
	if s.trainer && !dates.Complete() {
		s.notifier.Notify(ctx, report.Notification{
			Type:    report.NotificationError,
			Message: report.ValidationMessage(report.ErrMissingDateRange),
		})
		return report.State{}, errors.Wrap(report.ErrMissingDateRange, "load report",
			slog.Int("client", o.client))
	}
	// User id 0 asks the server for the signed in user.
	s.controller.SetTarget(o.client, dates)
	select {
	case state := <-s.ready:
		if s.notifier.Failed() {
			return state, errors.New("could not load the report data")
		}
		return state, nil
	case <-ctx.Done():
		return report.State{}, fmt.Errorf("wait for report data: %w", ctx.Err())
	}
}

// exportHint names exported files after the client and the chart area they show, so that areas exported within
// the same millisecond don't overwrite each other.
func (s *session) exportHint(o *options, regionID string) string {
	area := strings.TrimSuffix(regionID, "-chart")
	if !s.trainer {
		return "report-" + area
	}
	return fmt.Sprintf("client-%d-%s", o.client, area)
}

func (s *session) Close() {
	s.controller.Close()
}
