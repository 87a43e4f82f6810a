package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// sqliteSelectionRepository implements selectionRepository.
type sqliteSelectionRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newSQLiteSelectionRepository(db *sqlite.Database, logger *slog.Logger) *sqliteSelectionRepository {
	return &sqliteSelectionRepository{db: db, logger: logger}
}

// Create stores a selection under its id.
func (r *sqliteSelectionRepository) Create(ctx context.Context, sel ChartSelection) error {
	var createdBy any
	if sel.CreatedBy != 0 {
		createdBy = sel.CreatedBy
	}
	s := sel.Selection
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO report_chart_selections
		    (id, created_by, type_chart, exercise_chart, strength_chart, cardio_chart, crossfit_chart)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sel.ID, createdBy,
		s.Enabled(report.ChartType),
		s.Enabled(report.ChartExercise),
		s.Enabled(report.ChartStrength),
		s.Enabled(report.ChartCardio),
		s.Enabled(report.ChartCrossfit),
	)
	if err != nil {
		return fmt.Errorf("insert chart selection: %w", err)
	}
	return nil
}

// Get retrieves a selection by id.
func (r *sqliteSelectionRepository) Get(ctx context.Context, id string) (ChartSelection, error) {
	var (
		sel       = ChartSelection{ID: id}
		createdBy sql.NullInt64
		flags     [5]bool
		createdAt string
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT created_by, type_chart, exercise_chart, strength_chart, cardio_chart, crossfit_chart, created_at
		FROM report_chart_selections
		WHERE id = ?`, id).Scan(&createdBy, &flags[0], &flags[1], &flags[2], &flags[3], &flags[4], &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ChartSelection{}, ErrNotFound
	}
	if err != nil {
		return ChartSelection{}, fmt.Errorf("query chart selection: %w", err)
	}
	sel.CreatedBy = int(createdBy.Int64)
	for i, c := range report.AllCharts {
		sel.Selection = sel.Selection.With(c, flags[i])
	}
	if sel.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "unparsable selection timestamp",
			slog.String("selection", id), slog.String("created_at", createdAt))
	}
	return sel, nil
}

// RecordSent appends a delivery log entry.
func (r *sqliteSelectionRepository) RecordSent(ctx context.Context, sent SentReport) error {
	from, to := sent.Dates.Bounds()
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO sent_reports (selection_id, recipient_email, date_from, date_to, status)
		VALUES (?, ?, ?, ?, ?)`, sent.SelectionID, sent.RecipientEmail, from, to, sent.Status)
	if err != nil {
		return fmt.Errorf("insert sent report: %w", err)
	}
	return nil
}

// ListSent returns the delivery log of a selection in insertion order.
func (r *sqliteSelectionRepository) ListSent(ctx context.Context, selectionID string) (_ []SentReport, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT recipient_email, date_from, date_to, status
		FROM sent_reports
		WHERE selection_id = ?
		ORDER BY id`, selectionID)
	if err != nil {
		return nil, fmt.Errorf("query sent reports: %w", err)
	}
	defer func() { err = closeRows(rows, err) }()
	var sent []SentReport
	for rows.Next() {
		s := SentReport{SelectionID: selectionID}
		var from, to string
		if err = rows.Scan(&s.RecipientEmail, &from, &to, &s.Status); err != nil {
			return nil, fmt.Errorf("scan sent report: %w", err)
		}
		if s.Dates, err = report.ParseDateRange(from, to); err != nil {
			return nil, fmt.Errorf("parse sent report dates: %w", err)
		}
		sent = append(sent, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sent reports: %w", err)
	}
	return sent, nil
}
