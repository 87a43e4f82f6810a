package training

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/sqlite"
)

// entriesInWindow selects the exercise entries of :user inside the optional :from and :to dates.
const entriesInWindow = `
	FROM training_exercises te
	JOIN trainings t ON t.id = te.training_id
	JOIN exercises e ON e.id = te.exercise_id
	WHERE t.user_id = :user
	  AND (:from = '' OR t.date >= :from)
	  AND (:to = '' OR t.date <= :to)`

// sqliteRecordRepository implements recordRepository.
type sqliteRecordRepository struct {
	db *sqlite.Database
}

func newSQLiteRecordRepository(db *sqlite.Database) *sqliteRecordRepository {
	return &sqliteRecordRepository{db: db}
}

func (r *sqliteRecordRepository) args(userID int, dates report.DateRange) []any {
	return append(dateWindow(dates), sql.Named("user", userID))
}

// TypeCounts counts the logged entries per exercise kind.
func (r *sqliteRecordRepository) TypeCounts(
	ctx context.Context, userID int, dates report.DateRange,
) ([]report.Count, error) {
	return r.counts(ctx, `
		SELECT UPPER(SUBSTR(e.kind, 1, 1)) || SUBSTR(e.kind, 2), COUNT(*) AS n`+entriesInWindow+`
		GROUP BY e.kind
		ORDER BY n DESC, e.kind`, userID, dates)
}

// ExerciseCounts counts the logged entries per exercise.
func (r *sqliteRecordRepository) ExerciseCounts(
	ctx context.Context, userID int, dates report.DateRange,
) ([]report.Count, error) {
	return r.counts(ctx, `
		SELECT e.name, COUNT(*) AS n`+entriesInWindow+`
		GROUP BY e.name
		ORDER BY n DESC, e.name`, userID, dates)
}

func (r *sqliteRecordRepository) counts(
	ctx context.Context, query string, userID int, dates report.DateRange,
) (_ []report.Count, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, r.args(userID, dates)...)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer func() { err = closeRows(rows, err) }()
	var counts []report.Count
	for rows.Next() {
		var c report.Count
		if err = rows.Scan(&c.ID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// StrengthPoints returns the heaviest weight per exercise and day.
func (r *sqliteRecordRepository) StrengthPoints(
	ctx context.Context, userID int, dates report.DateRange,
) (_ []report.Point, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT t.date, e.name, COALESCE(MAX(te.weight_kg), 0)`+entriesInWindow+`
		  AND e.kind = 'strength'
		GROUP BY t.date, e.name
		ORDER BY t.date, e.name`, r.args(userID, dates)...)
	if err != nil {
		return nil, fmt.Errorf("query strength: %w", err)
	}
	defer func() { err = closeRows(rows, err) }()
	var b pointBuilder
	for rows.Next() {
		var (
			date, name string
			weight     float64
		)
		if err = rows.Scan(&date, &name, &weight); err != nil {
			return nil, fmt.Errorf("scan strength: %w", err)
		}
		b.set(date, name, weight)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strength: %w", err)
	}
	return b.points(), nil
}

// CardioPoints returns the sets per exercise and day together with the day's energy and distance totals.
func (r *sqliteRecordRepository) CardioPoints(
	ctx context.Context, userID int, dates report.DateRange,
) (_ []report.Point, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT t.date, e.name, SUM(te.sets), SUM(te.energy_kcal), SUM(te.distance_km)`+entriesInWindow+`
		  AND e.kind = 'cardio'
		GROUP BY t.date, e.name
		ORDER BY t.date, e.name`, r.args(userID, dates)...)
	if err != nil {
		return nil, fmt.Errorf("query cardio: %w", err)
	}
	defer func() { err = closeRows(rows, err) }()
	var b pointBuilder
	for rows.Next() {
		var (
			date, name       string
			sets             float64
			energy, distance sql.NullFloat64
		)
		if err = rows.Scan(&date, &name, &sets, &energy, &distance); err != nil {
			return nil, fmt.Errorf("scan cardio: %w", err)
		}
		b.set(date, name, sets)
		if energy.Valid {
			b.add(date, string(report.MetricTotalEnergy), energy.Float64)
		}
		if distance.Valid {
			b.add(date, string(report.MetricTotalDistance), distance.Float64)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cardio: %w", err)
	}
	return b.points(), nil
}

// CrossfitPoints returns the sets per exercise and day together with the day's repetition and lifted weight totals.
// Totals that sum to zero are left out.
func (r *sqliteRecordRepository) CrossfitPoints(
	ctx context.Context, userID int, dates report.DateRange,
) (_ []report.Point, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT t.date,
		       e.name,
		       SUM(te.sets),
		       SUM(te.sets * COALESCE(te.reps, 0)),
		       SUM(te.sets * COALESCE(te.reps, 0) * COALESCE(te.weight_kg, 0))`+entriesInWindow+`
		  AND e.kind = 'crossfit'
		GROUP BY t.date, e.name
		ORDER BY t.date, e.name`, r.args(userID, dates)...)
	if err != nil {
		return nil, fmt.Errorf("query crossfit: %w", err)
	}
	defer func() { err = closeRows(rows, err) }()
	var b pointBuilder
	for rows.Next() {
		var (
			date, name            string
			sets, repeats, weight float64
		)
		if err = rows.Scan(&date, &name, &sets, &repeats, &weight); err != nil {
			return nil, fmt.Errorf("scan crossfit: %w", err)
		}
		b.set(date, name, sets)
		if repeats > 0 {
			b.add(date, string(report.MetricTotalRepeats), repeats)
		}
		if weight > 0 {
			b.add(date, string(report.MetricTotalWeight), weight)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crossfit: %w", err)
	}
	return b.points(), nil
}

// pointBuilder collects values per date while rows arrive in date order.
type pointBuilder struct {
	dates  []string
	values map[string]map[string]float64
}

func (b *pointBuilder) day(date string) map[string]float64 {
	if b.values == nil {
		b.values = make(map[string]map[string]float64)
	}
	v, ok := b.values[date]
	if !ok {
		v = make(map[string]float64)
		b.values[date] = v
		b.dates = append(b.dates, date)
	}
	return v
}

// set stores an exercise value. Exercise names clashing with the reserved point keys are skipped.
func (b *pointBuilder) set(date, name string, value float64) {
	day := b.day(date)
	if report.IsReservedKey(name) {
		return
	}
	day[name] = value
}

func (b *pointBuilder) add(date, key string, value float64) {
	b.day(date)[key] += value
}

func (b *pointBuilder) points() []report.Point {
	slices.Sort(b.dates)
	points := make([]report.Point, 0, len(b.dates))
	for _, d := range b.dates {
		points = append(points, report.Point{Date: d, Values: b.values[d]})
	}
	return points
}

func closeRows(rows *sql.Rows, err error) error {
	if closeErr := rows.Close(); closeErr != nil && err == nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return err
}
