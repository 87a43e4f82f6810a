package training

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/sqlite"
)

// repository contains the repositories of the training domain.
type repository struct {
	records    recordRepository
	users      userRepository
	selections selectionRepository
	images     imageRepository
}

// recordRepository aggregates training history into report records.
type recordRepository interface {
	TypeCounts(ctx context.Context, userID int, dates report.DateRange) ([]report.Count, error)
	ExerciseCounts(ctx context.Context, userID int, dates report.DateRange) ([]report.Count, error)
	StrengthPoints(ctx context.Context, userID int, dates report.DateRange) ([]report.Point, error)
	CardioPoints(ctx context.Context, userID int, dates report.DateRange) ([]report.Point, error)
	CrossfitPoints(ctx context.Context, userID int, dates report.DateRange) ([]report.Point, error)
}

// userRepository reads accounts.
type userRepository interface {
	Get(ctx context.Context, id int) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (User, error)
	ListClients(ctx context.Context) ([]User, error)
	ListReportRecipients(ctx context.Context) ([]User, error)
}

// selectionRepository persists chart selections and the mails sent for them.
type selectionRepository interface {
	Create(ctx context.Context, sel ChartSelection) error
	Get(ctx context.Context, id string) (ChartSelection, error)
	RecordSent(ctx context.Context, sent SentReport) error
	ListSent(ctx context.Context, selectionID string) ([]SentReport, error)
}

// imageRepository stores exported chart images.
type imageRepository interface {
	Create(ctx context.Context, img ChartImage) error
	Get(ctx context.Context, id string) (ChartImage, error)
}

// repositoryFactory creates repository instances.
type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) *repositoryFactory {
	return &repositoryFactory{db: db, logger: logger}
}

func (f *repositoryFactory) newRepository() *repository {
	return &repository{
		records:    newSQLiteRecordRepository(f.db),
		users:      newSQLiteUserRepository(f.db),
		selections: newSQLiteSelectionRepository(f.db, f.logger),
		images:     newSQLiteImageRepository(f.db),
	}
}

// dateWindow binds the optional inclusive bounds of dates as :from and :to.
func dateWindow(dates report.DateRange) []any {
	from, to := dates.Bounds()
	return []any{sql.Named("from", from), sql.Named("to", to)}
}
