// Package training holds the training history of clients and builds report data from it.
package training

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/myrjola/coachreports/internal/sqlite"
	"golang.org/x/sync/errgroup"
)

// maxImageBytes bounds uploaded chart images.
const maxImageBytes = 5 << 20

// ErrImageTooLarge is returned for uploads above the size limit.
var ErrImageTooLarge = errors.NewSentinel("image too large")

// Service handles the business logic of training reports.
type Service struct {
	repo    *repository
	logger  *slog.Logger
	observe func(time.Duration)
}

// NewService creates a training service. observe receives the duration of every report aggregation and may be nil.
func NewService(db *sqlite.Database, logger *slog.Logger, observe func(time.Duration)) *Service {
	if observe == nil {
		observe = func(time.Duration) {}
	}
	factory := newRepositoryFactory(db, logger)
	return &Service{
		repo:    factory.newRepository(),
		logger:  logger,
		observe: observe,
	}
}

// HashToken returns the stored form of an API token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves the user owning token.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrUnauthorized
	}
	u, err := s.repo.users.GetByTokenHash(ctx, HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthorized
	}
	if err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}
	return u, nil
}

// User retrieves a user by id.
func (s *Service) User(ctx context.Context, id int) (User, error) {
	u, err := s.repo.users.Get(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// Clients lists the clients viewer may select. Clients only see themselves.
func (s *Service) Clients(ctx context.Context, viewer User) ([]User, error) {
	if !viewer.IsStaff() {
		return []User{viewer}, nil
	}
	clients, err := s.repo.users.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// ClientReportData returns the report records of userID on behalf of viewer.
func (s *Service) ClientReportData(
	ctx context.Context, viewer User, userID int, dates report.DateRange,
) ([]report.RawRecord, error) {
	if !viewer.CanView(userID) {
		return nil, errors.Wrap(ErrForbidden, "client report data",
			slog.Int("viewer", viewer.ID), slog.Int("user", userID))
	}
	return s.FetchRecords(ctx, userID, dates)
}

// FetchRecords aggregates the training history of userID into report records. A record is only present when the
// user logged at least one matching entry in the window. Access control is the caller's responsibility.
func (s *Service) FetchRecords(ctx context.Context, userID int, dates report.DateRange) ([]report.RawRecord, error) {
	start := time.Now()
	records := make([]report.RawRecord, len(report.AllCharts))
	g, gctx := errgroup.WithContext(ctx)
	counts := func(i int, title string, query func(context.Context, int, report.DateRange) ([]report.Count, error)) {
		g.Go(func() error {
			c, err := query(gctx, userID, dates)
			if err != nil {
				return fmt.Errorf("%s: %w", title, err)
			}
			records[i] = report.RawRecord{Title: title, Counts: c}
			return nil
		})
	}
	points := func(i int, title string, query func(context.Context, int, report.DateRange) ([]report.Point, error)) {
		g.Go(func() error {
			p, err := query(gctx, userID, dates)
			if err != nil {
				return fmt.Errorf("%s: %w", title, err)
			}
			records[i] = report.RawRecord{Title: title, Points: p}
			return nil
		})
	}
	counts(0, report.TitleTrainingTypes, s.repo.records.TypeCounts)
	counts(1, report.TitleExercises, s.repo.records.ExerciseCounts)
	points(2, report.TitleStrength, s.repo.records.StrengthPoints)
	points(3, report.TitleCardio, s.repo.records.CardioPoints)
	points(4, report.TitleCrossfit, s.repo.records.CrossfitPoints)
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "aggregate report", slog.Int("user", userID),
			slog.String("dates", dates.String()))
	}

	present := records[:0]
	for _, r := range records {
		if r.Len() > 0 {
			present = append(present, r)
		}
	}
	duration := time.Since(start)
	s.observe(duration)
	s.logger.LogAttrs(ctx, slog.LevelDebug, "aggregated report", slog.Int("user", userID),
		slog.String("dates", dates.String()), slog.Int("records", len(present)),
		slog.Duration("duration", duration))
	return present, nil
}

// Fetcher returns a report.Fetcher reading on behalf of viewer.
func (s *Service) Fetcher(viewer User) report.Fetcher {
	return report.FetcherFunc(func(ctx context.Context, userID int, dates report.DateRange) ([]report.RawRecord, error) {
		return s.ClientReportData(ctx, viewer, userID, dates)
	})
}

// ReportRecipient resolves the client a single report mail is addressed to.
func (s *Service) ReportRecipient(ctx context.Context, email string) (User, error) {
	u, err := s.repo.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return User{}, fmt.Errorf("get recipient: %w", err)
	}
	if u.Role != RoleClient {
		return User{}, errors.Wrap(ErrNotFound, "recipient is not a client", slog.String("email", email))
	}
	return u, nil
}

// ReportRecipients lists every client that opted in to report mails.
func (s *Service) ReportRecipients(ctx context.Context) ([]User, error) {
	users, err := s.repo.users.ListReportRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list report recipients: %w", err)
	}
	return users, nil
}

// SaveSelection stores sel and returns its new id.
func (s *Service) SaveSelection(ctx context.Context, createdBy User, sel report.Selection) (string, error) {
	id := uuid.NewString()
	if err := s.repo.selections.Create(ctx, ChartSelection{ID: id, CreatedBy: createdBy.ID, Selection: sel}); err != nil {
		return "", fmt.Errorf("save selection: %w", err)
	}
	return id, nil
}

// Selection retrieves a stored selection.
func (s *Service) Selection(ctx context.Context, id string) (ChartSelection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ChartSelection{}, errors.Wrap(ErrNotFound, "malformed selection id", slog.String("id", id))
	}
	sel, err := s.repo.selections.Get(ctx, id)
	if err != nil {
		return ChartSelection{}, fmt.Errorf("get selection: %w", err)
	}
	return sel, nil
}

// RecordSentReport logs one delivery attempt.
func (s *Service) RecordSentReport(ctx context.Context, sent SentReport) error {
	if err := s.repo.selections.RecordSent(ctx, sent); err != nil {
		return fmt.Errorf("record sent report: %w", err)
	}
	return nil
}

// SentReports returns the delivery log of a selection.
func (s *Service) SentReports(ctx context.Context, selectionID string) ([]SentReport, error) {
	sent, err := s.repo.selections.ListSent(ctx, selectionID)
	if err != nil {
		return nil, fmt.Errorf("list sent reports: %w", err)
	}
	return sent, nil
}

// SaveChartImage stores an image given as a base64 data URL and returns its id.
func (s *Service) SaveChartImage(ctx context.Context, dataURL string) (string, error) {
	contentType, data, err := report.DecodeDataURL(dataURL)
	if err != nil {
		return "", fmt.Errorf("decode chart image: %w", err)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.Wrap(report.ErrInvalidDataURL, "not an image", slog.String("contentType", contentType))
	}
	if len(data) > maxImageBytes {
		return "", errors.Wrap(ErrImageTooLarge, "save chart image", slog.Int("bytes", len(data)))
	}
	img := ChartImage{ID: uuid.NewString(), ContentType: contentType, Data: data}
	if err = s.repo.images.Create(ctx, img); err != nil {
		return "", fmt.Errorf("save chart image: %w", err)
	}
	return img.ID, nil
}

// ChartImage retrieves a stored image.
func (s *Service) ChartImage(ctx context.Context, id string) (ChartImage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ChartImage{}, errors.Wrap(ErrNotFound, "malformed image id", slog.String("id", id))
	}
	img, err := s.repo.images.Get(ctx, id)
	if err != nil {
		return ChartImage{}, fmt.Errorf("get chart image: %w", err)
	}
	return img, nil
}
