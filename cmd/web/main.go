package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/coachreports/internal/chartrender"
	"github.com/myrjola/coachreports/internal/envstruct"
	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/flightrecorder"
	"github.com/myrjola/coachreports/internal/logging"
	"github.com/myrjola/coachreports/internal/mail"
	"github.com/myrjola/coachreports/internal/metrics"
	"github.com/myrjola/coachreports/internal/sqlite"
	"github.com/myrjola/coachreports/internal/training"
)

type application struct {
	logger          *slog.Logger
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	trainingService *training.Service
	reporter        *mail.Reporter
	renderer        chartrender.PNG
	metrics         *metrics.Manager
	// flightRecorder is nil unless traces are enabled.
	flightRecorder *flightrecorder.Recorder
	baseURL        string
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"COACHREPORTS_ADDR" envDefault:"localhost:8081"`
	// BaseURL is the public URL of the server used in the links of report mails.
	BaseURL string `env:"COACHREPORTS_BASE_URL" envDefault:"http://localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"COACHREPORTS_SQLITE_URL" envDefault:"./coachreports.sqlite3"`
	// Demo seeds the demo accounts and their training history on startup.
	Demo bool `env:"COACHREPORTS_DEMO" envDefault:"false"`
	// SMTPAddr is the host:port of the mail relay. Mails are only logged when it's empty.
	SMTPAddr string `env:"COACHREPORTS_SMTP_ADDR" envDefault:""`
	// SMTPUsername and SMTPPassword enable PLAIN authentication against the relay.
	SMTPUsername string `env:"COACHREPORTS_SMTP_USERNAME" envDefault:""`
	SMTPPassword string `env:"COACHREPORTS_SMTP_PASSWORD" envDefault:""`
	// MailFrom is the sender address of report mails.
	MailFrom string `env:"COACHREPORTS_MAIL_FROM" envDefault:"reports@localhost"`
	// TracesDir enables the flight recorder. A trace is written there when a request times out.
	TracesDir string `env:"COACHREPORTS_TRACES_DIR" envDefault:""`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"COACHREPORTS_TEMPLATE_PATH" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")
	if cfg.Demo {
		if err = db.SeedDemo(ctx); err != nil {
			return errors.Wrap(err, "seed demo data")
		}
	}

	metricsManager := metrics.NewManager()
	trainingService := training.NewService(db, logger, metricsManager.ObserveAggregation)
	renderer := chartrender.PNG{}

	app := application{
		logger:          logger,
		sessionManager:  initializeSessionManager(db),
		templateFS:      os.DirFS(htmlTemplatePath),
		trainingService: trainingService,
		reporter: mail.NewReporter(mail.ReporterConfig{
			Training: trainingService,
			Renderer: renderer,
			Sender:   newMailSender(cfg, logger),
			From:     cfg.MailFrom,
			BaseURL:  cfg.BaseURL,
			Logger:   logger,
			Observe:  metricsManager.ObserveMail,
		}),
		renderer: renderer,
		metrics:  metricsManager,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
	}
	if cfg.TracesDir != "" {
		if app.flightRecorder, err = flightrecorder.New(flightrecorder.Config{
			Logger: logger,
			Dir:    cfg.TracesDir,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = app.flightRecorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer app.flightRecorder.Stop(context.WithoutCancel(ctx))
	}

	handler, err := app.routes()
	if err != nil {
		return errors.Wrap(err, "routes")
	}
	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

// newMailSender delivers through the configured SMTP relay or only logs the mails when there is none.
func newMailSender(cfg config, logger *slog.Logger) mail.Sender {
	if cfg.SMTPAddr == "" {
		logger.LogAttrs(context.Background(), slog.LevelWarn, "no SMTP relay configured, report mails are only logged")
		return mail.LogSender{Logger: logger}
	}
	return mail.SMTPSender{
		Addr:     cfg.SMTPAddr,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Now:      time.Now,
	}
}

func initializeSessionManager(dbs *sqlite.Database) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                                //nolint:mnd // half a day
	sessionManager.Cookie.Name = "coachreports_session"
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	// A missing .env file is fine, the environment is then used as is.
	_ = godotenv.Load()
	sinkCfg := logging.SinkConfig{
		File:       os.Getenv("COACHREPORTS_LOG_FILE"),
		MaxSizeMB:  100, //nolint:mnd // megabytes
		MaxBackups: 5,   //nolint:mnd // files
		Level:      os.Getenv("COACHREPORTS_LOG_LEVEL"),
		JSON:       os.Getenv("COACHREPORTS_LOG_JSON") == "true",
	}
	logger := logging.NewLogger(logging.NewSink(sinkCfg), sinkCfg)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
