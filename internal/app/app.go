// Package app wires scraping, cleaning, persistence and reporting into
// pipeline runs.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/tgharvest/internal/config"
	"github.com/ibeckermayer/tgharvest/internal/database"
	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/normalizer"
	"github.com/ibeckermayer/tgharvest/internal/report"
	"github.com/ibeckermayer/tgharvest/internal/scraper"
	"github.com/ibeckermayer/tgharvest/internal/store"
	"github.com/ibeckermayer/tgharvest/internal/types"
)

// ErrNoSaver is returned when persistence is requested without a database.
var ErrNoSaver = errors.New("no record saver configured")

// FetcherFactory opens a page fetcher for one scrape. The returned close
// func releases it.
type FetcherFactory func(ctx context.Context, cfg config.ScrapingConfig) (scraper.PageFetcher, func(), error)

// RecordSaver persists cleaned records.
type RecordSaver interface {
	SaveRecords(ctx context.Context, table string, records types.Table, policy database.IfExists) (int64, error)
}

// ReportSender delivers a rendered report.
type ReportSender interface {
	SendReport(r *report.Report) error
}

// Deps are the collaborators the caller owns.
type Deps struct {
	Fetchers FetcherFactory
	// Saver may be nil when nothing is persisted.
	Saver RecordSaver
	// Notifier may be nil when email is disabled.
	Notifier ReportSender
}

// RejectedSnapshot is what gets saved for the rejected step.
type RejectedSnapshot struct {
	Invalid    types.Table        `json:"invalid"`
	DateErrors []report.DateError `json:"date_errors"`
}

// App holds the application state.
type App struct {
	mu         sync.RWMutex
	configPath string // immutable after creation
	logger     logger.Logger
	deps       Deps
	builder    *report.Builder

	// Mutable fields - use getSnapshot() for concurrent access.
	config    *config.Config
	raw       *store.RawStore
	snapshots *store.Snapshots
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config    *config.Config
	raw       *store.RawStore
	snapshots *store.Snapshots
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:    a.config,
		raw:       a.raw,
		snapshots: a.snapshots,
	}
}

// New creates a new App instance. configPath is reread by ReloadConfig.
func New(cfg *config.Config, configPath string, log logger.Logger, deps Deps) (*App, error) {
	builder, err := report.New(report.DefaultMaxRejected)
	if err != nil {
		return nil, err
	}

	return &App{
		configPath: configPath,
		logger:     log,
		deps:       deps,
		builder:    builder,
		config:     cfg,
		raw:        store.NewRawStore(cfg.Scraping.RawDir),
		snapshots:  store.NewSnapshots(cfg.Cleaning.ProcessedDir),
	}, nil
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// Scrape scrapes every configured channel and saves each successful one to
// the raw store. Failed channels, and channels whose save failed, keep their
// error in the result. Only a failure to open the fetcher aborts.
func (a *App) Scrape(ctx context.Context) ([]scraper.ChannelResult, error) {
	s := a.getSnapshot()

	fetcher, closeFetcher, err := a.deps.Fetchers(ctx, s.config.Scraping)
	if err != nil {
		return nil, fmt.Errorf("open fetcher: %w", err)
	}
	defer closeFetcher()

	sc := scraper.New(fetcher, a.logger, s.config.Scraping.Concurrency)
	results := sc.ScrapeAll(ctx, s.config.Channels, s.config.Scraping.MaxMessages)

	saved := 0
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			a.logger.Error("Channel scrape failed",
				logger.String("channel", r.Channel.Name),
				logger.Error(r.Err),
			)
			continue
		}

		path, err := s.raw.SaveChannel(r.Channel.Name, r.Messages)
		if err != nil {
			r.Err = fmt.Errorf("save %s: %w", r.Channel.Name, err)
			a.logger.Error("Failed to save channel", logger.String("channel", r.Channel.Name), logger.Error(err))
			continue
		}

		saved++
		a.logger.Info("Saved channel",
			logger.String("channel", r.Channel.Name),
			logger.Int("messages", len(r.Messages)),
			logger.String("path", path),
			logger.Duration("duration", r.Duration),
		)
	}

	a.logger.Info("Scrape finished",
		logger.Int("channels", len(results)),
		logger.Int("saved", saved),
		logger.Int("failed", len(results)-saved),
	)

	return results, nil
}

// Process cleans everything in the raw store, snapshots the valid and
// rejected rows, optionally persists the valid rows, and writes a report.
func (a *App) Process(ctx context.Context, persist bool) (*report.Summary, error) {
	return a.process(ctx, persist, nil)
}

func (a *App) process(ctx context.Context, persist bool, scraped []scraper.ChannelResult) (*report.Summary, error) {
	s := a.getSnapshot()

	summary := &report.Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Channels:  channelOutcomes(scraped),
	}
	log := a.logger.With(logger.String("run_id", summary.RunID))

	if persist && a.deps.Saver == nil {
		return nil, ErrNoSaver
	}

	datePolicy, err := normalizer.ParseDatePolicy(s.config.Cleaning.OnDateError)
	if err != nil {
		return nil, err
	}
	ifExists, err := database.ParseIfExists(s.config.Database.IfExists)
	if err != nil {
		return nil, err
	}

	table, err := s.raw.LoadTable()
	if err != nil {
		return nil, fmt.Errorf("load raw data: %w", err)
	}
	log.Info("Loaded raw data", logger.Int("rows", len(table)), logger.String("dir", s.raw.Dir()))

	norm := normalizer.New(log, normalizer.WithDatePolicy(datePolicy))
	res, err := norm.Clean(table)
	if err != nil {
		return nil, err
	}

	summary.InputRows = res.InputRows
	summary.Valid = len(res.Valid)
	summary.Invalid = len(res.Invalid)
	summary.Duplicates = res.DuplicatesRemoved
	summary.Rejected = res.Invalid
	summary.DateErrors = dateErrors(res.DateErrors)

	valid := res.Valid
	if valid == nil {
		valid = types.Table{}
	}
	if summary.CleanedPath, err = store.SaveStepOutput(s.snapshots, store.StepCleaned, valid); err != nil {
		return nil, err
	}
	rejected := RejectedSnapshot{Invalid: res.Invalid, DateErrors: summary.DateErrors}
	if summary.RejectedPath, err = store.SaveStepOutput(s.snapshots, store.StepRejected, rejected); err != nil {
		return nil, err
	}
	log.Info("Saved cleaned data", logger.String("path", summary.CleanedPath))

	if persist {
		n, err := a.deps.Saver.SaveRecords(ctx, s.config.Database.Table, valid, ifExists)
		if err != nil {
			return nil, fmt.Errorf("persist records: %w", err)
		}
		summary.Persisted = n
		summary.Table = s.config.Database.Table
		log.Info("Persisted records", logger.Int64("rows", n), logger.String("table", summary.Table))
	}

	summary.FinishedAt = time.Now()
	a.publish(log, s, summary)

	return summary, nil
}

// publish saves the summary and report and mails the report. Failures here
// are logged; the run itself already succeeded.
func (a *App) publish(log logger.Logger, s snapshot, summary *report.Summary) {
	if _, err := store.SaveStepOutput(s.snapshots, store.StepReports, summary); err != nil {
		log.Error("Failed to save run summary", logger.Error(err))
	}

	r, err := a.builder.Build(summary)
	if err != nil {
		log.Error("Failed to build report", logger.Error(err))
		return
	}

	path, err := s.snapshots.SaveTextOutput(store.StepReports, r.HTMLBody, ".html")
	if err != nil {
		log.Error("Failed to save report", logger.Error(err))
	} else {
		log.Info("Saved report", logger.String("path", path))
	}

	if a.deps.Notifier == nil {
		return
	}
	if err := a.deps.Notifier.SendReport(r); err != nil {
		log.Error("Failed to send report", logger.Error(err))
		return
	}
	log.Info("Sent report", logger.String("subject", r.Subject))
}

// Persist saves the most recent cleaned snapshot to the database.
func (a *App) Persist(ctx context.Context) (int64, error) {
	s := a.getSnapshot()

	if a.deps.Saver == nil {
		return 0, ErrNoSaver
	}
	ifExists, err := database.ParseIfExists(s.config.Database.IfExists)
	if err != nil {
		return 0, err
	}

	valid, path, err := store.LoadLatestStepOutput[types.Table](s.snapshots, store.StepCleaned)
	if err != nil {
		return 0, err
	}

	n, err := a.deps.Saver.SaveRecords(ctx, s.config.Database.Table, valid, ifExists)
	if err != nil {
		return 0, fmt.Errorf("persist records: %w", err)
	}

	a.logger.Info("Persisted snapshot",
		logger.String("path", path),
		logger.Int64("rows", n),
		logger.String("table", s.config.Database.Table),
	)
	return n, nil
}

// Run scrapes every channel and then processes and persists the result.
// Channel failures are reported in the summary rather than failing the run.
func (a *App) Run(ctx context.Context) (*report.Summary, error) {
	results, err := a.Scrape(ctx)
	if err != nil {
		return nil, err
	}
	return a.process(ctx, a.deps.Saver != nil, results)
}

// LatestReport returns the path of the most recent HTML report.
func (a *App) LatestReport() (string, error) {
	return a.getSnapshot().snapshots.LatestStepFile(store.StepReports, ".html")
}

// ReloadConfig reloads the configuration from disk. The fetcher factory,
// saver and notifier are kept; database and email changes need a restart.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.mu.Lock()
	a.config = cfg
	a.raw = store.NewRawStore(cfg.Scraping.RawDir)
	a.snapshots = store.NewSnapshots(cfg.Cleaning.ProcessedDir)
	a.mu.Unlock()

	a.logger.Info("Configuration reloaded",
		logger.String("path", a.configPath),
		logger.Int("channels", len(cfg.Channels)),
	)
	return nil
}

func channelOutcomes(results []scraper.ChannelResult) []report.ChannelOutcome {
	if len(results) == 0 {
		return nil
	}
	out := make([]report.ChannelOutcome, len(results))
	for i, r := range results {
		out[i] = report.ChannelOutcome{
			Name:     r.Channel.Name,
			Messages: len(r.Messages),
			Duration: r.Duration,
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func dateErrors(errs []normalizer.RowError) []report.DateError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]report.DateError, len(errs))
	for i, e := range errs {
		out[i] = report.DateError{
			MessageID: e.MessageID,
			Channel:   e.Channel,
			Error:     e.Err.Error(),
		}
	}
	return out
}
