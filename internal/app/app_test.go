package app_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tgharvest/internal/app"
	"github.com/ibeckermayer/tgharvest/internal/config"
	"github.com/ibeckermayer/tgharvest/internal/database"
	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/report"
	"github.com/ibeckermayer/tgharvest/internal/scraper"
	"github.com/ibeckermayer/tgharvest/internal/store"
	"github.com/ibeckermayer/tgharvest/internal/types"
)

type fakeFetcher struct {
	pages    map[string]string
	failures map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if err, ok := f.failures[url]; ok {
		return "", err
	}
	if html, ok := f.pages[url]; ok {
		return html, nil
	}
	return "<html><body></body></html>", nil
}

type fakeSaver struct {
	mu      sync.Mutex
	table   string
	records types.Table
	policy  database.IfExists
	calls   int
	err     error
}

func (f *fakeSaver) SaveRecords(_ context.Context, table string, records types.Table, policy database.IfExists) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.table, f.records, f.policy = table, records, policy
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(records)), nil
}

type fakeNotifier struct {
	reports []*report.Report
}

func (f *fakeNotifier) SendReport(r *report.Report) error {
	f.reports = append(f.reports, r)
	return nil
}

func previewMessage(channel string, id int64, datetime, body string) string {
	return fmt.Sprintf(`<div class="tgme_widget_message" data-post="%s/%d">%s
<a class="tgme_widget_message_date" href="#"><time datetime="%s">t</time></a></div>`, channel, id, body, datetime)
}

func previewPage(msgs ...string) string {
	return "<html><body>" + strings.Join(msgs, "\n") + "</body></html>"
}

func text(s string) string {
	return `<div class="tgme_widget_message_text">` + s + `</div>`
}

// doctorsPage holds one keeper, one duplicate of it after cleaning, one
// media-only row and one row with a broken date.
var doctorsPage = previewPage(
	previewMessage("DoctorsET", 4, "not-a-date", text("bad date")),
	previewMessage("DoctorsET", 3, "2024-01-05T10:11:12+00:00", text("Hello!!  World #tag")),
	previewMessage("DoctorsET", 2, "2024-01-05T10:11:12+00:00", text("Hello World #tag")),
	previewMessage("DoctorsET", 1, "2024-01-04T08:00:00+03:00", `<a class="tgme_widget_message_photo_wrap"></a>`),
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Channels = []config.ChannelConfig{
		{Name: "DoctorsET", URL: "https://t.me/DoctorsET"},
		{Name: "Yetenaweg", URL: "https://t.me/yetenaweg"},
	}
	cfg.Scraping.RawDir = filepath.Join(dir, "raw")
	cfg.Cleaning.ProcessedDir = filepath.Join(dir, "processed")
	return cfg
}

func fetchers(f scraper.PageFetcher) app.FetcherFactory {
	return func(context.Context, config.ScrapingConfig) (scraper.PageFetcher, func(), error) {
		return f, func() {}, nil
	}
}

func newTestApp(t *testing.T, cfg *config.Config, deps app.Deps) *app.App {
	t.Helper()
	if deps.Fetchers == nil {
		deps.Fetchers = fetchers(&fakeFetcher{
			pages:    map[string]string{"https://t.me/s/DoctorsET": doctorsPage},
			failures: map[string]error{"https://t.me/s/yetenaweg": errors.New("timeout")},
		})
	}
	a, err := app.New(cfg, "", logger.NewNop(), deps)
	require.NoError(t, err)
	return a
}

func TestScrape_SavesSuccessfulChannels(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, app.Deps{})

	results, err := a.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)

	names, err := store.NewRawStore(cfg.Scraping.RawDir).Channels()
	require.NoError(t, err)
	assert.Equal(t, []string{"DoctorsET"}, names)

	msgs, err := store.NewRawStore(cfg.Scraping.RawDir).LoadChannel("DoctorsET")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestScrape_FetcherOpenFails(t *testing.T) {
	boom := errors.New("no chrome")
	a := newTestApp(t, testConfig(t), app.Deps{
		Fetchers: func(context.Context, config.ScrapingConfig) (scraper.PageFetcher, func(), error) {
			return nil, nil, boom
		},
	})

	_, err := a.Scrape(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	saver := &fakeSaver{}
	notes := &fakeNotifier{}
	a := newTestApp(t, cfg, app.Deps{Saver: saver, Notifier: notes})

	summary, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Channels, 2)
	assert.Equal(t, 4, summary.Channels[0].Messages)
	assert.NotEmpty(t, summary.Channels[1].Error)

	assert.Equal(t, 4, summary.InputRows)
	assert.Equal(t, 1, summary.Valid)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 1, summary.Duplicates)
	require.Len(t, summary.DateErrors, 1)
	assert.Equal(t, int64(4), summary.DateErrors[0].MessageID)
	assert.NotEmpty(t, summary.RunID)

	require.Equal(t, 1, saver.calls)
	assert.Equal(t, "telegram_messages", saver.table)
	assert.Equal(t, database.IfExistsReplace, saver.policy)
	require.Len(t, saver.records, 1)
	rec := saver.records[0]
	assert.Equal(t, int64(3), rec.ID)
	assert.Equal(t, "Hello World #tag", *rec.Text)
	assert.Equal(t, "2024-01-05 10:11:12", *rec.Date)
	assert.Equal(t, "DoctorsET", *rec.Channel)
	assert.Equal(t, int64(1), summary.Persisted)

	require.Len(t, notes.reports, 1)
	assert.Equal(t, summary.RunID, notes.reports[0].RunID)

	snaps := store.NewSnapshots(cfg.Cleaning.ProcessedDir)
	cleaned, _, err := store.LoadLatestStepOutput[types.Table](snaps, store.StepCleaned)
	require.NoError(t, err)
	assert.Equal(t, saver.records, cleaned)

	rejected, _, err := store.LoadLatestStepOutput[app.RejectedSnapshot](snaps, store.StepRejected)
	require.NoError(t, err)
	require.Len(t, rejected.Invalid, 1)
	assert.Equal(t, int64(1), rejected.Invalid[0].ID)
	assert.Len(t, rejected.DateErrors, 1)

	html, err := a.LatestReport()
	require.NoError(t, err)
	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), summary.RunID)
}

func TestProcess_NoPersist(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, app.Deps{})

	_, err := a.Scrape(context.Background())
	require.NoError(t, err)

	summary, err := a.Process(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Valid)
	assert.Empty(t, summary.Table)
	assert.Zero(t, summary.Persisted)

	_, err = a.Process(context.Background(), true)
	assert.ErrorIs(t, err, app.ErrNoSaver)
}

func TestProcess_AbortOnDateError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleaning.OnDateError = "abort"
	saver := &fakeSaver{}
	a := newTestApp(t, cfg, app.Deps{Saver: saver})

	_, err := a.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, saver.calls)
}

func TestProcess_NoRawData(t *testing.T) {
	a := newTestApp(t, testConfig(t), app.Deps{})

	_, err := a.Process(context.Background(), false)
	assert.ErrorIs(t, err, store.ErrNoRawData)
}

func TestProcess_SaverError(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("db down")
	a := newTestApp(t, cfg, app.Deps{Saver: &fakeSaver{err: boom}})

	_, err := a.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPersist_LatestSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.IfExists = "append"
	saver := &fakeSaver{}
	a := newTestApp(t, cfg, app.Deps{Saver: saver})

	_, err := a.Persist(context.Background())
	assert.ErrorIs(t, err, store.ErrNoSnapshot)

	_, err = a.Scrape(context.Background())
	require.NoError(t, err)
	_, err = a.Process(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, saver.calls)

	n, err := a.Persist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, database.IfExistsAppend, saver.policy)
}

func TestRun_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = database.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "tgharvest.db")

	db, err := database.Open(database.ConfigFrom(cfg.Database))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := database.NewRecordRepository(db)

	a := newTestApp(t, cfg, app.Deps{Saver: repo})

	for range 2 {
		_, err := a.Run(context.Background())
		require.NoError(t, err)
	}

	count, err := repo.CountRecords(context.Background(), cfg.Database.Table)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "replace policy keeps only the latest run")
}

func TestReloadConfig(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	a, err := app.New(cfg, path, logger.NewNop(), app.Deps{Fetchers: fetchers(&fakeFetcher{})})
	require.NoError(t, err)

	next := testConfig(t)
	next.Channels = []config.ChannelConfig{{Name: "EAHCI", URL: "https://t.me/EAHCI"}}
	require.NoError(t, next.Save(path))

	require.NoError(t, a.ReloadConfig())
	require.Len(t, a.Config().Channels, 1)
	assert.Equal(t, "EAHCI", a.Config().Channels[0].Name)

	next.Scraping.Concurrency = 0
	require.NoError(t, next.Save(path))
	assert.Error(t, a.ReloadConfig())
	assert.Equal(t, "EAHCI", a.Config().Channels[0].Name, "bad config is not applied")
}
