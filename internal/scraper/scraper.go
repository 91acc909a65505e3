// Package scraper collects messages from public Telegram channel previews.
package scraper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/tgharvest/internal/config"
	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/types"
)

// PageFetcher returns the rendered HTML of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scraper pages through channel previews using a PageFetcher.
type Scraper struct {
	fetcher     PageFetcher
	logger      logger.Logger
	concurrency int
}

// New creates a scraper. concurrency bounds how many channels ScrapeAll
// works on at once.
func New(fetcher PageFetcher, log logger.Logger, concurrency int) *Scraper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scraper{fetcher: fetcher, logger: log, concurrency: concurrency}
}

// ChannelResult is the outcome of scraping one channel. Err is set when
// the channel failed; Messages may then be empty.
type ChannelResult struct {
	Channel  config.ChannelConfig
	Messages []types.RawMessage
	Duration time.Duration
	Err      error
}

// ScrapeChannel fetches up to limit messages from ch, newest first.
// It walks backwards through the preview with ?before= until it has enough
// messages, a page comes back empty, or a page adds nothing new.
func (s *Scraper) ScrapeChannel(ctx context.Context, ch config.ChannelConfig, limit int) ([]types.RawMessage, error) {
	username, err := ChannelUsername(ch.URL)
	if err != nil {
		return nil, err
	}

	var msgs []types.RawMessage
	seenIDs := make(map[int64]bool)
	var before int64

	for len(msgs) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		html, err := s.fetcher.Fetch(ctx, PreviewURL(username, before))
		if err != nil {
			return nil, err
		}

		page, err := ParsePage(html)
		if err != nil {
			return nil, err
		}

		added := 0
		oldest := before
		for _, m := range page {
			if seenIDs[m.MessageID] {
				continue
			}
			seenIDs[m.MessageID] = true
			msgs = append(msgs, m)
			added++
			if oldest == 0 || m.MessageID < oldest {
				oldest = m.MessageID
			}
		}

		s.logger.Debug("Fetched preview page",
			logger.String("channel", ch.Name),
			logger.Int64("before", before),
			logger.Int("messages", len(page)),
			logger.Int("new", added),
		)

		if added == 0 || oldest <= 1 {
			break
		}
		before = oldest
	}

	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].MessageID > msgs[j].MessageID
	})

	if len(msgs) > limit {
		msgs = msgs[:limit]
	}

	return msgs, nil
}

// ScrapeAll scrapes every channel and returns one result per channel in
// input order. A failing channel never stops the others; callers decide
// what to do with results whose Err is set.
func (s *Scraper) ScrapeAll(ctx context.Context, channels []config.ChannelConfig, limit int) []ChannelResult {
	results := make([]ChannelResult, len(channels))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, ch := range channels {
		g.Go(func() error {
			start := time.Now()
			s.logger.Info("Scraping channel", logger.String("channel", ch.Name), logger.String("url", ch.URL))

			msgs, err := s.ScrapeChannel(ctx, ch, limit)
			results[i] = ChannelResult{
				Channel:  ch,
				Messages: msgs,
				Duration: time.Since(start),
			}
			if err != nil {
				results[i].Err = fmt.Errorf("scrape %s: %w", ch.Name, err)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
