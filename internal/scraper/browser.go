// Package scraper finds correspondent stories on program rundown pages.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// Fetcher returns the rendered HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// BrowserFetcher renders pages in headless Chrome so client-side rundowns are populated.
type BrowserFetcher struct {
	Timeout   time.Duration
	UserAgent string
	Headless  bool
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", b.Headless))
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := b.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	var page string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &page, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return "", apperrors.TransientIO("render page", fmt.Errorf("%s: %w", url, err))
	}
	return page, nil
}

// Scraper fetches rundown pages and extracts their stories.
type Scraper struct {
	fetcher Fetcher
	log     *logger.Logger
}

// New creates a Scraper.
func New(fetcher Fetcher, log *logger.Logger) *Scraper {
	return &Scraper{fetcher: fetcher, log: log.WithComponent("scraper")}
}

// Stories returns the stories listed on url in page order.
func (s *Scraper) Stories(ctx context.Context, url string) ([]types.Story, error) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	stories, skipped, err := ParseStories(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	for _, sk := range skipped {
		s.log.Warn("Skipping article", map[string]interface{}{
			"url":    url,
			"title":  sk.Title,
			"reason": sk.Reason,
		})
	}
	s.log.Info("Scraped program page", map[string]interface{}{
		"url":     url,
		"stories": len(stories),
	})
	return stories, nil
}

// StoriesForDate scrapes every program aired on date. A page that fails is logged and skipped.
func (s *Scraper) StoriesForDate(ctx context.Context, date time.Time) ([]types.Story, error) {
	var all []types.Story
	var lastErr error
	urls := ProgramURLs(date)
	for _, url := range urls {
		stories, err := s.Stories(ctx, url)
		if err != nil {
			s.log.WithError(err).Error("Failed to scrape program page", map[string]interface{}{"url": url})
			lastErr = err
			continue
		}
		all = append(all, stories...)
	}
	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}
