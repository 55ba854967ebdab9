// Package browser drives a single headless Chrome tab used to render listing pages.
//
// A Session is not safe for concurrent use: it holds one tab and every call
// navigates or inspects that tab.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"wallharvest/pkg/config"
	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/extract"
	"wallharvest/pkg/logger"
)

// Session owns one Chrome process and one tab
type Session struct {
	cfg    config.BrowserConfig
	logger logger.Logger

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	closed      bool
}

// Open launches Chrome and attaches a tab
func Open(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)

	// Running no actions starts the browser and creates the tab
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, errs.Wrap(errs.ErrorTypeSessionInit, "failed to start browser", err)
	}

	log.WithFields(map[string]interface{}{
		"headless":        cfg.Headless,
		"executable_path": cfg.ExecutablePath,
	}).Debug("Browser session opened")

	return &Session{
		cfg:         cfg,
		logger:      log,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

// Navigate loads url in the tab and waits for the document body
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.closed {
		return errs.New(errs.ErrorTypeNavigation, "session closed")
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeNavigation, url, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"url":      url,
		"duration": time.Since(start).String(),
	}).Debug("Page loaded")
	return nil
}

// Links returns the hrefs on the current page selected by site. When site names a
// load more control it is clicked while displayed, at most MaxExpansions times.
func (s *Session) Links(ctx context.Context, site config.SiteConfig) ([]string, error) {
	if s.closed {
		return nil, errs.New(errs.ErrorTypeExtraction, "session closed")
	}

	if site.LoadMoreSelector != "" && site.MaxExpansions > 0 {
		clicks, err := s.expand(ctx, site.LoadMoreSelector, site.MaxExpansions, site.ExpansionWait)
		if err != nil {
			return nil, err
		}
		s.logger.WithField("clicks", clicks).Debug("Expanded listing")
	}

	html, location, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return extract.LinksFromHTML(html, extract.Spec{
		Selector: site.LinkSelector,
		LinkText: site.LinkText,
		Base:     location,
	})
}

// expand clicks the control matched by selector while it is displayed
func (s *Session) expand(ctx context.Context, selector string, max int, wait time.Duration) (int, error) {
	clicks := 0
	for clicks < max {
		var visible bool
		if err := s.evaluate(ctx, visibleScript(selector), &visible); err != nil {
			return clicks, err
		}
		if !visible {
			break
		}

		var clicked bool
		if err := s.evaluate(ctx, clickScript(selector), &clicked); err != nil {
			return clicks, err
		}
		if !clicked {
			break
		}
		clicks++

		if wait > 0 {
			select {
			case <-ctx.Done():
				return clicks, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return clicks, nil
}

func (s *Session) evaluate(ctx context.Context, script string, res interface{}) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, res)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeExtraction, "script evaluation failed", err)
	}
	return nil
}

// snapshot returns the rendered document and the tab's current location
func (s *Session) snapshot(ctx context.Context) (string, string, error) {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	var html, location string
	err := chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", errs.Wrap(errs.ErrorTypeExtraction, "failed to read page", err)
	}
	return html, location, nil
}

// runContext derives a context on the tab that is bounded by the navigation
// timeout and cancelled together with ctx.
func (s *Session) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if s.cfg.NavigationTimeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tabCtx, s.cfg.NavigationTimeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Close shuts down the browser. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	s.logger.Debug("Browser session closed")
	return nil
}
