package harvest

import (
	"context"
	"path/filepath"
	"time"

	"wallharvest/pkg/acquire"
	"wallharvest/pkg/config"
	"wallharvest/pkg/logger"
	"wallharvest/pkg/normalize"
)

// PageSource renders listing pages and extracts candidate hrefs from them
type PageSource interface {
	Navigate(ctx context.Context, url string) error
	Links(ctx context.Context, site config.SiteConfig) ([]string, error)
}

// Acquirer resolves one target to a terminal outcome
type Acquirer interface {
	Acquire(ctx context.Context, target acquire.Target, dest string, policy acquire.Policy) acquire.Outcome
}

// SizeProber asks the remote side for an asset's size before downloading
type SizeProber interface {
	ProbeSize(ctx context.Context, url string) (*int64, error)
}

// Directories prepares output directories
type Directories interface {
	EnsureDir(dir string) error
	SweepPartials(dir string) (int, error)
}

// Recorder receives counters for every outcome and collection
type Recorder interface {
	RecordOutcome(collection, kind string, attempts int, bytes int64)
	RecordCollection(collection string, elapsed time.Duration)
}

// Observer follows a collection's progress, typically to render it
type Observer interface {
	PageScanned(collection string, page, links int)
	TargetDone(collection, filename string, out acquire.Outcome)
	CollectionDone(report CollectionReport)
}

// Deps are the collaborators of a Harvester. Prober, Recorder and Observer are optional.
type Deps struct {
	Normalizer *normalize.Normalizer
	Acquirer   Acquirer
	Dirs       Directories
	Prober     SizeProber
	Recorder   Recorder
	Observer   Observer
	Logger     logger.Logger
}

// Harvester processes one collection at a time
type Harvester struct {
	cfg        *config.Config
	normalizer *normalize.Normalizer
	acquirer   Acquirer
	dirs       Directories
	prober     SizeProber
	recorder   Recorder
	observer   Observer
	logger     logger.Logger
}

// NewHarvester creates a Harvester. cfg must already be validated and is not modified.
func NewHarvester(cfg *config.Config, deps Deps) *Harvester {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Harvester{
		cfg:        cfg,
		normalizer: deps.Normalizer,
		acquirer:   deps.Acquirer,
		dirs:       deps.Dirs,
		prober:     deps.Prober,
		recorder:   deps.Recorder,
		observer:   deps.Observer,
		logger:     log,
	}
}

// OutputDir determines the output directory for a collection
func (h *Harvester) OutputDir(collection string) string {
	if h.cfg.Output.Merged {
		return h.cfg.Output.BaseDirectory
	}
	return filepath.Join(h.cfg.Output.BaseDirectory, collection)
}

// Process discovers and acquires every target of collection using src.
// Navigation, extraction and per-target failures are logged and never abort the collection.
func (h *Harvester) Process(ctx context.Context, collection string, src PageSource) (report CollectionReport) {
	start := time.Now()
	log := h.logger.WithField("collection", collection)
	report = CollectionReport{Collection: collection, Directory: h.OutputDir(collection)}

	defer func() {
		report.Elapsed = time.Since(start)
		if h.recorder != nil {
			h.recorder.RecordCollection(collection, report.Elapsed)
		}
		if h.observer != nil {
			h.observer.CollectionDone(report)
		}
		logger.LogCollectionReport(log, collection, report.Directory,
			report.Downloaded, report.Skipped, report.Failed, report.Elapsed)
	}()

	if err := h.dirs.EnsureDir(report.Directory); err != nil {
		log.WithError(err).Error("Failed to create collection directory, skipping collection")
		report.Err = err
		return report
	}
	if n, err := h.dirs.SweepPartials(report.Directory); err != nil {
		log.WithError(err).Warn("Failed to remove leftover partial files")
	} else if n > 0 {
		log.WithField("removed", n).Info("Removed leftover partial files")
	}

	log.InfoWithFields("Processing collection", map[string]interface{}{
		"directory": report.Directory,
		"pages":     h.cfg.PageCount(),
	})

	for page := 1; page <= h.cfg.PageCount(); page++ {
		if ctx.Err() != nil {
			break
		}

		hrefs, ok := h.scanPage(ctx, collection, page, src, log)
		if !ok {
			continue
		}
		report.Pages++
		report.Links += len(hrefs)

		for _, href := range hrefs {
			if ctx.Err() != nil {
				break
			}
			h.processHref(ctx, collection, report.Directory, href, &report, log)
		}
	}

	if ctx.Err() != nil {
		log.WithError(ctx.Err()).Warn("Collection interrupted")
	}
	return report
}

// scanPage navigates to one listing page and returns its hrefs
func (h *Harvester) scanPage(ctx context.Context, collection string, page int, src PageSource, log logger.Logger) ([]string, bool) {
	listingURL := h.cfg.ListingURL(collection, page)
	pageLog := log.WithFields(map[string]interface{}{"page": page, "url": listingURL})

	if err := src.Navigate(ctx, listingURL); err != nil {
		pageLog.WithError(err).Error("Failed to load listing page")
		return nil, false
	}

	hrefs, err := src.Links(ctx, h.cfg.Site)
	if err != nil {
		pageLog.WithError(err).Error("Failed to extract links")
		return nil, false
	}

	if h.observer != nil {
		h.observer.PageScanned(collection, page, len(hrefs))
	}
	if len(hrefs) == 0 {
		pageLog.Info("No wallpapers found")
	} else {
		pageLog.WithField("links", len(hrefs)).Info("Found wallpapers")
	}
	return hrefs, true
}

// processHref turns one href into exactly one outcome
func (h *Harvester) processHref(ctx context.Context, collection, dir, href string, report *CollectionReport, log logger.Logger) {
	downloadURL, filename, err := h.normalizer.Normalize(href)
	if err != nil {
		h.record(collection, href, acquire.Outcome{Kind: acquire.Skipped, Reason: acquire.ReasonInvalidLink, Err: err}, report)
		return
	}

	target := acquire.Target{SourceURL: downloadURL, LocalFilename: filename}
	if h.prober != nil && h.cfg.Download.ProbeSize {
		size, err := h.prober.ProbeSize(ctx, downloadURL)
		switch {
		case err != nil:
			log.WithError(err).WithField("url", downloadURL).Debug("Size probe failed")
		case size != nil && *size > 0:
			target.ExpectedSize = size
		}
	}

	policy := acquire.Policy{
		MaxAttempts: h.cfg.Download.MaxAttempts,
		RetryDelay:  h.cfg.Download.RetryDelay,
	}
	out := h.acquirer.Acquire(ctx, target, filepath.Join(dir, filename), policy)
	h.record(collection, filename, out, report)
}

func (h *Harvester) record(collection, filename string, out acquire.Outcome, report *CollectionReport) {
	report.Add(out)

	var downloaded int64
	if out.Kind == acquire.Downloaded {
		downloaded = out.Bytes
	}
	logger.LogAcquisition(h.logger, collection, filename, out.Kind.String(), out.Attempts, downloaded, out.Err)

	if h.recorder != nil {
		h.recorder.RecordOutcome(collection, out.Kind.String(), out.Attempts, downloaded)
	}
	if h.observer != nil {
		h.observer.TargetDone(collection, filename, out)
	}
}
