package harvest

import (
	"context"
	"fmt"
	"time"

	"wallharvest/pkg/config"
	"wallharvest/pkg/logger"
)

// Session is a PageSource that must be released after the run
type Session interface {
	PageSource
	Close() error
}

// SessionOpener starts the page session shared by all collections of a run
type SessionOpener func(ctx context.Context) (Session, error)

// Coordinator runs every configured collection through one Harvester and one Session
type Coordinator struct {
	cfg       *config.Config
	harvester *Harvester
	open      SessionOpener
	dirs      Directories
	logger    logger.Logger
	runID     string
}

// NewCoordinator creates a Coordinator
func NewCoordinator(cfg *config.Config, h *Harvester, open SessionOpener, dirs Directories, log logger.Logger, runID string) *Coordinator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Coordinator{
		cfg:       cfg,
		harvester: h,
		open:      open,
		dirs:      dirs,
		logger:    log,
		runID:     runID,
	}
}

// Run processes collections strictly in order. The returned error is non-nil only
// for failures fatal to the whole run: invalid configuration, an unusable base
// directory, a session that cannot be opened, or cancellation.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: c.runID}

	if err := c.cfg.Validate(); err != nil {
		return summary, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.dirs.EnsureDir(c.cfg.Output.BaseDirectory); err != nil {
		c.logger.WithError(err).Error("Failed to create base output directory")
		return summary, err
	}

	session, err := c.open(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to open browser session")
		return summary, err
	}
	logger.LogComponentStart(c.logger, "session", map[string]interface{}{
		"collections": len(c.cfg.Collections),
		"merged":      c.cfg.Output.Merged,
	})

	reason := "completed"
	defer func() {
		if err := session.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close browser session")
		}
		logger.LogComponentStop(c.logger, "session", reason)
	}()

	for _, collection := range c.cfg.Collections {
		if ctx.Err() != nil {
			break
		}
		summary.Add(c.harvester.Process(ctx, collection, session))
	}

	summary.Elapsed = time.Since(start)
	if err := ctx.Err(); err != nil {
		reason = "interrupted"
		summary.Interrupted = true
		return summary, err
	}
	return summary, nil
}
