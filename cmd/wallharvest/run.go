package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wallharvest/internal/downloader"
	"wallharvest/pkg/acquire"
	"wallharvest/pkg/browser"
	"wallharvest/pkg/config"
	"wallharvest/pkg/harvest"
	"wallharvest/pkg/logger"
	"wallharvest/pkg/metrics"
	"wallharvest/pkg/normalize"
	"wallharvest/pkg/storage"
	"wallharvest/pkg/ui"
	"wallharvest/pkg/verify"
)

var (
	// Run command flags
	baseURL         string
	pages           int
	collections     []string
	outputDir       string
	merged          bool
	noHeadless      bool
	chromePath      string
	maxAttempts     int
	retryDelay      time.Duration
	strict          bool
	metricsTextfile string
	notify          bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [collection...]",
	Short: "Harvest the configured collections",
	Long: `Harvest every configured collection in order.

Collections can be given as arguments, with --collections, through
WALLHARVEST_COLLECTIONS or in the configuration file. Each collection is
written to its own subdirectory of the output directory unless --merged is set.

When standard output is a terminal a live progress line is shown and console
logs below warn are hidden; use --verbose or --log-level to see them.`,
	Example: `  # Harvest two collections with the default site settings
  wallharvest run nature space

  # Harvest the first 5 rating pages into one directory
  wallharvest run nature --pages 5 --merged --output ./walls

  # Use a config file and a visible browser
  wallharvest run -c 4kwallpapers.yaml --no-headless`,
	Args: cobra.ArbitraryArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	for _, cmd := range []*cobra.Command{runCmd, rootCmd} {
		flags := cmd.Flags()
		flags.StringVar(&baseURL, "base-url", "", "gallery site base URL")
		flags.IntVar(&pages, "pages", 0, "listing pages to visit per collection")
		flags.StringSliceVar(&collections, "collections", nil, "comma separated collection identifiers")
		flags.StringVarP(&outputDir, "output", "o", "", "output directory")
		flags.BoolVar(&merged, "merged", false, "write all collections into the output directory itself")
		flags.BoolVar(&noHeadless, "no-headless", false, "show the browser window")
		flags.StringVar(&chromePath, "chrome-path", "", "Chrome or Chromium executable")
		flags.IntVar(&maxAttempts, "max-attempts", 0, "download attempts per wallpaper")
		flags.DurationVar(&retryDelay, "retry-delay", 0, "delay between download attempts")
		flags.BoolVar(&strict, "strict", false, "re-download files whose size differs from the remote size")
		flags.StringVar(&metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
		flags.BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
	}
}

// commandLineFlags collects the flags the user actually set
func commandLineFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags().Changed

	if set("base-url") {
		flags["base-url"] = baseURL
	}
	if set("pages") {
		flags["pages"] = pages
	}
	if set("collections") {
		flags["collections"] = collections
	}
	if len(args) > 0 {
		flags["collections"] = args
	}
	if set("output") {
		flags["output"] = outputDir
	}
	if set("merged") {
		flags["merged"] = merged
	}
	if set("no-headless") {
		flags["no-headless"] = noHeadless
	}
	if set("chrome-path") {
		flags["chrome-path"] = chromePath
	}
	if set("max-attempts") {
		flags["max-attempts"] = maxAttempts
	}
	if set("retry-delay") {
		flags["retry-delay"] = retryDelay
	}
	if set("strict") {
		flags["strict"] = strict
	}
	if set("metrics-textfile") {
		flags["metrics-textfile"] = metricsTextfile
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if noColor {
		flags["no-color"] = true
	}
	return flags
}

func runHarvest(cmd *cobra.Command, args []string) error {
	live := !quiet && !verbose && term.IsTerminal(int(os.Stdout.Fd()))

	flags := commandLineFlags(cmd, args)
	if live && logLevel == "" {
		flags["log-level"] = "warn"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log, err := logger.New(&cfg.Logging, logger.Options{RunID: runID, Version: version})
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout, cfg.Logging.NoColor, quiet)
	printer.PrintBanner(version)
	printer.PrintInfo("Site", cfg.Site.BaseURL)
	printer.PrintInfo("Collections", strings.Join(cfg.Collections, ", "))
	printer.PrintInfo("Output", cfg.Output.BaseDirectory)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storage.NewManager()
	transport := downloader.NewHTTPTransport(cfg.Download, log)
	acquirer := acquire.New(
		downloader.New(transport, store, log),
		store,
		verify.New(cfg.Integrity, store),
		log,
	)
	normalizer, err := normalize.New(cfg.Site.BaseURL, cfg.Normalize)
	if err != nil {
		return err
	}
	m := metrics.New()

	harvester := harvest.NewHarvester(cfg, harvest.Deps{
		Normalizer: normalizer,
		Acquirer:   acquirer,
		Dirs:       store,
		Prober:     transport,
		Recorder:   m,
		Observer:   ui.NewProgressDisplay(printer, live),
		Logger:     log,
	})

	opener := func(ctx context.Context) (harvest.Session, error) {
		s, err := browser.Open(ctx, cfg.Browser, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	log.InfoWithFields("Harvest starting", map[string]interface{}{
		"collections": cfg.Collections,
		"output":      cfg.Output.BaseDirectory,
		"pages":       cfg.PageCount(),
	})

	summary, runErr := harvest.NewCoordinator(cfg, harvester, opener, store, log, runID).Run(ctx)

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.WithError(err).Warn("Failed to write metrics")
		}
	}

	if len(summary.Collections) > 0 {
		printer.PrintSummary(summary)
	}

	if notify {
		if err := ui.NewNotifier().NotifyRun(summary, runErr); err != nil {
			log.WithError(err).Debug("Desktop notification failed")
		}
	}

	switch {
	case runErr == nil:
		totals := summary.Totals()
		log.InfoWithFields("Harvest finished", map[string]interface{}{
			"downloaded": totals.Downloaded,
			"skipped":    totals.Skipped,
			"failed":     totals.Failed,
		})
		return nil
	case errors.Is(runErr, context.Canceled):
		printer.PrintWarning("Harvest interrupted")
		return runErr
	default:
		printer.PrintError("Harvest failed", runErr)
		return runErr
	}
}
