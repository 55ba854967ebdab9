package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"wallharvest/pkg/acquire"
	"wallharvest/pkg/harvest"
)

const barWidth = 20

// ProgressDisplay follows a run collection by collection. In live mode it
// redraws a single status line; otherwise it only prints finished collections.
type ProgressDisplay struct {
	mu      sync.Mutex
	printer *Printer
	live    bool

	collection string
	found      int
	done       int
	downloaded int
	skipped    int
	failed     int
	bytes      int64
	startTime  time.Time
}

// NewProgressDisplay creates a ProgressDisplay. live should only be set when
// the printer writes to a terminal that is not shared with log output.
func NewProgressDisplay(p *Printer, live bool) *ProgressDisplay {
	return &ProgressDisplay{printer: p, live: live}
}

// PageScanned records the links found on a listing page
func (d *ProgressDisplay) PageScanned(collection string, page, links int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reset(collection)
	d.found += links
	if d.live {
		d.printProgress("")
	}
}

// TargetDone records one terminal outcome
func (d *ProgressDisplay) TargetDone(collection, filename string, out acquire.Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reset(collection)
	d.done++
	switch out.Kind {
	case acquire.Downloaded:
		d.downloaded++
		d.bytes += out.Bytes
	case acquire.Skipped:
		d.skipped++
	default:
		d.failed++
	}
	if d.live {
		d.printProgress(filename)
	}
}

// CollectionDone prints the final line for a collection
func (d *ProgressDisplay) CollectionDone(report harvest.CollectionReport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.live {
		fmt.Fprintf(d.printer.out, "\r%s\r", strings.Repeat(" ", 120))
	}
	d.collection = ""

	s := d.printer.styles
	if report.Err != nil {
		d.printer.PrintError("Collection "+report.Collection+" skipped", report.Err)
		return
	}
	mark := s.success.Render("✓")
	if report.Failed > 0 {
		mark = s.warning.Render("!")
	}
	fmt.Fprintf(d.printer.out, "%s %s %s\n", mark, report.String(),
		s.dim.Render(fmt.Sprintf("(%s in %s)", humanize.Bytes(uint64(report.Bytes)), formatDuration(report.Elapsed))))
}

// reset starts counting afresh when a new collection begins
func (d *ProgressDisplay) reset(collection string) {
	if d.collection == collection {
		return
	}
	d.collection = collection
	d.found, d.done = 0, 0
	d.downloaded, d.skipped, d.failed = 0, 0, 0
	d.bytes = 0
	d.startTime = time.Now()
}

// printProgress redraws the status line
func (d *ProgressDisplay) printProgress(current string) {
	s := d.printer.styles

	filled := 0
	if d.found > 0 {
		filled = d.done * barWidth / d.found
		if filled > barWidth {
			filled = barWidth
		}
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • %s %d %s %d %s %d • %s",
		s.label.Render(d.collection),
		bar,
		d.done, d.found,
		s.success.Render("↓"), d.downloaded,
		s.dim.Render("↷"), d.skipped,
		s.failure.Render("✗"), d.failed,
		humanize.Bytes(uint64(d.bytes)),
	)
	if current != "" {
		line += " • " + s.dim.Render(truncate(current, 40))
	}

	fmt.Fprintf(d.printer.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
