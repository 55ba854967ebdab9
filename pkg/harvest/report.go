package harvest

import (
	"fmt"
	"time"

	"wallharvest/pkg/acquire"
)

// CollectionReport tallies the outcomes of one collection
type CollectionReport struct {
	Collection string
	Directory  string
	Pages      int
	Links      int
	Downloaded int
	Skipped    int
	Failed     int
	// Bytes counts newly downloaded bytes only
	Bytes   int64
	Elapsed time.Duration
	// Err is set when the collection could not be processed at all
	Err error
}

// Add records one target's outcome
func (r *CollectionReport) Add(out acquire.Outcome) {
	switch out.Kind {
	case acquire.Downloaded:
		r.Downloaded++
		r.Bytes += out.Bytes
	case acquire.Skipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Total is the number of targets that reached a terminal outcome
func (r CollectionReport) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

func (r CollectionReport) String() string {
	return fmt.Sprintf("Collection %s: Downloaded %d, Skipped %d, Failed %d",
		r.Collection, r.Downloaded, r.Skipped, r.Failed)
}

// Summary aggregates every processed collection of a run
type Summary struct {
	RunID       string
	Collections []CollectionReport
	Elapsed     time.Duration
	// Interrupted is set when the run was cancelled before all collections finished
	Interrupted bool
}

// Add appends a collection report
func (s *Summary) Add(r CollectionReport) {
	s.Collections = append(s.Collections, r)
}

// Totals folds all collection reports into one
func (s *Summary) Totals() CollectionReport {
	total := CollectionReport{Collection: "total"}
	for _, r := range s.Collections {
		total.Pages += r.Pages
		total.Links += r.Links
		total.Downloaded += r.Downloaded
		total.Skipped += r.Skipped
		total.Failed += r.Failed
		total.Bytes += r.Bytes
	}
	total.Elapsed = s.Elapsed
	return total
}
