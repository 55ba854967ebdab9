// Package acquire turns a Target into a verified local file, retrying failed
// or undersized transfers a bounded number of times.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/logger"
	"wallharvest/pkg/retry"
	"wallharvest/pkg/verify"
)

// Target is a single remote asset reference
type Target struct {
	SourceURL     string
	LocalFilename string
	// ExpectedSize is nil when no size probe was made or it failed
	ExpectedSize *int64
}

// Kind is the terminal state of an acquisition
type Kind int

const (
	Downloaded Kind = iota
	Skipped
	Failed
)

func (k Kind) String() string {
	switch k {
	case Downloaded:
		return "downloaded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Skip reasons
const (
	// ReasonAlreadyExists is a valid file already on disk
	ReasonAlreadyExists = "already_exists"
	// ReasonInvalidLink is an href that maps to no download URL or filename
	ReasonInvalidLink = "invalid_link"
)

// Outcome is produced exactly once per Target
type Outcome struct {
	Kind Kind
	// Reason explains a skip
	Reason string
	// Err is the last error of a failed acquisition, or why a link was invalid
	Err error
	// Attempts is the number of transfers made
	Attempts int
	// Bytes is the size of the file on disk for Downloaded and Skipped
	Bytes int64
	// Verification is the integrity result of the kept file
	Verification verify.Result
}

// Policy bounds the retry loop
type Policy struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Downloader makes one transfer attempt
type Downloader interface {
	DownloadOnce(ctx context.Context, url, dest string) (int64, error)
}

// FileSystem is the subset of storage the orchestrator needs
type FileSystem interface {
	Exists(path string) bool
	Remove(path string) error
}

// retryState lives for one Target's acquisition only
type retryState struct {
	attemptNumber int
	maxAttempts   int
	lastError     error
}

// Acquirer composes a single-attempt Downloader with verification and retry
type Acquirer struct {
	downloader Downloader
	fs         FileSystem
	verifier   *verify.Verifier
	logger     logger.Logger
}

// New creates an Acquirer
func New(d Downloader, fs FileSystem, v *verify.Verifier, log logger.Logger) *Acquirer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Acquirer{downloader: d, fs: fs, verifier: v, logger: log}
}

// Acquire resolves target to a terminal Outcome. It never returns an error:
// every failure becomes a Failed outcome. A Failed outcome leaves no file at dest.
func (a *Acquirer) Acquire(ctx context.Context, target Target, dest string, policy Policy) Outcome {
	log := a.logger.WithFields(map[string]interface{}{
		"file": target.LocalFilename,
		"url":  target.SourceURL,
	})

	if outcome, done := a.checkExisting(target, dest, log); done {
		return outcome
	}

	state := retryState{maxAttempts: policy.MaxAttempts}
	var verification verify.Result

	cfg := retry.Config{
		MaxAttempts: policy.MaxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: policy.RetryDelay},
		RetryIf:     a.retryIf,
		Logger:      log,
	}

	size, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context, attempt int) (int64, error) {
		state.attemptNumber = attempt
		n, res, err := a.attempt(ctx, target, dest, log)
		state.lastError = err
		verification = res
		return n, err
	})

	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			err = exhausted.Last
		}
		if rmErr := a.fs.Remove(dest); rmErr != nil {
			log.WithError(rmErr).Warn("Failed to remove output of failed acquisition")
		}
		log.WithFields(map[string]interface{}{
			"attempts":     state.attemptNumber,
			"max_attempts": state.maxAttempts,
		}).WithError(err).Debug("Acquisition exhausted")
		return Outcome{Kind: Failed, Err: err, Attempts: state.attemptNumber}
	}

	return Outcome{
		Kind:         Downloaded,
		Attempts:     state.attemptNumber,
		Bytes:        size,
		Verification: verification,
	}
}

// checkExisting applies the skip policy to a file already at dest
func (a *Acquirer) checkExisting(target Target, dest string, log logger.Logger) (Outcome, bool) {
	if !a.fs.Exists(dest) {
		return Outcome{}, false
	}

	res, actual, err := a.verifier.Verify(dest, target.ExpectedSize)
	if err != nil {
		log.WithError(err).Warn("Could not verify existing file, downloading again")
		a.remove(dest, log)
		return Outcome{}, false
	}

	fields := map[string]interface{}{"size": actual, "verification": res.String()}
	switch {
	case res == verify.Valid:
		return Outcome{Kind: Skipped, Reason: ReasonAlreadyExists, Bytes: actual, Verification: res}, true
	case a.verifier.Acceptable(res):
		log.WithFields(fields).WithField("expected", *target.ExpectedSize).
			Warn("Existing file size differs from remote size, keeping it")
		return Outcome{Kind: Skipped, Reason: ReasonAlreadyExists, Bytes: actual, Verification: res}, true
	default:
		log.WithFields(fields).Info("Existing file failed verification, downloading again")
		a.remove(dest, log)
		return Outcome{}, false
	}
}

// attempt performs one transfer followed by verification
func (a *Acquirer) attempt(ctx context.Context, target Target, dest string, log logger.Logger) (int64, verify.Result, error) {
	if _, err := a.downloader.DownloadOnce(ctx, target.SourceURL, dest); err != nil {
		// The downloader cleans up after itself; this covers implementations that do not.
		a.remove(dest, log)
		return 0, verify.Valid, err
	}

	res, actual, err := a.verifier.Verify(dest, target.ExpectedSize)
	if err != nil {
		a.remove(dest, log)
		return 0, verify.Valid, errs.Wrap(errs.ErrorTypeDownload, "downloaded file vanished", err)
	}

	if !a.verifier.Acceptable(res) {
		a.remove(dest, log)
		return 0, res, a.verifier.Err(res, actual, target.ExpectedSize)
	}

	if res == verify.SizeMismatch {
		log.WithFields(map[string]interface{}{
			"size":     actual,
			"expected": *target.ExpectedSize,
		}).Warn("Downloaded size differs from remote size")
	}
	return actual, res, nil
}

// retryIf retries transfer and integrity failures but never cancellation.
// A size mismatch is only reached here in strict mode.
func (a *Acquirer) retryIf(err error) bool {
	if errs.IsType(err, errs.ErrorTypeSizeMismatch) {
		return a.verifier.Strict
	}
	return retry.DefaultRetryIf(err)
}

func (a *Acquirer) remove(path string, log logger.Logger) {
	if err := a.fs.Remove(path); err != nil {
		log.WithError(err).Warn("Failed to remove file")
	}
}
