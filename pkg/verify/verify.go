// Package verify classifies downloaded files by size.
package verify

import (
	"fmt"

	"wallharvest/pkg/config"
	errs "wallharvest/pkg/errors"
)

// Result is the integrity classification of a file
type Result int

const (
	Valid Result = iota
	TooSmall
	SizeMismatch
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case TooSmall:
		return "too_small"
	case SizeMismatch:
		return "size_mismatch"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Sizer reports the size of a file
type Sizer interface {
	Size(path string) (int64, error)
}

// Verifier applies the minimum-size and expected-size checks
type Verifier struct {
	MinSize   int64
	Tolerance int64
	// Strict makes SizeMismatch disqualifying
	Strict bool

	sizer Sizer
}

// New creates a Verifier reading sizes through sizer
func New(cfg config.IntegrityConfig, sizer Sizer) *Verifier {
	return &Verifier{
		MinSize:   cfg.MinFileSize,
		Tolerance: cfg.SizeTolerance,
		Strict:    cfg.Strict,
		sizer:     sizer,
	}
}

// Verify classifies the file at path. expected is nil when the remote size is unknown.
func (v *Verifier) Verify(path string, expected *int64) (Result, int64, error) {
	actual, err := v.sizer.Size(path)
	if err != nil {
		return Valid, 0, err
	}
	return v.Classify(actual, expected), actual, nil
}

// Classify applies the size policy to an actual byte count
func (v *Verifier) Classify(actual int64, expected *int64) Result {
	if actual < v.MinSize {
		return TooSmall
	}
	if expected != nil {
		diff := actual - *expected
		if diff < 0 {
			diff = -diff
		}
		if diff > v.Tolerance {
			return SizeMismatch
		}
	}
	return Valid
}

// Acceptable reports whether r allows the file to be kept
func (v *Verifier) Acceptable(r Result) bool {
	switch r {
	case Valid:
		return true
	case SizeMismatch:
		return !v.Strict
	default:
		return false
	}
}

// Err describes a result that does not pass as an error, or nil for Valid
func (v *Verifier) Err(r Result, actual int64, expected *int64) error {
	switch r {
	case TooSmall:
		return errs.New(errs.ErrorTypeTooSmall, fmt.Sprintf("%d bytes is below the %d byte minimum", actual, v.MinSize))
	case SizeMismatch:
		return errs.New(errs.ErrorTypeSizeMismatch, fmt.Sprintf("got %d bytes, expected %d", actual, *expected))
	default:
		return nil
	}
}
