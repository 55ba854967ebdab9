package logger

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	errs "wallharvest/pkg/errors"
)

// LogAcquisition logs the terminal outcome of one target
func LogAcquisition(log Logger, collection, filename, outcome string, attempts int, bytes int64, err error) {
	l := log.WithFields(map[string]interface{}{
		"collection": collection,
		"file":       filename,
		"outcome":    outcome,
		"attempts":   attempts,
	})

	switch outcome {
	case "downloaded":
		l.WithField("size", humanize.Bytes(uint64(bytes))).Info("Downloaded")
	case "failed":
		l = l.WithField("error_type", string(errs.TypeOf(err)))
		if cause, ok := errs.TransportCause(err); ok {
			l = l.WithField("transport_error", string(cause))
		}
		l.WithError(err).Error("Acquisition failed")
	default:
		if err != nil {
			l.WithError(err).Warn("Skipped")
			return
		}
		l.Debug("Skipped")
	}
}

// LogCollectionReport logs the final tally of one collection
func LogCollectionReport(log Logger, collection, dir string, downloaded, skipped, failed int, elapsed time.Duration) {
	log.InfoWithFields("Collection finished", map[string]interface{}{
		"collection": collection,
		"directory":  dir,
		"downloaded": downloaded,
		"skipped":    skipped,
		"failed":     failed,
		"elapsed":    elapsed.Round(time.Millisecond),
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, config map[string]interface{}) {
	l := log.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(log Logger, component string, reason string) {
	log.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
