// Package logger provides the structured logging interface used across wallharvest.
//
// It wraps zerolog with a small Logger interface. Console output is human-readable
// and uncolored when stderr is not a terminal. A JSON file sink can be added with
// logging.file. Every entry of a run carries its run_id.
//
// Loggers are passed explicitly; there is no package-level instance.
//
//	log, err := logger.New(&cfg.Logging, logger.Options{RunID: runID})
//	log.WithField("collection", "nature").Info("Collection started")
//
// Tests use NewNopLogger, or NewTestLogger to assert on captured entries.
package logger
