// Package downloader performs single, non-retrying transfers of remote assets to local files.
package downloader

import (
	"context"
	"io"

	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/logger"
	"wallharvest/pkg/storage"
)

// Transport streams the body at a URL into a sink
type Transport interface {
	StreamTo(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Downloader makes exactly one attempt per call
type Downloader struct {
	transport Transport
	store     *storage.Manager
	logger    logger.Logger
}

// New creates a Downloader writing through store
func New(transport Transport, store *storage.Manager, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Downloader{transport: transport, store: store, logger: log}
}

// DownloadOnce streams url into dest. On any failure nothing is left at dest
// and the returned error has type ErrorTypeDownload wrapping the cause.
// Success is reported only after the file is flushed, closed and in place.
func (d *Downloader) DownloadOnce(ctx context.Context, url, dest string) (int64, error) {
	sink, err := d.store.Create(dest)
	if err != nil {
		d.store.Remove(dest)
		return 0, errs.Wrap(errs.ErrorTypeDownload, "open sink", err)
	}

	n, err := d.transport.StreamTo(ctx, url, sink)
	if err != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			d.logger.WithError(abortErr).Warn("Failed to clean up partial download")
		}
		return 0, errs.Wrap(errs.ErrorTypeDownload, url, err)
	}

	if err := sink.Commit(); err != nil {
		if rmErr := d.store.Remove(dest); rmErr != nil {
			d.logger.WithError(rmErr).Warn("Failed to clean up download")
		}
		return 0, errs.Wrap(errs.ErrorTypeDownload, "finalize "+dest, err)
	}

	d.logger.DebugWithFields("Transfer complete", map[string]interface{}{
		"url":   url,
		"dest":  dest,
		"bytes": n,
	})
	return n, nil
}
