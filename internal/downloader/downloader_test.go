package downloader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallharvest/pkg/config"
	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/logger"
	"wallharvest/pkg/storage"
)

func newTransport() *HTTPTransport {
	cfg := config.DefaultConfig().Download
	cfg.Timeout = 5 * time.Second
	return NewHTTPTransport(cfg, logger.NewNopLogger())
}

func imageServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image/ok.jpg":
			assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			if r.Method == http.MethodGet {
				w.Write(body)
			}
		case "/image/empty-head.jpg":
			w.Header().Set("Content-Length", "0")
			if r.Method == http.MethodGet {
				w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				w.Write(body)
			}
		case "/image/missing.jpg":
			http.NotFound(w, r)
		case "/image/broken.jpg":
			w.WriteHeader(http.StatusBadGateway)
		case "/image/throttled.jpg":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/image/truncated.jpg":
			w.Header().Set("Content-Length", "50000")
			w.Write(body[:100])
		case "/image/chunked.jpg":
			w.(http.Flusher).Flush()
			w.Write(body)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamTo(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 20000)
	srv := imageServer(t, body)
	tr := newTransport()

	var buf bytes.Buffer
	n, err := tr.StreamTo(context.Background(), srv.URL+"/image/ok.jpg", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), n)
	assert.Equal(t, body, buf.Bytes())

	buf.Reset()
	n, err = tr.StreamTo(context.Background(), srv.URL+"/image/chunked.jpg", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), n)
}

func TestStreamToStatusErrors(t *testing.T) {
	srv := imageServer(t, make([]byte, 200))
	tr := newTransport()

	tests := []struct {
		path     string
		wantType errs.ErrorType
		wantCode int
	}{
		{"/image/missing.jpg", errs.ErrorTypeNotFound, 404},
		{"/image/broken.jpg", errs.ErrorTypeServerError, 502},
		{"/image/throttled.jpg", errs.ErrorTypeRateLimit, 429},
		{"/image/private.jpg", errs.ErrorTypeAuth, 403},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := tr.StreamTo(context.Background(), srv.URL+tt.path, io.Discard)
			require.Error(t, err)
			var typed *errs.Error
			require.True(t, errors.As(err, &typed))
			assert.Equal(t, tt.wantType, typed.Type)
			assert.Equal(t, tt.wantCode, typed.Code)
		})
	}
}

func TestStreamToTruncatedBody(t *testing.T) {
	srv := imageServer(t, make([]byte, 200))
	_, err := newTransport().StreamTo(context.Background(), srv.URL+"/image/truncated.jpg", io.Discard)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
}

func TestStreamToUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTransport().StreamTo(context.Background(), url+"/image/ok.jpg", io.Discard)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
}

func TestProbeSize(t *testing.T) {
	srv := imageServer(t, make([]byte, 15000))
	tr := newTransport()

	size, err := tr.ProbeSize(context.Background(), srv.URL+"/image/ok.jpg")
	require.NoError(t, err)
	require.NotNil(t, size)
	assert.Equal(t, int64(15000), *size)

	_, err = tr.ProbeSize(context.Background(), srv.URL+"/image/missing.jpg")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
}

func TestProbeSizeZeroLengthIsUnknown(t *testing.T) {
	srv := imageServer(t, make([]byte, 50000))
	tr := newTransport()

	size, err := tr.ProbeSize(context.Background(), srv.URL+"/image/empty-head.jpg")
	require.NoError(t, err)
	assert.Nil(t, size, "a zero length must not become an expected size")
}

func TestDownloadOnce(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 20000)
	srv := imageServer(t, body)
	dir := t.TempDir()
	d := New(newTransport(), storage.NewManager(), logger.NewNopLogger())

	dest := filepath.Join(dir, "ok.jpg")
	n, err := d.DownloadOnce(context.Background(), srv.URL+"/image/ok.jpg", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.NoFileExists(t, dest+storage.PartialSuffix)
}

func TestDownloadOnceCleansUpOnFailure(t *testing.T) {
	srv := imageServer(t, make([]byte, 200))
	dir := t.TempDir()
	d := New(newTransport(), storage.NewManager(), nil)

	for _, name := range []string{"missing.jpg", "truncated.jpg", "broken.jpg"} {
		t.Run(name, func(t *testing.T) {
			dest := filepath.Join(dir, name)
			// A stale file at the destination is removed as well
			require.NoError(t, os.WriteFile(dest, []byte("stale"), 0644))

			n, err := d.DownloadOnce(context.Background(), srv.URL+"/image/"+name, dest)
			require.Error(t, err)
			assert.Zero(t, n)
			assert.True(t, errs.IsType(err, errs.ErrorTypeDownload))
			assert.NoFileExists(t, dest)
			assert.NoFileExists(t, dest+storage.PartialSuffix)
		})
	}
}

type failingTransport struct {
	written int
	err     error
}

func (f *failingTransport) StreamTo(ctx context.Context, url string, w io.Writer) (int64, error) {
	n, _ := w.Write(make([]byte, f.written))
	return int64(n), f.err
}

func TestDownloadOnceWrapsCause(t *testing.T) {
	dir := t.TempDir()
	cause := errors.New("connection reset by peer")
	d := New(&failingTransport{written: 4096, err: cause}, storage.NewManager(), nil)

	dest := filepath.Join(dir, "a_b.jpg")
	_, err := d.DownloadOnce(context.Background(), "https://example.test/image/a_b.jpg", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+storage.PartialSuffix)
}

func TestDownloadOnceUnwritableDirectory(t *testing.T) {
	d := New(&failingTransport{}, storage.NewManager(), nil)
	dest := filepath.Join(t.TempDir(), "no", "such", "dir", "a.jpg")

	_, err := d.DownloadOnce(context.Background(), "https://example.test/a.jpg", dest)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeDownload))
}

func TestDownloadOnceCancelled(t *testing.T) {
	srv := imageServer(t, make([]byte, 20000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "ok.jpg")
	_, err := New(newTransport(), storage.NewManager(), nil).DownloadOnce(ctx, srv.URL+"/image/ok.jpg", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, dest)
}
