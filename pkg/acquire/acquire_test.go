package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallharvest/pkg/config"
	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/logger"
	"wallharvest/pkg/storage"
	"wallharvest/pkg/verify"
)

// scriptedDownloader writes sizes[i] bytes on call i, or fails when the size is negative.
// Calls beyond the script repeat the last entry.
type scriptedDownloader struct {
	sizes []int
	calls int
	urls  []string
}

func (s *scriptedDownloader) DownloadOnce(ctx context.Context, url, dest string) (int64, error) {
	s.calls++
	s.urls = append(s.urls, url)
	i := s.calls - 1
	if i >= len(s.sizes) {
		i = len(s.sizes) - 1
	}
	size := s.sizes[i]
	if size < 0 {
		return 0, errs.Wrap(errs.ErrorTypeDownload, url, errors.New("connection reset"))
	}
	if err := os.WriteFile(dest, make([]byte, size), 0644); err != nil {
		return 0, err
	}
	return int64(size), nil
}

// leakyDownloader fails but leaves a partial file behind
type leakyDownloader struct{ calls int }

func (l *leakyDownloader) DownloadOnce(ctx context.Context, url, dest string) (int64, error) {
	l.calls++
	os.WriteFile(dest, []byte("partial"), 0644)
	return 0, errs.New(errs.ErrorTypeDownload, "stream aborted")
}

func expected(n int64) *int64 { return &n }

func newAcquirer(d Downloader, strict bool) *Acquirer {
	integrity := config.DefaultConfig().Integrity
	integrity.Strict = strict
	store := storage.NewManager()
	return New(d, store, verify.New(integrity, store), logger.NewNopLogger())
}

func target() Target {
	return Target{SourceURL: "https://example.test/image/a_b.jpg", LocalFilename: "a_b.jpg"}
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func TestAcquireTooSmallThenValid(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &scriptedDownloader{sizes: []int{5000, 20000}}

	out := newAcquirer(d, false).Acquire(context.Background(), target(), dest, Policy{MaxAttempts: 3, RetryDelay: 0})

	assert.Equal(t, Downloaded, out.Kind)
	assert.Equal(t, 2, d.calls)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, int64(20000), out.Bytes)
	assert.Equal(t, int64(20000), fileSize(t, dest))
	assert.Equal(t, verify.Valid, out.Verification)
}

func TestAcquireSkipsValidExistingFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	require.NoError(t, os.WriteFile(dest, make([]byte, 15000), 0644))
	d := &scriptedDownloader{sizes: []int{20000}}

	tg := target()
	tg.ExpectedSize = expected(15000)
	out := newAcquirer(d, false).Acquire(context.Background(), tg, dest, Policy{MaxAttempts: 3})

	assert.Equal(t, Skipped, out.Kind)
	assert.Equal(t, ReasonAlreadyExists, out.Reason)
	assert.Zero(t, d.calls)
	assert.Equal(t, int64(15000), fileSize(t, dest))
}

func TestAcquireIsIdempotent(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &scriptedDownloader{sizes: []int{30000}}
	a := newAcquirer(d, false)
	policy := Policy{MaxAttempts: 5}

	first := a.Acquire(context.Background(), target(), dest, policy)
	require.Equal(t, Downloaded, first.Kind)
	require.Equal(t, 1, d.calls)

	second := a.Acquire(context.Background(), target(), dest, policy)
	assert.Equal(t, Skipped, second.Kind)
	assert.Equal(t, ReasonAlreadyExists, second.Reason)
	assert.Equal(t, 1, d.calls, "second acquisition must not transfer")
}

func TestAcquireRetryBound(t *testing.T) {
	for _, maxAttempts := range []int{1, 3, 7} {
		t.Run("", func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "a_b.jpg")
			d := &scriptedDownloader{sizes: []int{-1}}

			out := newAcquirer(d, false).Acquire(context.Background(), target(), dest, Policy{MaxAttempts: maxAttempts})

			assert.Equal(t, Failed, out.Kind)
			assert.Equal(t, maxAttempts, d.calls)
			assert.Equal(t, maxAttempts, out.Attempts)
			assert.True(t, errs.IsType(out.Err, errs.ErrorTypeDownload))
			assert.NoFileExists(t, dest)
		})
	}
}

func TestAcquireAlwaysTooSmallLeavesNothing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &scriptedDownloader{sizes: []int{512}}

	out := newAcquirer(d, false).Acquire(context.Background(), target(), dest, Policy{MaxAttempts: 4})

	assert.Equal(t, Failed, out.Kind)
	assert.Equal(t, 4, d.calls)
	assert.True(t, errs.IsType(out.Err, errs.ErrorTypeTooSmall))
	assert.NoFileExists(t, dest)
}

func TestAcquireRecoversOnThirdAttempt(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &scriptedDownloader{sizes: []int{-1, -1, 25000}}

	out := newAcquirer(d, false).Acquire(context.Background(), target(), dest, Policy{MaxAttempts: 20})

	assert.Equal(t, Downloaded, out.Kind)
	assert.Equal(t, 3, d.calls)
	assert.Equal(t, int64(25000), fileSize(t, dest))
}

func TestAcquireCleansUpAfterLeakyDownloader(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &leakyDownloader{}

	out := newAcquirer(d, false).Acquire(context.Background(), target(), dest, Policy{MaxAttempts: 2})

	assert.Equal(t, Failed, out.Kind)
	assert.Equal(t, 2, d.calls)
	assert.NoFileExists(t, dest)
}

func TestAcquireReplacesTooSmallExistingFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	require.NoError(t, os.WriteFile(dest, []byte("<html>error</html>"), 0644))
	d := &scriptedDownloader{sizes: []int{40000}}

	out := newAcquirer(d, false).Acquire(context.Background(), target(), dest, Policy{MaxAttempts: 3})

	assert.Equal(t, Downloaded, out.Kind)
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, int64(40000), fileSize(t, dest))
}

func TestAcquireSizeMismatchIsAdvisory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &scriptedDownloader{sizes: []int{20000}}
	log := logger.NewTestLogger()
	integrity := config.DefaultConfig().Integrity
	store := storage.NewManager()
	a := New(d, store, verify.New(integrity, store), log)

	tg := target()
	tg.ExpectedSize = expected(50000)
	out := a.Acquire(context.Background(), tg, dest, Policy{MaxAttempts: 3})

	assert.Equal(t, Downloaded, out.Kind)
	assert.Equal(t, verify.SizeMismatch, out.Verification)
	assert.Equal(t, 1, d.calls)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)

	// A mismatching file on disk is kept in lenient mode
	again := a.Acquire(context.Background(), tg, dest, Policy{MaxAttempts: 3})
	assert.Equal(t, Skipped, again.Kind)
	assert.Equal(t, 1, d.calls)
}

func TestAcquireStrictSizeMismatch(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	require.NoError(t, os.WriteFile(dest, make([]byte, 20000), 0644))
	d := &scriptedDownloader{sizes: []int{20000, 50000}}

	tg := target()
	tg.ExpectedSize = expected(50000)
	out := newAcquirer(d, true).Acquire(context.Background(), tg, dest, Policy{MaxAttempts: 3})

	assert.Equal(t, Downloaded, out.Kind)
	assert.Equal(t, 2, d.calls)
	assert.Equal(t, verify.Valid, out.Verification)
	assert.Equal(t, int64(50000), fileSize(t, dest))
}

func TestAcquireWaitsBetweenAttempts(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &scriptedDownloader{sizes: []int{-1, -1, 20000}}

	start := time.Now()
	out := newAcquirer(d, false).Acquire(context.Background(), target(), dest, Policy{MaxAttempts: 3, RetryDelay: 20 * time.Millisecond})

	assert.Equal(t, Downloaded, out.Kind)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAcquireCancelled(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a_b.jpg")
	d := &scriptedDownloader{sizes: []int{-1}}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out := newAcquirer(d, false).Acquire(ctx, target(), dest, Policy{MaxAttempts: 20, RetryDelay: time.Minute})

	assert.Equal(t, Failed, out.Kind)
	assert.Equal(t, 1, d.calls)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.NoFileExists(t, dest)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "downloaded", Downloaded.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "failed", Failed.String())
}
