package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallharvest/pkg/config"
	errs "wallharvest/pkg/errors"
	"wallharvest/pkg/storage"
)

func size(n int64) *int64 { return &n }

func newVerifier(strict bool) *Verifier {
	cfg := config.DefaultConfig().Integrity
	cfg.Strict = strict
	return New(cfg, storage.NewManager())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		actual   int64
		expected *int64
		want     Result
	}{
		{"empty file", 0, nil, TooSmall},
		{"just below minimum", 9999, nil, TooSmall},
		{"small even when expected matches", 5000, size(5000), TooSmall},
		{"at minimum", 10000, nil, Valid},
		{"unknown expected size", 20000, nil, Valid},
		{"exact match", 15000, size(15000), Valid},
		{"within tolerance above", 16000, size(15000), Valid},
		{"within tolerance below", 14000, size(15000), Valid},
		{"mismatch above", 16001, size(15000), SizeMismatch},
		{"mismatch below", 13999, size(15000), SizeMismatch},
		{"expected much smaller", 50000, size(100), SizeMismatch},
	}

	v := newVerifier(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Classify(tt.actual, tt.expected))
		})
	}
}

func TestVerifyReadsFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a_b.jpg")
	require.NoError(t, os.WriteFile(path, make([]byte, 15000), 0644))

	v := newVerifier(false)
	res, actual, err := v.Verify(path, size(15000))
	require.NoError(t, err)
	assert.Equal(t, Valid, res)
	assert.Equal(t, int64(15000), actual)

	_, _, err = v.Verify(filepath.Join(dir, "missing.jpg"), nil)
	assert.Error(t, err)
}

func TestAcceptable(t *testing.T) {
	lenient := newVerifier(false)
	assert.True(t, lenient.Acceptable(Valid))
	assert.True(t, lenient.Acceptable(SizeMismatch))
	assert.False(t, lenient.Acceptable(TooSmall))

	strict := newVerifier(true)
	assert.True(t, strict.Acceptable(Valid))
	assert.False(t, strict.Acceptable(SizeMismatch))
	assert.False(t, strict.Acceptable(TooSmall))
}

func TestErr(t *testing.T) {
	v := newVerifier(false)

	assert.NoError(t, v.Err(Valid, 20000, nil))

	err := v.Err(TooSmall, 5000, nil)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTooSmall))
	assert.Contains(t, err.Error(), "5000")

	err = v.Err(SizeMismatch, 20000, size(15000))
	assert.True(t, errs.IsType(err, errs.ErrorTypeSizeMismatch))
	assert.Contains(t, err.Error(), "expected 15000")
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "too_small", TooSmall.String())
	assert.Equal(t, "size_mismatch", SizeMismatch.String())
}
