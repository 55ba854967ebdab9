package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	errs "wallharvest/pkg/errors"
)

// PartialSuffix marks files that are still being written
const PartialSuffix = ".part"

// Manager is the local filesystem collaborator of the pipeline
type Manager struct {
	fs       afero.Fs
	dirPerm  fs.FileMode
	filePerm fs.FileMode
}

// NewManager creates a storage manager on the operating system filesystem
func NewManager() *Manager {
	return NewManagerWithFs(afero.NewOsFs())
}

// NewManagerWithFs creates a storage manager on fsys
func NewManagerWithFs(fsys afero.Fs) *Manager {
	return &Manager{fs: fsys, dirPerm: 0755, filePerm: 0644}
}

// Exists reports whether a regular file is present at path
func (m *Manager) Exists(path string) bool {
	info, err := m.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the size in bytes of the file at path
func (m *Manager) Size(path string) (int64, error) {
	info, err := m.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Remove deletes path. A missing file is not an error.
func (m *Manager) Remove(path string) error {
	if err := m.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates dir and its parents. It is idempotent.
func (m *Manager) EnsureDir(dir string) error {
	if err := m.fs.MkdirAll(dir, m.dirPerm); err != nil {
		return errs.Wrap(errs.ErrorTypeDirectoryCreate, dir, err)
	}
	return nil
}

// SweepPartials removes leftover partial files in dir from interrupted runs
// and returns how many were removed.
func (m *Manager) SweepPartials(dir string) (int, error) {
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), PartialSuffix) {
			continue
		}
		if err := m.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Create opens a write sink for path. Bytes land in path+PartialSuffix
// and only appear at path after Commit.
func (m *Manager) Create(path string) (*PartialFile, error) {
	temp := path + PartialSuffix
	f, err := m.fs.OpenFile(temp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, m.filePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	return &PartialFile{fs: m.fs, f: f, path: path, temp: temp}, nil
}

// PartialFile is a write sink that is either committed to its final
// path or aborted, leaving nothing behind.
type PartialFile struct {
	fs      afero.Fs
	f       afero.File
	path    string
	temp    string
	written int64
	done    bool
}

// Write implements io.Writer
func (p *PartialFile) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	p.written += int64(n)
	return n, err
}

// Written returns the number of bytes written so far
func (p *PartialFile) Written() int64 {
	return p.written
}

// Commit flushes and closes the sink, then renames it into place
func (p *PartialFile) Commit() error {
	if p.done {
		return fmt.Errorf("sink for %s already finished", p.path)
	}
	p.done = true

	syncErr := p.f.Sync()
	closeErr := p.f.Close()
	if syncErr != nil || closeErr != nil {
		p.fs.Remove(p.temp)
		if syncErr != nil {
			return fmt.Errorf("failed to flush file: %w", syncErr)
		}
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := p.fs.Rename(p.temp, p.path); err != nil {
		p.fs.Remove(p.temp)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Abort closes the sink and removes both the partial file and any file
// already at the destination path.
func (p *PartialFile) Abort() error {
	if !p.done {
		p.done = true
		p.f.Close()
	}
	if err := p.fs.Remove(p.temp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	if err := p.fs.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", p.path, err)
	}
	return nil
}
