package streaming

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile buffers writes into a temp file next to the destination and
// renames it into place on Commit, so readers never observe a partial file.
type AtomicFile struct {
	*bufio.Writer
	f    *os.File
	path string
	done bool
}

// CreateAtomic opens a temp file in path's directory, creating the directory
// if needed.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return &AtomicFile{Writer: bufio.NewWriter(f), f: f, path: path}, nil
}

// Commit flushes, syncs and renames the temp file onto the destination.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true
	tmp := a.f.Name()
	if err := a.Flush(); err != nil {
		a.f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", a.path, err)
	}
	if err := a.f.Sync(); err != nil {
		a.f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", a.path, err)
	}
	if err := a.f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", a.path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", a.path, err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("moving %s into place: %w", a.path, err)
	}
	return nil
}

// Abort discards the temp file. It is safe to call after Commit.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.f.Close()
	os.Remove(a.f.Name())
}
