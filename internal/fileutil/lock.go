package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileLock is an advisory lock held on a lock file. It coordinates
// processes sharing a data file; goroutines in one process still need
// their own mutex.
type FileLock struct {
	f *os.File
}

// Lock blocks until it holds the lock on path, creating the lock file if
// needed. exclusive selects a writer lock; otherwise the lock is shared.
func Lock(path string, exclusive bool) (*FileLock, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	//nolint:gosec // G304: lock path is derived from the configured store path
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := lockFile(f, exclusive); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}

	return &FileLock{f: f}, nil
}

// Unlock releases the lock. It is safe to call on a nil lock.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return closeErr
}
