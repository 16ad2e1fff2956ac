// Package fileutil provides filesystem helpers for robust file operations:
// atomic replacement and advisory locking.
package fileutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic writes data to path atomically with the provided permissions.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomicFunc(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomicFunc replaces path with whatever write produces. The content
// goes to a temp file in the same directory which is fsynced and renamed
// over path, so readers see either the old file or the complete new one.
// If write fails, path is left untouched.
func WriteAtomicFunc(path string, perm os.FileMode, write func(io.Writer) error) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmpFile, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmpFile.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	bw := bufio.NewWriter(tmpFile)
	if err := write(bw); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing temp file: %w", err)
	}

	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	closed = true

	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path is validated by caller, not from user input
		return fmt.Errorf("renaming temp file: %w", err)
	}

	// Best effort directory sync for rename durability.
	if dirFile, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from validated path
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}

	return nil
}

// EnsureFile creates an empty file at path, and its parent directories,
// if it does not exist yet. Existing files are left as they are.
func EnsureFile(path string, dirPerm, filePerm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	//nolint:gosec // G304: path is from validated config
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, filePerm)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	return f.Close()
}
