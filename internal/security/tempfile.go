package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

const (
	tempPrefix      = "legal_doc_"
	overwritePasses = 3
)

// CreateTempFile creates an empty, tracked temp file (mode 0600) and
// returns its path. The caller must release it with CleanupTempFiles.
func (s *Service) CreateTempFile(ext string) (string, error) {
	f, err := os.CreateTemp(s.opts.TempDir, tempPrefix+"*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	s.track(path)
	return path, nil
}

// WithTempFile writes data to a tracked temp file, calls fn with its path
// and securely deletes the file on every exit path.
func (s *Service) WithTempFile(data []byte, ext string, fn func(path string) error) error {
	path, err := s.CreateTempFile(ext)
	if err != nil {
		return err
	}
	defer s.CleanupTempFiles(path)

	if err := writeSynced(path, data); err != nil {
		return err
	}
	return fn(path)
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	return f.Close()
}

// CleanupTempFiles securely deletes the given tracked files, or every
// tracked file when none are given. It returns the number deleted.
func (s *Service) CleanupTempFiles(paths ...string) int {
	s.mu.Lock()
	if len(paths) == 0 {
		for p := range s.tempFiles {
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		delete(s.tempFiles, p)
	}
	s.mu.Unlock()

	n := 0
	for _, p := range paths {
		if err := SecureDelete(p); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.log.Warn("temp file cleanup failed", "path", p, "error", err)
			}
			continue
		}
		n++
	}
	return n
}

// TempFiles returns the number of tracked temp files.
func (s *Service) TempFiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tempFiles)
}

func (s *Service) track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempFiles[path] = s.now()
}

// sweepOrphans deletes tracked files older than TempFileMaxAge and
// forgets files that no longer exist.
func (s *Service) sweepOrphans(now time.Time) int {
	var stale []string
	s.mu.Lock()
	for p, created := range s.tempFiles {
		if now.Sub(created) > s.opts.TempFileMaxAge {
			stale = append(stale, p)
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			delete(s.tempFiles, p)
		}
	}
	s.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}
	return s.CleanupTempFiles(stale...)
}

// SecureDelete overwrites a file with random bytes several times, syncing
// after each pass, then removes it. The file is removed even when the
// overwrite fails.
func SecureDelete(path string) error {
	overwriteErr := overwrite(path)
	if err := os.Remove(path); err != nil {
		return err
	}
	if overwriteErr != nil {
		return fmt.Errorf("overwrite %s: %w", path, overwriteErr)
	}
	return nil
}

func overwrite(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	for range overwritePasses {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if _, err := io.CopyN(f, rand.Reader, size); err != nil {
			return err
		}
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return nil
}
