package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileSink writes a document to a temp file next to its target while holding
// an exclusive lock on "<target>.lock". Commit renames the temp file over the
// target; Abort discards it. Readers never observe a partial document.
type FileSink struct {
	path string
	tmp  *os.File
	lock *flock.Flock
	done bool
}

// CreateFile locks path and opens the temp file. It blocks while another
// process holds the lock.
func CreateFile(path string) (*FileSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &FileSink{path: path, tmp: tmp, lock: lock}, nil
}

// Path returns the target path.
func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) Write(p []byte) (int, error) {
	return s.tmp.Write(p)
}

// Commit syncs the temp file, renames it over the target and releases the
// lock.
func (s *FileSink) Commit() error {
	if s.done {
		return nil
	}
	s.done = true

	err := s.tmp.Sync()
	err = errors.Join(err, s.tmp.Close())
	if err == nil {
		err = os.Chmod(s.tmp.Name(), 0o644)
	}
	if err == nil {
		if err = os.Rename(s.tmp.Name(), s.path); err != nil {
			err = fmt.Errorf("failed to rename temp file to %s: %w", s.path, err)
		}
	}
	if err != nil {
		_ = os.Remove(s.tmp.Name())
	}
	return errors.Join(err, s.unlock())
}

// Abort removes the temp file and releases the lock. The target is left
// untouched. Calling Abort after Commit is a no-op.
func (s *FileSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	_ = s.tmp.Close()
	err := os.Remove(s.tmp.Name())
	return errors.Join(err, s.unlock())
}

func (s *FileSink) unlock() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", s.path, err)
	}
	return nil
}
