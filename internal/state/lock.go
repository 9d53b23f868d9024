package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// staleLockAge is how old a lock file must be before it is considered
// abandoned and taken over.
const staleLockAge = 10 * time.Minute

// Lock acquires a file lock on the state to prevent concurrent
// modifications from the same host.
func (s *FileStore) Lock() error {
	lockPath := s.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) > staleLockAge {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("state is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", lockPath)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

// Unlock releases the state lock.
func (s *FileStore) Unlock() error {
	if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (s *FileStore) lockPath() string {
	return s.path + ".lock"
}
