// Package lock keeps two deploys of the same project and environment from
// running on one host at the same time.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/rowjay/lily-delivery/internal/util"
)

type Lock struct {
	file *flock.Flock
}

// DefaultPath is the lock file used for project and environment when no
// lock_file is configured.
func DefaultPath(project, environment string) string {
	name := fmt.Sprintf("lily-delivery-%s-%s.lock", util.SanitizeName(project), util.SanitizeName(environment))
	return filepath.Join(os.TempDir(), name)
}

// Acquire takes the lock at path without waiting.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "lily-delivery.lock")
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("another deploy is already running (lock: %s)", path)
	}
	return &Lock{file: lock}, nil
}

func (l *Lock) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Path()
}

// Release frees the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Unlock()
}
