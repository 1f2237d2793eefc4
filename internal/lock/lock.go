// Package lock keeps a single daemon per session directory and per data
// directory, so only one process ever rewrites the JSON collections.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file inside the session directory.
const FileName = "LOCK"

// HeldError is returned when another process holds the session lock.
type HeldError struct {
	PID  int
	Path string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("lock held by PID %d (%s)", e.PID, e.Path)
}

// Lock is an acquired lock, possibly spanning several directories.
type Lock struct {
	file *os.File
	path string
	next *Lock
}

// AcquireAll locks every directory in order. Repeated directories are
// locked once. On failure the locks already taken are released.
func AcquireAll(dirs ...string) (*Lock, error) {
	var (
		head, tail *Lock
		seen       = make(map[string]bool, len(dirs))
	)
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		l, err := Acquire(dir)
		if err != nil {
			_ = head.Release()
			return nil, err
		}
		if head == nil {
			head = l
		} else {
			tail.next = l
		}
		tail = l
	}
	return head, nil
}

// Acquire takes the exclusive lock on sessionDir, creating it if needed.
func Acquire(sessionDir string) (*Lock, error) {
	lockPath := filepath.Join(sessionDir, FileName)

	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		pid, _ := ReadHolder(sessionDir)
		return nil, &HeldError{PID: pid, Path: lockPath}
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteAt([]byte(content), 0); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath}, nil
}

// Path returns the first lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock in every directory it holds. Safe on a nil or
// released lock.
func (l *Lock) Release() error {
	var errs []error
	for ; l != nil; l = l.next {
		if l.file == nil {
			continue
		}
		_ = os.Remove(l.path)
		errs = append(errs, l.file.Close())
		l.file = nil
	}
	return errors.Join(errs...)
}

// ReadHolder returns the pid recorded in sessionDir's lock file, or 0 when
// there is none.
func ReadHolder(sessionDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		if after, ok := strings.CutPrefix(line, "pid="); ok {
			pid, _ := strconv.Atoi(after)
			return pid, nil
		}
	}
	return 0, nil
}
