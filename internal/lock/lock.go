// Package lock keeps a single chat UI per profile. The holder writes its pid,
// program name and start time so other tools can report who owns the profile.
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

// FileName is the lock file created inside the profile directory.
const FileName = "schoolchat.lock"

// Holder describes the process owning a profile lock.
type Holder struct {
	PID   int
	Owner string
	Since time.Time
}

// HeldError is returned when another process holds the profile lock.
type HeldError struct {
	Holder
	Path string
}

func (e *HeldError) Error() string {
	owner := e.Owner
	if owner == "" {
		owner = "another process"
	}
	return fmt.Sprintf("profile in use by %s (pid %d, %s)", owner, e.PID, e.Path)
}

// Lock is an acquired profile lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock on dir for owner.
func Acquire(dir, owner string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		h, _ := Read(dir)
		return nil, &HeldError{Holder: h, Path: path}
	}

	h := Holder{PID: os.Getpid(), Owner: owner, Since: time.Now().UTC()}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.WriteAt([]byte(h.encode()), 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{file: f, path: path}, nil
}

// Read returns the holder recorded in dir. A missing file yields the zero
// Holder and no error.
func Read(dir string) (Holder, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Holder{}, nil
	}
	if err != nil {
		return Holder{}, err
	}
	return decode(string(data)), nil
}

// Release drops the lock and removes the file. Safe on a nil receiver and
// when called twice.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

func (h Holder) encode() string {
	return fmt.Sprintf("pid=%d\nowner=%s\nsince=%s\n", h.PID, h.Owner, h.Since.Format(time.RFC3339))
}

func decode(content string) Holder {
	var h Holder
	for line := range strings.SplitSeq(content, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "owner":
			h.Owner = value
		case "since":
			h.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h
}
