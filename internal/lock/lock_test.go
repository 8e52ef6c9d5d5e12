package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRecordsHolder(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "schoolchat")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = l.Release() }()

	h, err := Read(dir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if h.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", h.PID, os.Getpid())
	}
	if h.Owner != "schoolchat" {
		t.Errorf("Owner = %q, want schoolchat", h.Owner)
	}
	if h.Since.IsZero() {
		t.Error("Since is zero")
	}
}

func TestSecondAcquireReportsHolder(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir, "schoolchat")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(dir, "schoolchat")
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected HeldError, got %T: %v", err, err)
	}
	if held.PID != os.Getpid() || held.Owner != "schoolchat" {
		t.Errorf("holder = %+v", held.Holder)
	}
	if held.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", held.Path)
	}
}

func TestReleaseRemovesFile(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "schoolchat")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	h, err := Read(dir)
	if err != nil || h.PID != 0 {
		t.Errorf("Read() after release = %+v, %v", h, err)
	}

	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestDecodeIgnoresJunk(t *testing.T) {
	h := decode("garbage\npid=42\nowner=schoolchat\nsince=not-a-time\n")
	if h.PID != 42 || h.Owner != "schoolchat" || !h.Since.IsZero() {
		t.Errorf("decode() = %+v", h)
	}
}
