package uploader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStopFileWatchClosesWhenFileCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop")

	sf, err := NewStopFile(path)
	if err != nil {
		t.Fatalf("new stop file: %v", err)
	}
	defer sf.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stopped := sf.Watch(ctx)

	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-stopped:
	case <-ctx.Done():
		t.Fatal("timed out waiting for stop signal")
	}
}

func TestStopFileWatchReturnsImmediatelyIfAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop")
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	sf, err := NewStopFile(path)
	if err != nil {
		t.Fatalf("new stop file: %v", err)
	}
	defer sf.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	select {
	case <-sf.Watch(ctx):
	case <-ctx.Done():
		t.Fatal("expected immediate stop signal for pre-existing file")
	}
}

func TestStopFileClearRemovesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop")
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	sf, err := NewStopFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer sf.Close()

	if err := sf.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
}
