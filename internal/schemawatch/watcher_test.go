package schemawatch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func setupFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.graphqls")
	if err := os.WriteFile(path, []byte("type Query { a: String }"), 0644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}
	return path
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := setupFile(t)

	var reloads atomic.Int32
	w, err := Watch(path, func(context.Context) error {
		reloads.Add(1)
		return nil
	}, WithLogger(log.New(io.Discard)), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	// Several quick writes collapse into one reload.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("type Query { b: String }"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return reloads.Load() >= 1 })
	time.Sleep(100 * time.Millisecond)
	if got := reloads.Load(); got != 1 {
		t.Errorf("reloads = %d, want 1", got)
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	path := setupFile(t)

	var reloads atomic.Int32
	w, err := Watch(path, func(context.Context) error {
		reloads.Add(1)
		return nil
	}, WithLogger(log.New(io.Discard)), WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	other := filepath.Join(filepath.Dir(path), "notes.txt")
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := reloads.Load(); got != 0 {
		t.Errorf("reloads = %d, want 0", got)
	}
}

func TestWatchSurvivesReloadErrors(t *testing.T) {
	path := setupFile(t)

	var reloads atomic.Int32
	w, err := Watch(path, func(context.Context) error {
		reloads.Add(1)
		return errors.New("bad schema")
	}, WithLogger(log.New(io.Discard)), WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return reloads.Load() == 1 })

	if err := os.WriteFile(path, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return reloads.Load() == 2 })
}

func TestWatchMissingDirectory(t *testing.T) {
	_, err := Watch(filepath.Join(t.TempDir(), "nope", "schema.graphqls"), func(context.Context) error { return nil })
	if err == nil {
		t.Error("Watch() error = nil, want error for a missing directory")
	}
}

func TestCloseIdempotent(t *testing.T) {
	w, err := Watch(setupFile(t), func(context.Context) error { return nil }, WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestReloadIsBoundedByTimeout(t *testing.T) {
	path := setupFile(t)

	var finished atomic.Int32
	w, err := Watch(path, func(ctx context.Context) error {
		<-ctx.Done()
		finished.Add(1)
		return ctx.Err()
	}, WithLogger(log.New(io.Discard)), WithDebounce(10*time.Millisecond), WithReloadTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("type Query { b: String }"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return finished.Load() >= 1 })
}

func TestCloseCancelsRunningReload(t *testing.T) {
	path := setupFile(t)

	started := make(chan struct{}, 1)
	w, err := Watch(path, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}, WithLogger(log.New(io.Discard)), WithDebounce(10*time.Millisecond), WithReloadTimeout(time.Hour))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("type Query { b: String }"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("reload did not start")
	}

	closed := make(chan struct{})
	go func() {
		_ = w.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() blocked on a running reload")
	}
}
