package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// TestFileWatchPicksUpExternalEdit verifies that an edit made behind the
// backend's back is reloaded and reported.
func TestFileWatchPicksUpExternalEdit(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "settings.json")
	backend, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer backend.Close()

	if err := backend.Set("armode", []byte(`"oscp"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	changed := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := backend.StartWatch(ctx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("StartWatch failed: %v", err)
	}

	// Simulate a hand edit of the settings file
	edited := `{
  "version": "1.0",
  "settings": {
    "armode": "marker",
    "showdashboard": false
  }
}`
	if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
		t.Fatalf("Failed to rewrite settings file: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for watch callback")
	}

	value, ok, err := backend.Get("armode")
	if err != nil || !ok {
		t.Fatalf("Get after reload: ok=%v err=%v", ok, err)
	}
	if string(value) != `"marker"` {
		t.Errorf("Expected reloaded value %q, got %q", `"marker"`, value)
	}

	value, ok, err = backend.Get("showdashboard")
	if err != nil || !ok {
		t.Fatalf("Get of new key after reload: ok=%v err=%v", ok, err)
	}
	if string(value) != `false` {
		t.Errorf("Expected %q, got %q", `false`, value)
	}

	stats := backend.Stats()
	if stats.Reloads == 0 {
		t.Error("Expected at least one reload in stats")
	}

	backend.StopWatch()
}

// TestFileWatchStartStop verifies repeated start/stop is safe.
func TestFileWatchStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "settings.json")
	backend, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if err := backend.StartWatch(ctx, nil); err != nil {
		t.Fatalf("StartWatch failed: %v", err)
	}
	// Second start is a no-op
	if err := backend.StartWatch(ctx, nil); err != nil {
		t.Fatalf("Second StartWatch should be a no-op: %v", err)
	}

	backend.StopWatch()
	// Second stop is a no-op
	backend.StopWatch()

	// Watch can be restarted after a stop
	if err := backend.StartWatch(ctx, nil); err != nil {
		t.Fatalf("Restart after stop failed: %v", err)
	}
	backend.StopWatch()
}
