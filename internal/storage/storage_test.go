package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// newBackend constructs each driver against a temp directory.
func newBackend(t *testing.T, driver string) Backend {
	t.Helper()
	var path string
	switch driver {
	case DriverFile:
		path = filepath.Join(t.TempDir(), "settings.json")
	case DriverSQLite:
		path = filepath.Join(t.TempDir(), "settings.db")
	}
	backend, err := Open(driver, path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", driver, err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestBackendRoundTrip(t *testing.T) {
	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			backend := newBackend(t, driver)

			// Missing key
			_, ok, err := backend.Get("armode")
			if err != nil {
				t.Fatalf("Get on empty backend failed: %v", err)
			}
			if ok {
				t.Error("Expected missing key, got ok=true")
			}

			// Set and get
			if err := backend.Set("armode", []byte(`"oscp"`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			value, ok, err := backend.Get("armode")
			if err != nil || !ok {
				t.Fatalf("Get after Set: value=%s ok=%v err=%v", value, ok, err)
			}
			if string(value) != `"oscp"` {
				t.Errorf("Expected %q, got %q", `"oscp"`, value)
			}

			// Overwrite
			if err := backend.Set("armode", []byte(`"marker"`)); err != nil {
				t.Fatalf("Overwrite failed: %v", err)
			}
			value, _, _ = backend.Get("armode")
			if string(value) != `"marker"` {
				t.Errorf("Expected overwritten value, got %q", value)
			}

			// Keys are sorted
			if err := backend.Set("showdashboard", []byte(`true`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := backend.Set("allowp2pnetwork", []byte(`false`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			keys, err := backend.Keys()
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			want := []string{"allowp2pnetwork", "armode", "showdashboard"}
			if !reflect.DeepEqual(keys, want) {
				t.Errorf("Keys = %v, want %v", keys, want)
			}

			// Delete, including a missing key
			if err := backend.Delete("armode"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok, _ := backend.Get("armode"); ok {
				t.Error("Key still present after Delete")
			}
			if err := backend.Delete("never-existed"); err != nil {
				t.Errorf("Delete of missing key should not error: %v", err)
			}

			// Empty keys rejected
			if err := backend.Set("", []byte(`1`)); !errors.Is(err, ErrEmptyKey) {
				t.Errorf("Set with empty key: expected ErrEmptyKey, got %v", err)
			}
			if _, _, err := backend.Get(""); !errors.Is(err, ErrEmptyKey) {
				t.Errorf("Get with empty key: expected ErrEmptyKey, got %v", err)
			}
		})
	}
}

func TestBackendPersistence(t *testing.T) {
	cases := []struct {
		driver string
		file   string
	}{
		{DriverFile, "settings.json"},
		{DriverSQLite, "settings.db"},
	}

	for _, tc := range cases {
		t.Run(tc.driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)

			backend, err := Open(tc.driver, path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if err := backend.Set("currentmarkerimagewidth", []byte(`0.2`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := backend.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			reopened, err := Open(tc.driver, path)
			if err != nil {
				t.Fatalf("Reopen failed: %v", err)
			}
			defer reopened.Close()

			value, ok, err := reopened.Get("currentmarkerimagewidth")
			if err != nil || !ok {
				t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
			}
			if string(value) != `0.2` {
				t.Errorf("Expected 0.2, got %q", value)
			}
		})
	}
}

func TestMemoryNotPersistent(t *testing.T) {
	backend := NewMemory()
	if err := backend.Set("armode", []byte(`"dev"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, _, err := backend.Get("armode"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: expected ErrClosed, got %v", err)
	}
	if err := backend.Set("armode", []byte(`"oscp"`)); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close: expected ErrClosed, got %v", err)
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	backend := NewMemory()
	defer backend.Close()

	original := []byte(`"oscp"`)
	if err := backend.Set("armode", original); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	original[1] = 'X'

	value, _, _ := backend.Get("armode")
	if string(value) != `"oscp"` {
		t.Errorf("Stored value was mutated through caller slice: %q", value)
	}

	value[1] = 'Y'
	again, _, _ := backend.Get("armode")
	if string(again) != `"oscp"` {
		t.Errorf("Stored value was mutated through returned slice: %q", again)
	}
}

func TestFileRequiresJSON(t *testing.T) {
	backend := newBackend(t, DriverFile)

	err := backend.Set("armode", []byte("not json at all{"))
	if !errors.Is(err, ErrNotJSON) {
		t.Errorf("Expected ErrNotJSON, got %v", err)
	}
}

func TestFileDocumentReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	backend, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer backend.Close()

	if err := backend.Set("showdashboard", []byte(`true`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := backend.Set("armode", []byte(`"oscp"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read settings file: %v", err)
	}
	content := string(data)

	// Values appear as plain JSON, not as encoded strings
	if !strings.Contains(content, `"showdashboard": true`) {
		t.Errorf("Expected raw boolean in file, got:\n%s", content)
	}
	if !strings.Contains(content, `"armode": "oscp"`) {
		t.Errorf("Expected raw string in file, got:\n%s", content)
	}
	if !strings.Contains(content, `"version": "1.0"`) {
		t.Errorf("Expected version marker in file, got:\n%s", content)
	}
}

func TestFileCorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	if _, err := NewFile(path); err == nil {
		t.Error("Expected error opening corrupt settings file")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("redis", ""); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
