// Package storage provides the persistence backends for sparcl settings.
// A Backend is a flat key-value store; the state layer encodes values as
// JSON before handing them down. Three drivers are available: memory
// (tests, throwaway sessions), file (human-editable .sparcl/settings.json)
// and sqlite (shared or larger installations).
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/spiritoftheplace/sparcl/internal/logging"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

var (
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage: backend closed")

	// ErrEmptyKey is returned when a key is the empty string.
	ErrEmptyKey = errors.New("storage: empty key")

	// ErrNotJSON is returned by the file backend for values that are not
	// valid JSON. The settings file stays human-editable that way.
	ErrNotJSON = errors.New("storage: file backend requires JSON values")
)

// Backend is a flat key-value store for persisted settings.
type Backend interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool, error)

	// Set stores a value under key, overwriting any previous value.
	Set(key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns all stored keys in sorted order.
	Keys() ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Watchable is implemented by backends that can report external changes
// to their underlying storage, such as the settings file being edited.
type Watchable interface {
	StartWatch(ctx context.Context, onChange func()) error
	StopWatch()
}

// Open creates a backend for the given driver name.
// The path is ignored by the memory driver.
func Open(driver, path string) (Backend, error) {
	timer := logging.StartTimer(logging.CategoryStorage, "Open")
	defer timer.Stop()

	var (
		backend Backend
		err     error
	)
	switch driver {
	case DriverMemory:
		backend = NewMemory()
	case DriverFile:
		backend, err = NewFile(path)
	case DriverSQLite:
		backend, err = NewSQLite(path)
	default:
		err = fmt.Errorf("storage: unknown driver %q", driver)
	}

	logging.Events().BackendOp(logging.EventBackendOpen, driver, err)
	if err != nil {
		return nil, err
	}
	logging.Storage("Opened %s backend at %s", driver, path)
	return backend, nil
}
