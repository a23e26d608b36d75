package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	json "github.com/goccy/go-json"

	"github.com/spiritoftheplace/sparcl/internal/logging"
)

// settingsFile is the on-disk document. Values are stored as raw JSON so
// the file reads like the settings themselves, not like encoded blobs.
type settingsFile struct {
	Version  string                     `json:"version"`
	Settings map[string]json.RawMessage `json:"settings"`
}

const settingsFileVersion = "1.0"

// File is a write-through backend persisting to a single JSON file,
// by default .sparcl/settings.json. The file is meant to be edited by
// hand; StartWatch picks up external edits.
type File struct {
	mu     sync.Mutex
	path   string
	data   map[string][]byte
	closed bool

	// Watch state
	watcher     *fsnotify.Watcher
	onChange    func()
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	watching    bool

	stats WatchStats
}

// WatchStats tracks watcher activity for debugging and tests.
type WatchStats struct {
	Events        int
	Reloads       int
	Errors        int
	LastEventTime time.Time
}

// NewFile creates a file backend at path, loading any existing content.
// A missing file is not an error; it is created on the first write.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: file backend requires a path")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	f := &File{
		path:        path,
		data:        make(map[string][]byte),
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond, // Settle window for editor save bursts
	}

	if err := f.load(); err != nil {
		return nil, err
	}

	return f, nil
}

// load replaces the in-memory map with the file content.
// Caller must hold the mutex or be the constructor.
func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var doc settingsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", f.path, err)
	}

	fresh := make(map[string][]byte, len(doc.Settings))
	for key, raw := range doc.Settings {
		value := make([]byte, len(raw))
		copy(value, raw)
		fresh[key] = value
	}
	f.data = fresh
	return nil
}

// saveLocked writes the in-memory map to disk. Caller must hold the mutex.
func (f *File) saveLocked() error {
	doc := settingsFile{
		Version:  settingsFileVersion,
		Settings: make(map[string]json.RawMessage, len(f.data)),
	}
	for key, value := range f.data {
		doc.Settings[key] = json.RawMessage(value)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

// Get returns the stored value and whether the key exists.
func (f *File) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, false, ErrClosed
	}

	value, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores a value and writes the file through immediately.
// The value must be valid JSON; see ErrNotJSON.
func (f *File) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: key %q", ErrNotJSON, key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	f.data[key] = stored
	return f.saveLocked()
}

// Delete removes a key and writes the file through immediately.
func (f *File) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.saveLocked()
}

// Keys returns all stored keys in sorted order.
func (f *File) Keys() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close stops any watcher and marks the backend closed.
func (f *File) Close() error {
	f.StopWatch()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	logging.Events().BackendOp(logging.EventBackendClose, DriverFile, nil)
	return nil
}

// Path returns the settings file location.
func (f *File) Path() string {
	return f.path
}

// StartWatch begins watching the settings file for external edits.
// onChange runs on the watcher goroutine after the file has been
// reloaded. Non-blocking; stop with StopWatch or cancel the context.
func (f *File) StartWatch(ctx context.Context, onChange func()) error {
	f.mu.Lock()
	if f.watching {
		f.mu.Unlock()
		return nil // Already running
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.mu.Unlock()
		return err
	}

	f.watcher = watcher
	f.onChange = onChange
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	f.watching = true
	f.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save
	// and the watch would die with the old inode.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		f.mu.Lock()
		f.watching = false
		f.mu.Unlock()
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Storage("Watching settings file: %s", f.path)

	go f.run(ctx, watcher, f.stopCh, f.doneCh)

	return nil
}

// StopWatch stops the watcher and waits for cleanup.
func (f *File) StopWatch() {
	f.mu.Lock()
	if !f.watching {
		f.mu.Unlock()
		return
	}
	f.watching = false
	stopCh, doneCh, watcher := f.stopCh, f.doneCh, f.watcher
	f.watcher = nil
	f.mu.Unlock()

	close(stopCh)
	<-doneCh

	if err := watcher.Close(); err != nil {
		logging.Get(logging.CategoryStorage).Error("Error closing settings watcher: %v", err)
	}
	logging.Storage("Settings watcher stopped")
}

// run is the watcher event loop. Channels are passed in so a restart
// cannot swap them out from under a draining loop.
func (f *File) run(ctx context.Context, watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.StorageDebug("Settings watcher: context cancelled")
			return

		case <-stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			f.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryStorage).Error("Settings watcher error: %v", err)
			f.mu.Lock()
			f.stats.Errors++
			f.mu.Unlock()

		case <-debounceTicker.C:
			f.processDebouncedEvents()
		}
	}
}

// handleEvent records a settings-file event for debounced processing.
func (f *File) handleEvent(event fsnotify.Event) {
	// Only care about the settings file itself
	if filepath.Clean(event.Name) != filepath.Clean(f.path) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return // Ignore chmod
	}

	logging.StorageDebug("Settings watcher: %s event for %s", event.Op, event.Name)

	f.mu.Lock()
	f.stats.Events++
	f.stats.LastEventTime = time.Now()
	f.debounceMap[event.Name] = time.Now()
	f.mu.Unlock()
}

// processDebouncedEvents reloads once events have settled past the window.
func (f *File) processDebouncedEvents() {
	f.mu.Lock()
	now := time.Now()
	settled := false
	for path, eventTime := range f.debounceMap {
		if now.Sub(eventTime) >= f.debounceDur {
			delete(f.debounceMap, path)
			settled = true
		}
	}
	if !settled {
		f.mu.Unlock()
		return
	}

	if err := f.load(); err != nil {
		f.stats.Errors++
		f.mu.Unlock()
		logging.Get(logging.CategoryStorage).Error("Settings reload failed: %v", err)
		return
	}
	f.stats.Reloads++
	onChange := f.onChange
	f.mu.Unlock()

	logging.Storage("Settings file reloaded from disk")
	if onChange != nil {
		onChange()
	}
}

// Stats returns a copy of the watcher statistics.
func (f *File) Stats() WatchStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}
