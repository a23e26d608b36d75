package state

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/spiritoftheplace/sparcl/internal/logging"
	"github.com/spiritoftheplace/sparcl/internal/storage"
)

// Persistor tracks every persistent cell bound to one backend so the
// whole set can be reloaded, listed, or manipulated by key.
type Persistor struct {
	backend storage.Backend
	mu      sync.Mutex
	entries map[string]persistedEntry
	order   []string
}

// persistedEntry is the type-erased face of a Persistent cell.
type persistedEntry interface {
	reload() error
	currentRaw() ([]byte, error)
	applyRaw(raw []byte) error
	resetDefault() error
}

// NewPersistor wraps a backend. The backend stays owned by the caller.
func NewPersistor(backend storage.Backend) *Persistor {
	return &Persistor{
		backend: backend,
		entries: make(map[string]persistedEntry),
	}
}

// Backend returns the underlying storage backend.
func (p *Persistor) Backend() storage.Backend {
	return p.backend
}

func (p *Persistor) register(key string, e persistedEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.entries[key]; exists {
		return fmt.Errorf("setting key %q registered twice", key)
	}
	p.entries[key] = e
	p.order = append(p.order, key)
	return nil
}

// Keys lists the registered setting keys, sorted.
func (p *Persistor) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.order))
	copy(keys, p.order)
	sort.Strings(keys)
	return keys
}

func (p *Persistor) entry(key string) (persistedEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		return nil, fmt.Errorf("unknown setting key %q", key)
	}
	return e, nil
}

// Raw returns the current value of one setting as JSON.
func (p *Persistor) Raw(key string) ([]byte, error) {
	e, err := p.entry(key)
	if err != nil {
		return nil, err
	}
	return e.currentRaw()
}

// Apply parses raw as JSON and sets the cell registered under key,
// writing through to the backend. Unknown keys and values that fail
// the cell's check are rejected.
func (p *Persistor) Apply(key string, raw []byte) error {
	e, err := p.entry(key)
	if err != nil {
		return err
	}
	return e.applyRaw(raw)
}

// Reset removes key from the backend and puts the cell back on its
// default value.
func (p *Persistor) Reset(key string) error {
	e, err := p.entry(key)
	if err != nil {
		return err
	}
	return e.resetDefault()
}

// ReloadAll rehydrates every registered cell from the backend. Cells
// whose stored bytes are unchanged do not notify. Called after an
// external process rewrote the settings file.
func (p *Persistor) ReloadAll() error {
	p.mu.Lock()
	order := make([]string, len(p.order))
	copy(order, p.order)
	p.mu.Unlock()

	var firstErr error
	for _, key := range order {
		e, err := p.entry(key)
		if err != nil {
			continue
		}
		if err := e.reload(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("reload %q: %w", key, err)
		}
	}
	logging.Events().SettingsReloaded(len(order))
	logging.StateDebug("Reloaded %d persisted settings", len(order))
	return firstErr
}

// Persistent is a cell whose value writes through to a storage backend
// as JSON under a fixed key. It hydrates from the backend at
// construction; a missing or unreadable stored value falls back to the
// default rather than failing.
type Persistent[T any] struct {
	cell  *Cell[T]
	key   string
	def   T
	check func(T) error
	p     *Persistor
}

// PersistentOption configures a persistent cell.
type PersistentOption[T any] func(*Persistent[T])

// WithCheck validates values before they are stored. Hydrated values
// failing the check fall back to the default with a warning.
func WithCheck[T any](fn func(T) error) PersistentOption[T] {
	return func(pc *Persistent[T]) { pc.check = fn }
}

// NewPersistent registers a persistent cell under key and hydrates it.
func NewPersistent[T any](p *Persistor, key string, def T, opts ...PersistentOption[T]) (*Persistent[T], error) {
	if key == "" {
		return nil, storage.ErrEmptyKey
	}
	pc := &Persistent[T]{key: key, def: def, p: p}
	for _, opt := range opts {
		opt(pc)
	}

	value := def
	raw, ok, err := p.backend.Get(key)
	if err != nil {
		return nil, fmt.Errorf("hydrate %q: %w", key, err)
	}
	if ok {
		var stored T
		if err := json.Unmarshal(raw, &stored); err != nil {
			logging.StateWarn("Stored value for %q is unreadable, using default: %v", key, err)
		} else if pc.check != nil && pc.check(stored) != nil {
			logging.StateWarn("Stored value for %q failed validation, using default: %v", key, pc.check(stored))
		} else {
			value = stored
		}
	}
	pc.cell = NewCell(value)

	if err := p.register(key, pc); err != nil {
		return nil, err
	}
	return pc, nil
}

// Key returns the storage key.
func (pc *Persistent[T]) Key() string { return pc.key }

// Default returns the fallback value.
func (pc *Persistent[T]) Default() T { return pc.def }

// Get returns the current value.
func (pc *Persistent[T]) Get() T { return pc.cell.Get() }

// Subscribe registers fn and calls it immediately with the current
// value.
func (pc *Persistent[T]) Subscribe(fn func(T)) Unsubscribe {
	return pc.cell.Subscribe(fn)
}

// Set validates, persists, then stores value and notifies subscribers.
// The backend write happens first; on failure the cell is untouched.
func (pc *Persistent[T]) Set(value T) error {
	if pc.check != nil {
		if err := pc.check(value); err != nil {
			return fmt.Errorf("setting %q: %w", pc.key, err)
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", pc.key, err)
	}
	if err := pc.p.backend.Set(pc.key, raw); err != nil {
		return fmt.Errorf("persist %q: %w", pc.key, err)
	}
	pc.cell.Set(value)
	logging.Events().SettingChanged(pc.key, string(raw))
	logging.StateDebug("Setting %q = %s", pc.key, string(raw))
	return nil
}

// Update applies fn to the current value and persists the result.
func (pc *Persistent[T]) Update(fn func(T) T) error {
	return pc.Set(fn(pc.cell.Get()))
}

// Reset deletes the stored value and reverts to the default.
func (pc *Persistent[T]) Reset() error {
	if err := pc.p.backend.Delete(pc.key); err != nil {
		return fmt.Errorf("remove %q: %w", pc.key, err)
	}
	pc.cell.Set(pc.def)
	logging.Events().SettingRemoved(pc.key)
	return nil
}

func (pc *Persistent[T]) currentRaw() ([]byte, error) {
	return json.Marshal(pc.cell.Get())
}

func (pc *Persistent[T]) applyRaw(raw []byte) error {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("setting %q: %w", pc.key, err)
	}
	return pc.Set(value)
}

func (pc *Persistent[T]) resetDefault() error {
	return pc.Reset()
}

// reload rehydrates from the backend. A deleted key reverts to the
// default. Unchanged stored bytes produce no notification.
func (pc *Persistent[T]) reload() error {
	raw, ok, err := pc.p.backend.Get(pc.key)
	if err != nil {
		return err
	}
	if !ok {
		current, cerr := json.Marshal(pc.cell.Get())
		defRaw, derr := json.Marshal(pc.def)
		if cerr == nil && derr == nil && bytes.Equal(current, defRaw) {
			return nil
		}
		pc.cell.Set(pc.def)
		return nil
	}
	current, err := json.Marshal(pc.cell.Get())
	if err == nil && bytes.Equal(bytes.TrimSpace(current), bytes.TrimSpace(raw)) {
		return nil
	}
	var stored T
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if pc.check != nil {
		if err := pc.check(stored); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	pc.cell.Set(stored)
	return nil
}
