// Event journal: structured JSON-line records of state transitions.
// One file per day next to the category logs, readable with any JSON-line tool.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType identifies what kind of state transition an event records
type EventType string

const (
	// Settings events
	EventSettingChanged   EventType = "setting_changed"
	EventSettingRemoved   EventType = "setting_removed"
	EventSettingsReloaded EventType = "settings_reloaded"
	EventSettingsImported EventType = "settings_imported"
	EventSettingsExported EventType = "settings_exported"

	// Service discovery events
	EventServicesUpdated EventType = "services_updated"
	EventServiceSelected EventType = "service_selected"

	// Localisation events
	EventLocalisationApplied EventType = "localisation_applied"
	EventLocationChanged     EventType = "location_changed"

	// Scene events
	EventModelCreated EventType = "model_created"

	// Storage backend events
	EventBackendOpen  EventType = "backend_open"
	EventBackendClose EventType = "backend_close"
	EventBackendError EventType = "backend_error"

	// Generic failure
	EventFailure EventType = "failure"
)

// Event is one journal record
type Event struct {
	Timestamp  int64                  `json:"ts"`    // Unix milliseconds
	Type       EventType              `json:"event"` // What happened
	Category   string                 `json:"cat"`   // Originating subsystem
	Key        string                 `json:"key,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	journalFile *os.File
	journalMu   sync.Mutex
	journal     *Journal
)

// Journal writes structured events, optionally scoped to a category
type Journal struct {
	category Category
}

// InitJournal opens the event journal file. No-op unless debug mode is on.
func InitJournal() error {
	if !IsDebugMode() {
		return nil
	}

	journalMu.Lock()
	defer journalMu.Unlock()

	if journalFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	journalPath := filepath.Join(logsDir, fmt.Sprintf("%s_events.log", date))

	file, err := os.OpenFile(journalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create event journal: %w", err)
	}
	journalFile = file

	header := fmt.Sprintf("# Event journal started at %s\n", time.Now().Format(time.RFC3339))
	journalFile.WriteString(header)

	return nil
}

// CloseJournal closes the event journal file
func CloseJournal() {
	journalMu.Lock()
	defer journalMu.Unlock()

	if journalFile != nil {
		journalFile.Close()
		journalFile = nil
	}
}

// Events returns the global journal
func Events() *Journal {
	if journal == nil {
		journal = &Journal{}
	}
	return journal
}

// EventsFor returns a journal scoped to a category
func EventsFor(category Category) *Journal {
	return &Journal{category: category}
}

// Log writes one event to the journal
func (j *Journal) Log(event Event) {
	if !IsDebugMode() || journalFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.Category == "" && j.category != "" {
		event.Category = string(j.category)
	}

	journalMu.Lock()
	defer journalMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		journalFile.WriteString(string(data) + "\n")
	}
}

// SettingChanged records a persisted setting write
func (j *Journal) SettingChanged(key, value string) {
	j.Log(Event{
		Type:     EventSettingChanged,
		Category: string(CategoryState),
		Key:      key,
		Success:  true,
		Message:  fmt.Sprintf("Setting %s = %s", key, value),
	})
}

// SettingRemoved records a persisted setting delete
func (j *Journal) SettingRemoved(key string) {
	j.Log(Event{
		Type:     EventSettingRemoved,
		Category: string(CategoryState),
		Key:      key,
		Success:  true,
		Message:  fmt.Sprintf("Setting %s removed", key),
	})
}

// SettingsReloaded records a bulk rehydration from storage
func (j *Journal) SettingsReloaded(count int) {
	j.Log(Event{
		Type:     EventSettingsReloaded,
		Category: string(CategoryState),
		Success:  true,
		Fields:   map[string]interface{}{"count": count},
		Message:  fmt.Sprintf("Reloaded %d persisted settings", count),
	})
}

// ServicesUpdated records a service record refresh
func (j *Journal) ServicesUpdated(count int, source string) {
	j.Log(Event{
		Type:     EventServicesUpdated,
		Category: string(CategoryServices),
		Target:   source,
		Success:  true,
		Fields:   map[string]interface{}{"count": count},
		Message:  fmt.Sprintf("Updated %d service records from %s", count, source),
	})
}

// ServiceSelected records an automatic or manual service selection
func (j *Journal) ServiceSelected(kind, id string) {
	j.Log(Event{
		Type:     EventServiceSelected,
		Category: string(CategoryServices),
		Key:      kind,
		Target:   id,
		Success:  true,
		Message:  fmt.Sprintf("Selected %s service %s", kind, id),
	})
}

// LocalisationApplied records a successful localisation result
func (j *Journal) LocalisationApplied(lat, lon float64) {
	j.Log(Event{
		Type:     EventLocalisationApplied,
		Category: string(CategoryState),
		Success:  true,
		Fields:   map[string]interface{}{"lat": lat, "lon": lon},
		Message:  fmt.Sprintf("Localised at %.6f, %.6f", lat, lon),
	})
}

// ModelCreated records a placeholder model build
func (j *Journal) ModelCreated(shape, color string) {
	j.Log(Event{
		Type:     EventModelCreated,
		Category: string(CategoryScene),
		Key:      shape,
		Target:   color,
		Success:  true,
		Message:  fmt.Sprintf("Created %s model (%s)", shape, color),
	})
}

// BackendOp records a storage backend lifecycle event
func (j *Journal) BackendOp(op EventType, driver string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	j.Log(Event{
		Type:     op,
		Category: string(CategoryStorage),
		Target:   driver,
		Success:  err == nil,
		Error:    errMsg,
		Message:  fmt.Sprintf("Backend %s: %s", op, driver),
	})
}

// Failure records an error from any subsystem
func (j *Journal) Failure(category Category, err error) {
	if err == nil {
		return
	}
	j.Log(Event{
		Type:     EventFailure,
		Category: string(category),
		Success:  false,
		Error:    err.Error(),
		Message:  fmt.Sprintf("Failure in %s: %s", category, err.Error()),
	})
}
