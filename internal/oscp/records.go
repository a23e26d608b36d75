package oscp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spiritoftheplace/sparcl/internal/logging"
)

// LoadRecords reads spatial services records from a JSON or YAML file
// holding either a single record or an array of records. Records and
// services without an id get one assigned. Records that fail
// validation are skipped with a warning; the file itself failing to
// parse is an error.
func LoadRecords(path string) ([]ServiceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service records: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// Rewrite to JSON so the record types keep a single tag set
		// and Geometry stays an opaque JSON fragment.
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse service records: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to parse service records: %w", err)
		}
	}
	return ParseRecords(data)
}

// ParseRecords parses one record or an array of records from JSON.
func ParseRecords(data []byte) ([]ServiceRecord, error) {
	var records []ServiceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		// Not an array; retry as a single record
		var single ServiceRecord
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("failed to parse service records: %w", err)
		}
		records = []ServiceRecord{single}
	}

	valid := records[:0]
	for i := range records {
		record := &records[i]
		AssignIDs(record)
		if err := record.Validate(); err != nil {
			logging.ServicesWarn("Skipping invalid service record %s: %v", record.ID, err)
			continue
		}
		valid = append(valid, *record)
	}

	logging.Services("Parsed %d service records (%d valid)", len(records), len(valid))
	return valid, nil
}

// AssignIDs fills in missing record and service ids.
func AssignIDs(record *ServiceRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	for i := range record.Services {
		if record.Services[i].ID == "" {
			record.Services[i].ID = uuid.NewString()
		}
	}
}
