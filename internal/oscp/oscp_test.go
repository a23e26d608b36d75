package oscp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validRecord() ServiceRecord {
	return ServiceRecord{
		ID:   "rec-1",
		Type: RecordTypeSSR,
		Services: []Service{
			{
				ID:     "svc-1",
				Type:   ServiceGeoPose,
				Title:  "City GeoPose",
				URL:    "https://geopose.example.com",
				Active: true,
			},
			{
				ID:    "svc-2",
				Type:  ServiceContentDiscovery,
				Title: "City Content",
				URL:   "https://content.example.com",
			},
		},
		Provider:  "example",
		Timestamp: 1700000000,
	}
}

func TestServiceRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServiceRecord)
		wantErr bool
	}{
		{"valid", func(r *ServiceRecord) {}, false},
		{"wrong record type", func(r *ServiceRecord) { r.Type = "osr" }, true},
		{"empty record type", func(r *ServiceRecord) { r.Type = "" }, true},
		{"no services", func(r *ServiceRecord) { r.Services = nil }, true},
		{"unknown service type", func(r *ServiceRecord) { r.Services[0].Type = "teleport" }, true},
		{"missing title", func(r *ServiceRecord) { r.Services[0].Title = "" }, true},
		{"missing url", func(r *ServiceRecord) { r.Services[0].URL = "" }, true},
		{"malformed url", func(r *ServiceRecord) { r.Services[0].URL = "not a url" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(&record)
			err := record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeoPoseValidate(t *testing.T) {
	tests := []struct {
		name    string
		pose    GeoPose
		wantErr bool
	}{
		{"valid", GeoPose{Position: Position{Lat: 48.662, Lon: 6.155, H: 220}, Quaternion: Quaternion{W: 1}}, false},
		{"lat too high", GeoPose{Position: Position{Lat: 91}}, true},
		{"lat too low", GeoPose{Position: Position{Lat: -91}}, true},
		{"lon too high", GeoPose{Position: Position{Lon: 181}}, true},
		{"lon too low", GeoPose{Position: Position{Lon: -181}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pose.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRecordsArrayAndSingle(t *testing.T) {
	array := `[
		{"id": "a", "type": "ssr", "services": [
			{"id": "s1", "type": "geopose", "title": "T", "url": "https://example.com"}
		]},
		{"id": "b", "type": "ssr", "services": [
			{"id": "s2", "type": "p2p-master", "title": "P", "url": "https://p2p.example.com"}
		]}
	]`
	records, err := ParseRecords([]byte(array))
	if err != nil {
		t.Fatalf("ParseRecords(array) failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	single := `{"id": "c", "type": "ssr", "services": [
		{"id": "s3", "type": "content-discovery", "title": "C", "url": "https://c.example.com"}
	]}`
	records, err = ParseRecords([]byte(single))
	if err != nil {
		t.Fatalf("ParseRecords(single) failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "c" {
		t.Fatalf("Expected single record c, got %+v", records)
	}

	if _, err := ParseRecords([]byte("not json")); err == nil {
		t.Error("Expected error for unparseable input")
	}
}

func TestParseRecordsAssignsIDs(t *testing.T) {
	input := `{"type": "ssr", "services": [
		{"type": "geopose", "title": "T", "url": "https://example.com"}
	]}`
	records, err := ParseRecords([]byte(input))
	if err != nil {
		t.Fatalf("ParseRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].ID == "" {
		t.Error("Record id was not assigned")
	}
	if records[0].Services[0].ID == "" {
		t.Error("Service id was not assigned")
	}
}

func TestParseRecordsSkipsInvalid(t *testing.T) {
	input := `[
		{"id": "good", "type": "ssr", "services": [
			{"id": "s1", "type": "geopose", "title": "T", "url": "https://example.com"}
		]},
		{"id": "bad", "type": "ssr", "services": []}
	]`
	records, err := ParseRecords([]byte(input))
	if err != nil {
		t.Fatalf("ParseRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "good" {
		t.Errorf("Expected only the valid record, got %+v", records)
	}
}

func TestServiceFilters(t *testing.T) {
	records := []ServiceRecord{
		validRecord(),
		{
			ID:   "rec-2",
			Type: RecordTypeSSR,
			Services: []Service{
				{ID: "svc-3", Type: ServiceGeoPose, Title: "Second GeoPose", URL: "https://gp2.example.com"},
				{ID: "svc-4", Type: ServiceP2PMaster, Title: "P2P", URL: "https://p2p.example.com"},
			},
		},
	}

	geopose := ServicesByType(records, ServiceGeoPose)
	wantIDs := []string{"svc-1", "svc-3"}
	var gotIDs []string
	for _, s := range geopose {
		gotIDs = append(gotIDs, s.ID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("ServicesByType(geopose) mismatch (-want +got):\n%s", diff)
	}

	first, ok := FirstByType(records, ServiceP2PMaster)
	if !ok || first.ID != "svc-4" {
		t.Errorf("FirstByType(p2p-master) = %+v, %v", first, ok)
	}

	if _, ok := FirstByType(nil, ServiceGeoPose); ok {
		t.Error("FirstByType on no records should report not found")
	}

	counts := CountByType(records)
	want := map[ServiceType]int{
		ServiceGeoPose:          2,
		ServiceContentDiscovery: 1,
		ServiceP2PMaster:        1,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("CountByType mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")
	content := `[{"id": "file-rec", "type": "ssr", "services": [
		{"id": "s1", "type": "geopose", "title": "T", "url": "https://example.com"}
	]}]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write records file: %v", err)
	}

	records, err := LoadRecords(path)
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "file-rec" {
		t.Errorf("Unexpected records: %+v", records)
	}

	_, err = LoadRecords(filepath.Join(dir, "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("Expected read error for missing file, got %v", err)
	}
}

func TestLoadRecordsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.yaml")
	content := `- id: yaml-rec
  type: ssr
  services:
    - id: s1
      type: geopose
      title: T
      url: https://example.com
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write records file: %v", err)
	}

	records, err := LoadRecords(path)
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "yaml-rec" {
		t.Errorf("Unexpected records: %+v", records)
	}
	if records[0].Services[0].Type != ServiceGeoPose {
		t.Errorf("Service type lost in translation: %+v", records[0].Services[0])
	}

	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("[unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write records file: %v", err)
	}
	if _, err := LoadRecords(bad); err == nil {
		t.Error("Expected parse error for malformed yaml")
	}
}
