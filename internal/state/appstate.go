package state

import (
	"fmt"
	"time"

	"github.com/spiritoftheplace/sparcl/internal/logging"
	"github.com/spiritoftheplace/sparcl/internal/oscp"
	"github.com/spiritoftheplace/sparcl/internal/storage"
)

// AppState bundles every cell the client runs on: session flags,
// persisted settings, and discovered spatial services. Construct it
// once per process with New.
type AppState struct {
	persist *Persistor
	now     func() time.Time

	// Session state, reset on every start.
	ARAvailable           *Cell[bool]
	LocationAccessAllowed *Cell[bool]
	DashboardDetected     *Cell[bool]
	P2PNetworkState       *Cell[P2PState]
	PeerID                *Cell[string]
	InitialLocation       *Cell[Location]
	RecentLocalisation    *Cell[Localisation]
	ActiveExperiment      *Cell[string]

	// Persisted settings, hydrated from the backend.
	ARMode                     *Persistent[ARMode]
	ShowDashboard              *Persistent[bool]
	AllowP2P                   *Persistent[bool]
	MarkerImage                *Persistent[string]
	MarkerImageWidth           *Persistent[float64]
	CreatorModeSettings        *Persistent[CreatorSettings]
	ExperimentModeSettings     *Persistent[map[string]string]
	DebugAppendCameraImage     *Persistent[bool]
	DebugShowLocalAxes         *Persistent[bool]
	DebugUseGeolocationSensors *Persistent[bool]

	// Spatial services for the current location. Mutate via
	// UpdateServices so selections stay consistent.
	Services                *Cell[[]oscp.ServiceRecord]
	GeoPoseServices         *DerivedCell[[]oscp.Service]
	ContentServices         *DerivedCell[[]oscp.Service]
	P2PServices             *DerivedCell[[]oscp.Service]
	SelectedGeoPoseService  *Cell[*oscp.Service]
	SelectedContentServices *Cell[map[string]ContentSelection]

	// DashboardVisible is true when the dashboard is both wanted and
	// present on the page.
	DashboardVisible *DerivedCell[bool]
}

// Option configures AppState construction.
type Option func(*AppState)

// WithNow overrides the clock used for localisation timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *AppState) { s.now = now }
}

// New hydrates the full application state from backend. The backend is
// owned by the returned AppState and closed by Close.
func New(backend storage.Backend, opts ...Option) (*AppState, error) {
	s := &AppState{
		persist: NewPersistor(backend),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.ARMode, err = NewPersistent(s.persist, KeyARMode, DefaultARMode,
		WithCheck(ARMode.Validate)); err != nil {
		return nil, err
	}
	if s.ShowDashboard, err = NewPersistent(s.persist, KeyShowDashboard, DefaultShowDashboard); err != nil {
		return nil, err
	}
	if s.AllowP2P, err = NewPersistent(s.persist, KeyAllowP2P, DefaultAllowP2P); err != nil {
		return nil, err
	}
	if s.MarkerImage, err = NewPersistent(s.persist, KeyMarkerImage, DefaultMarkerImage); err != nil {
		return nil, err
	}
	if s.MarkerImageWidth, err = NewPersistent(s.persist, KeyMarkerImageWidth, float64(DefaultMarkerImageWidth),
		WithCheck(checkMarkerWidth)); err != nil {
		return nil, err
	}
	if s.CreatorModeSettings, err = NewPersistent(s.persist, KeyCreatorModeSettings, CreatorSettings{ContentType: ContentModel},
		WithCheck(CreatorSettings.Validate)); err != nil {
		return nil, err
	}
	if s.ExperimentModeSettings, err = NewPersistent(s.persist, KeyExperimentModeSettings, map[string]string{}); err != nil {
		return nil, err
	}
	if s.DebugAppendCameraImage, err = NewPersistent(s.persist, KeyDebugAppendCameraImage, false); err != nil {
		return nil, err
	}
	if s.DebugShowLocalAxes, err = NewPersistent(s.persist, KeyDebugShowLocalAxes, false); err != nil {
		return nil, err
	}
	if s.DebugUseGeolocationSensors, err = NewPersistent(s.persist, KeyDebugUseGeolocationSensors, false); err != nil {
		return nil, err
	}

	s.ARAvailable = NewCell(false, WithEqual(Comparable[bool]()))
	s.LocationAccessAllowed = NewCell(false, WithEqual(Comparable[bool]()))
	s.DashboardDetected = NewCell(false, WithEqual(Comparable[bool]()))
	s.P2PNetworkState = NewCell(P2PNotConnected, WithEqual(Comparable[P2PState]()))
	s.PeerID = NewCell(DefaultPeerID, WithEqual(Comparable[string]()))
	s.InitialLocation = NewCell(Location{})
	s.RecentLocalisation = NewCell(Localisation{})
	s.ActiveExperiment = NewCell("", WithEqual(Comparable[string]()))

	s.Services = NewCell([]oscp.ServiceRecord{})
	s.GeoPoseServices = Derive(s.Services, byType(oscp.ServiceGeoPose))
	s.ContentServices = Derive(s.Services, byType(oscp.ServiceContentDiscovery))
	s.P2PServices = Derive(s.Services, byType(oscp.ServiceP2PMaster))
	s.SelectedGeoPoseService = NewCell[*oscp.Service](nil)
	s.SelectedContentServices = NewCell(map[string]ContentSelection{})

	s.DashboardVisible = Derive2(s.ShowDashboard, s.DashboardDetected,
		func(wanted, detected bool) bool { return wanted && detected },
		WithEqual(Comparable[bool]()))

	logging.State("Application state ready (%d persisted settings)", len(s.persist.Keys()))
	return s, nil
}

func checkMarkerWidth(w float64) error {
	if w < MinMarkerImageWidth || w > MaxMarkerImageWidth {
		return fmt.Errorf("marker width %.3fm outside [%.2f, %.2f]", w, MinMarkerImageWidth, MaxMarkerImageWidth)
	}
	return nil
}

func byType(t oscp.ServiceType) func([]oscp.ServiceRecord) []oscp.Service {
	return func(records []oscp.ServiceRecord) []oscp.Service {
		return oscp.ServicesByType(records, t)
	}
}

// Settings exposes the persisted settings by key for generic access
// (listing, get, set, unset).
func (s *AppState) Settings() *Persistor {
	return s.persist
}

// ReloadPersisted rehydrates all persisted cells from the backend.
func (s *AppState) ReloadPersisted() error {
	return s.persist.ReloadAll()
}

// UpdateServices replaces the discovered service records. Records
// without IDs get one assigned; duplicate IDs keep the first record.
// Selections are reconciled afterwards: a vanished selected geopose
// service is replaced by the first available one, and content service
// selections are pruned and extended to match the new set.
func (s *AppState) UpdateServices(records []oscp.ServiceRecord, source string) {
	seen := make(map[string]bool, len(records))
	cleaned := make([]oscp.ServiceRecord, 0, len(records))
	for i := range records {
		rec := records[i]
		oscp.AssignIDs(&rec)
		if seen[rec.ID] {
			logging.ServicesDebug("Dropping duplicate service record %q", rec.ID)
			continue
		}
		seen[rec.ID] = true
		cleaned = append(cleaned, rec)
	}

	s.Services.Set(cleaned)
	s.reconcileGeoPoseSelection(cleaned)
	s.reconcileContentSelections(cleaned)

	logging.Events().ServicesUpdated(len(cleaned), source)
	logging.Services("Updated services from %s: %d records", source, len(cleaned))
}

func (s *AppState) reconcileGeoPoseSelection(records []oscp.ServiceRecord) {
	available := oscp.ServicesByType(records, oscp.ServiceGeoPose)
	current := s.SelectedGeoPoseService.Get()
	if current != nil {
		for i := range available {
			if available[i].ID == current.ID {
				// Keep the selection but refresh its fields.
				svc := available[i]
				s.SelectedGeoPoseService.Set(&svc)
				return
			}
		}
	}
	if len(available) == 0 {
		s.SelectedGeoPoseService.Set(nil)
		return
	}
	svc := available[0]
	s.SelectedGeoPoseService.Set(&svc)
	logging.Events().ServiceSelected(string(oscp.ServiceGeoPose), svc.ID)
}

func (s *AppState) reconcileContentSelections(records []oscp.ServiceRecord) {
	available := oscp.ServicesByType(records, oscp.ServiceContentDiscovery)
	current := s.SelectedContentServices.Get()
	next := make(map[string]ContentSelection, len(available))
	for i := range available {
		svc := available[i]
		if sel, ok := current[svc.ID]; ok {
			next[svc.ID] = sel
			continue
		}
		// New content services start selected with all topics on.
		next[svc.ID] = ContentSelection{
			IsSelected: true,
			Topics:     append([]string(nil), svc.Capabilities...),
		}
		logging.Events().ServiceSelected(string(oscp.ServiceContentDiscovery), svc.ID)
	}
	s.SelectedContentServices.Set(next)
}

// SelectGeoPoseService picks a geopose service by ID from the current
// records.
func (s *AppState) SelectGeoPoseService(id string) error {
	for _, svc := range oscp.ServicesByType(s.Services.Get(), oscp.ServiceGeoPose) {
		if svc.ID == id {
			picked := svc
			s.SelectedGeoPoseService.Set(&picked)
			logging.Events().ServiceSelected(string(oscp.ServiceGeoPose), id)
			return nil
		}
	}
	return fmt.Errorf("no geopose service with id %q", id)
}

// SetContentSelection toggles one content service and its topics.
func (s *AppState) SetContentSelection(id string, sel ContentSelection) error {
	found := false
	for _, svc := range oscp.ServicesByType(s.Services.Get(), oscp.ServiceContentDiscovery) {
		if svc.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no content service with id %q", id)
	}
	s.SelectedContentServices.Update(func(current map[string]ContentSelection) map[string]ContentSelection {
		next := make(map[string]ContentSelection, len(current))
		for k, v := range current {
			next[k] = v
		}
		next[id] = sel
		return next
	})
	return nil
}

// SetLocationPermission records whether the user granted location
// access. Revoking clears the initial location.
func (s *AppState) SetLocationPermission(allowed bool) {
	s.LocationAccessAllowed.Set(allowed)
	if !allowed {
		s.InitialLocation.Set(Location{})
	}
	logging.State("Location access allowed: %v", allowed)
}

// SetInitialLocation records the coarse device position used for
// service discovery.
func (s *AppState) SetInitialLocation(loc Location) {
	s.InitialLocation.Set(loc)
	logging.Events().Log(logging.Event{
		Type:     logging.EventLocationChanged,
		Category: string(logging.CategoryState),
		Target:   loc.H3Index,
		Success:  true,
		Message:  fmt.Sprintf("lat=%.5f lon=%.5f country=%s", loc.Lat, loc.Lon, loc.CountryCode),
	})
}

// ApplyLocalisation stores a successful visual positioning result.
func (s *AppState) ApplyLocalisation(pose oscp.GeoPose, floor oscp.Pose) error {
	if err := pose.Validate(); err != nil {
		return fmt.Errorf("localisation rejected: %w", err)
	}
	s.RecentLocalisation.Set(Localisation{
		GeoPose:    pose,
		FloorPose:  floor,
		CapturedAt: s.now(),
	})
	logging.Events().LocalisationApplied(pose.Position.Lat, pose.Position.Lon)
	logging.State("Localised at lat=%.6f lon=%.6f h=%.2f", pose.Position.Lat, pose.Position.Lon, pose.Position.H)
	return nil
}

// Snapshot is a point-in-time copy of the values the dashboard shows.
type Snapshot struct {
	ARMode                 ARMode          `json:"arMode"`
	ShowDashboard          bool            `json:"showDashboard"`
	AllowP2P               bool            `json:"allowP2PNetwork"`
	MarkerImage            string          `json:"markerImage"`
	MarkerImageWidth       float64         `json:"markerImageWidth"`
	CreatorModeSettings    CreatorSettings `json:"creatorModeSettings"`
	ARAvailable            bool            `json:"arAvailable"`
	LocationAccessAllowed  bool            `json:"locationAccessAllowed"`
	P2PNetworkState        P2PState        `json:"p2pNetworkState"`
	PeerID                 string          `json:"peerId"`
	InitialLocation        Location        `json:"initialLocation"`
	ServiceRecords         int             `json:"serviceRecords"`
	GeoPoseServices        int             `json:"geoPoseServices"`
	ContentServices        int             `json:"contentServices"`
	SelectedGeoPoseService string          `json:"selectedGeoPoseService,omitempty"`
}

// Snapshot copies the current state for display.
func (s *AppState) Snapshot() Snapshot {
	snap := Snapshot{
		ARMode:                s.ARMode.Get(),
		ShowDashboard:         s.ShowDashboard.Get(),
		AllowP2P:              s.AllowP2P.Get(),
		MarkerImage:           s.MarkerImage.Get(),
		MarkerImageWidth:      s.MarkerImageWidth.Get(),
		CreatorModeSettings:   s.CreatorModeSettings.Get(),
		ARAvailable:           s.ARAvailable.Get(),
		LocationAccessAllowed: s.LocationAccessAllowed.Get(),
		P2PNetworkState:       s.P2PNetworkState.Get(),
		PeerID:                s.PeerID.Get(),
		InitialLocation:       s.InitialLocation.Get(),
		ServiceRecords:        len(s.Services.Get()),
		GeoPoseServices:       len(s.GeoPoseServices.Get()),
		ContentServices:       len(s.ContentServices.Get()),
	}
	if svc := s.SelectedGeoPoseService.Get(); svc != nil {
		snap.SelectedGeoPoseService = svc.ID
	}
	return snap
}

// Close detaches derived cells and closes the storage backend.
func (s *AppState) Close() error {
	s.GeoPoseServices.Detach()
	s.ContentServices.Detach()
	s.P2PServices.Detach()
	s.DashboardVisible.Detach()
	return s.persist.backend.Close()
}
