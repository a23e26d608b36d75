package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spiritoftheplace/sparcl/internal/oscp"
	"github.com/spiritoftheplace/sparcl/internal/storage"
)

func newTestState(t *testing.T, opts ...Option) *AppState {
	t.Helper()
	s, err := New(storage.NewMemory(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func geoPoseRecord(id, svcID string) oscp.ServiceRecord {
	return oscp.ServiceRecord{
		ID:   id,
		Type: oscp.RecordTypeSSR,
		Services: []oscp.Service{{
			ID:    svcID,
			Type:  oscp.ServiceGeoPose,
			Title: "geopose " + svcID,
			URL:   "https://geopose.example.com/" + svcID,
		}},
	}
}

func contentRecord(id, svcID string, topics ...string) oscp.ServiceRecord {
	return oscp.ServiceRecord{
		ID:   id,
		Type: oscp.RecordTypeSSR,
		Services: []oscp.Service{{
			ID:           svcID,
			Type:         oscp.ServiceContentDiscovery,
			Title:        "content " + svcID,
			URL:          "https://scd.example.com/" + svcID,
			Capabilities: topics,
		}},
	}
}

func TestNewDefaults(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestState(t)

	require.Equal(t, ARModeAuto, s.ARMode.Get())
	require.True(t, s.ShowDashboard.Get())
	require.False(t, s.AllowP2P.Get())
	require.Equal(t, DefaultMarkerImage, s.MarkerImage.Get())
	require.Equal(t, DefaultMarkerImageWidth, s.MarkerImageWidth.Get())
	require.Equal(t, CreatorSettings{ContentType: ContentModel}, s.CreatorModeSettings.Get())
	require.Empty(t, s.ExperimentModeSettings.Get())
	require.False(t, s.DebugAppendCameraImage.Get())
	require.False(t, s.DebugShowLocalAxes.Get())
	require.False(t, s.DebugUseGeolocationSensors.Get())

	require.False(t, s.ARAvailable.Get())
	require.False(t, s.LocationAccessAllowed.Get())
	require.Equal(t, P2PNotConnected, s.P2PNetworkState.Get())
	require.Equal(t, DefaultPeerID, s.PeerID.Get())
	require.Empty(t, s.Services.Get())
	require.Nil(t, s.SelectedGeoPoseService.Get())
	require.Empty(t, s.SelectedContentServices.Get())
	require.False(t, s.DashboardVisible.Get())
}

func TestUpdateServicesDedupesAndAutoSelects(t *testing.T) {
	s := newTestState(t)

	s.UpdateServices([]oscp.ServiceRecord{
		geoPoseRecord("rec-1", "gp-1"),
		geoPoseRecord("rec-1", "gp-dup"), // duplicate record ID, dropped
		geoPoseRecord("rec-2", "gp-2"),
		contentRecord("rec-3", "cd-1", "history", "art"),
	}, "test")

	require.Len(t, s.Services.Get(), 3)
	require.Len(t, s.GeoPoseServices.Get(), 2)
	require.Len(t, s.ContentServices.Get(), 1)
	require.Empty(t, s.P2PServices.Get())

	selected := s.SelectedGeoPoseService.Get()
	require.NotNil(t, selected)
	require.Equal(t, "gp-1", selected.ID)

	selections := s.SelectedContentServices.Get()
	require.Contains(t, selections, "cd-1")
	require.True(t, selections["cd-1"].IsSelected)
	require.Equal(t, []string{"history", "art"}, selections["cd-1"].Topics)
}

func TestUpdateServicesAssignsMissingIDs(t *testing.T) {
	s := newTestState(t)

	rec := geoPoseRecord("", "")
	s.UpdateServices([]oscp.ServiceRecord{rec}, "test")

	got := s.Services.Get()
	require.Len(t, got, 1)
	require.NotEmpty(t, got[0].ID)
	require.NotEmpty(t, got[0].Services[0].ID)
}

func TestUpdateServicesKeepsExistingSelection(t *testing.T) {
	s := newTestState(t)

	s.UpdateServices([]oscp.ServiceRecord{
		geoPoseRecord("rec-1", "gp-1"),
		geoPoseRecord("rec-2", "gp-2"),
	}, "test")
	require.NoError(t, s.SelectGeoPoseService("gp-2"))

	// Same set again: the explicit choice survives.
	s.UpdateServices([]oscp.ServiceRecord{
		geoPoseRecord("rec-1", "gp-1"),
		geoPoseRecord("rec-2", "gp-2"),
	}, "test")
	require.Equal(t, "gp-2", s.SelectedGeoPoseService.Get().ID)

	// Selected service vanished: fall back to the first available.
	s.UpdateServices([]oscp.ServiceRecord{geoPoseRecord("rec-1", "gp-1")}, "test")
	require.Equal(t, "gp-1", s.SelectedGeoPoseService.Get().ID)

	// No geopose services at all.
	s.UpdateServices(nil, "test")
	require.Nil(t, s.SelectedGeoPoseService.Get())
}

func TestContentSelectionsPrunedAndExtended(t *testing.T) {
	s := newTestState(t)

	s.UpdateServices([]oscp.ServiceRecord{
		contentRecord("rec-1", "cd-1", "history"),
		contentRecord("rec-2", "cd-2", "art"),
	}, "test")

	// User turns one service off.
	require.NoError(t, s.SetContentSelection("cd-1", ContentSelection{IsSelected: false}))

	s.UpdateServices([]oscp.ServiceRecord{
		contentRecord("rec-1", "cd-1", "history"),
		contentRecord("rec-3", "cd-3", "food"),
	}, "test")

	selections := s.SelectedContentServices.Get()
	require.Len(t, selections, 2)
	require.False(t, selections["cd-1"].IsSelected, "explicit opt-out must survive an update")
	require.NotContains(t, selections, "cd-2", "vanished service must be pruned")
	require.True(t, selections["cd-3"].IsSelected, "new service starts selected")
	require.Equal(t, []string{"food"}, selections["cd-3"].Topics)
}

func TestSelectGeoPoseServiceUnknown(t *testing.T) {
	s := newTestState(t)
	err := s.SelectGeoPoseService("nope")
	require.ErrorContains(t, err, "no geopose service")
}

func TestSetContentSelectionUnknown(t *testing.T) {
	s := newTestState(t)
	err := s.SetContentSelection("nope", ContentSelection{IsSelected: true})
	require.ErrorContains(t, err, "no content service")
}

func TestDashboardVisible(t *testing.T) {
	s := newTestState(t)

	var seen []bool
	defer s.DashboardVisible.Subscribe(func(v bool) { seen = append(seen, v) })()

	require.False(t, s.DashboardVisible.Get())

	s.DashboardDetected.Set(true)
	require.True(t, s.DashboardVisible.Get())

	require.NoError(t, s.ShowDashboard.Set(false))
	require.False(t, s.DashboardVisible.Get())

	require.Equal(t, []bool{false, true, false}, seen)
}

func TestApplyLocalisation(t *testing.T) {
	captured := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestState(t, WithNow(func() time.Time { return captured }))

	pose := oscp.GeoPose{
		Position:   oscp.Position{Lat: 48.123, Lon: 11.456, H: 520},
		Quaternion: oscp.Quaternion{W: 1},
	}
	floor := oscp.Pose{Position: oscp.Vec3{Y: -1.6}, Orientation: oscp.Quaternion{W: 1}}

	require.NoError(t, s.ApplyLocalisation(pose, floor))

	loc := s.RecentLocalisation.Get()
	require.Equal(t, pose, loc.GeoPose)
	require.Equal(t, floor, loc.FloorPose)
	require.Equal(t, captured, loc.CapturedAt)
}

func TestApplyLocalisationRejectsBadPose(t *testing.T) {
	s := newTestState(t)

	bad := oscp.GeoPose{Position: oscp.Position{Lat: 123.0, Lon: 0}}
	err := s.ApplyLocalisation(bad, oscp.Pose{})
	require.ErrorContains(t, err, "localisation rejected")
	require.True(t, s.RecentLocalisation.Get().CapturedAt.IsZero())
}

func TestSetLocationPermission(t *testing.T) {
	s := newTestState(t)

	s.SetInitialLocation(Location{Lat: 48.1, Lon: 11.5, CountryCode: "DE", H3Index: "881f1d4a3bfffff"})
	s.SetLocationPermission(true)
	require.True(t, s.LocationAccessAllowed.Get())
	require.Equal(t, "DE", s.InitialLocation.Get().CountryCode)

	// Revoking access discards the position we were given.
	s.SetLocationPermission(false)
	require.False(t, s.LocationAccessAllowed.Get())
	require.Equal(t, Location{}, s.InitialLocation.Get())
}

func TestSnapshot(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.ARMode.Set(ARModeOSCP))
	s.ARAvailable.Set(true)
	s.P2PNetworkState.Set(P2PConnecting)
	s.UpdateServices([]oscp.ServiceRecord{
		geoPoseRecord("rec-1", "gp-1"),
		contentRecord("rec-2", "cd-1", "history"),
	}, "test")

	want := Snapshot{
		ARMode:                 ARModeOSCP,
		ShowDashboard:          true,
		MarkerImage:            DefaultMarkerImage,
		MarkerImageWidth:       DefaultMarkerImageWidth,
		CreatorModeSettings:    CreatorSettings{ContentType: ContentModel},
		ARAvailable:            true,
		P2PNetworkState:        P2PConnecting,
		PeerID:                 DefaultPeerID,
		ServiceRecords:         2,
		GeoPoseServices:        1,
		ContentServices:        1,
		SelectedGeoPoseService: "gp-1",
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	backend, err := storage.NewFile(path)
	require.NoError(t, err)
	s, err := New(backend)
	require.NoError(t, err)

	require.NoError(t, s.ARMode.Set(ARModeMarker))
	require.NoError(t, s.MarkerImageWidth.Set(0.5))
	require.NoError(t, s.Close())

	backend2, err := storage.NewFile(path)
	require.NoError(t, err)
	s2, err := New(backend2)
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, ARModeMarker, s2.ARMode.Get())
	require.Equal(t, 0.5, s2.MarkerImageWidth.Get())
	require.True(t, s2.ShowDashboard.Get(), "untouched settings keep their defaults")
}

func TestReloadPersisted(t *testing.T) {
	backend := storage.NewMemory()
	s, err := New(backend)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, backend.Set(KeyARMode, []byte(`"dev"`)))
	require.NoError(t, s.ReloadPersisted())
	require.Equal(t, ARModeDev, s.ARMode.Get())
}
