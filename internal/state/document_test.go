package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportDocumentDefaults(t *testing.T) {
	s := newTestState(t)

	doc := s.ExportDocument()
	data, err := doc.YAML()
	require.NoError(t, err)

	text := string(data)
	require.Contains(t, text, "arMode: auto")
	require.Contains(t, text, "showDashboard: true")
	require.Contains(t, text, "allowP2PNetwork: false")
	require.Contains(t, text, "markerImageWidth: 0.2")
	require.NotContains(t, text, "experimentSettings", "empty sections stay out of the document")
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.ARMode.Set(ARModeCreator))
	require.NoError(t, s.AllowP2P.Set(true))
	require.NoError(t, s.MarkerImageWidth.Set(1.5))
	require.NoError(t, s.CreatorModeSettings.Set(CreatorSettings{
		ContentURL:  "https://content.example.com/duck.glb",
		ContentType: ContentScene,
	}))
	require.NoError(t, s.ExperimentModeSettings.Set(map[string]string{"particles": "on"}))
	require.NoError(t, s.DebugShowLocalAxes.Set(true))

	data, err := s.ExportDocument().YAML()
	require.NoError(t, err)

	doc, err := ParseSettingsDocument(data)
	require.NoError(t, err)

	restored := newTestState(t)
	require.NoError(t, restored.ImportDocument(doc))

	require.Equal(t, ARModeCreator, restored.ARMode.Get())
	require.True(t, restored.AllowP2P.Get())
	require.Equal(t, 1.5, restored.MarkerImageWidth.Get())
	require.Equal(t, ContentScene, restored.CreatorModeSettings.Get().ContentType)
	require.Equal(t, "https://content.example.com/duck.glb", restored.CreatorModeSettings.Get().ContentURL)
	require.Equal(t, map[string]string{"particles": "on"}, restored.ExperimentModeSettings.Get())
	require.True(t, restored.DebugShowLocalAxes.Get())
	require.False(t, restored.DebugAppendCameraImage.Get())
}

func TestImportPartialDocument(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.MarkerImageWidth.Set(0.7))

	doc, err := ParseSettingsDocument([]byte("arMode: marker\n"))
	require.NoError(t, err)
	require.NoError(t, s.ImportDocument(doc))

	require.Equal(t, ARModeMarker, s.ARMode.Get())
	require.Equal(t, 0.7, s.MarkerImageWidth.Get(), "fields absent from the document stay put")
}

func TestParseSettingsDocumentRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown mode", "arMode: teleport\n", "arMode"},
		{"width too small", "markerImageWidth: 0.001\n", "markerImageWidth"},
		{"width too large", "markerImageWidth: 50\n", "markerImageWidth"},
		{"bad creator url", "creatorMode:\n  contentUrl: not a url\n", "contentUrl"},
		{"bad content type", "creatorMode:\n  contentType: hologram\n", "contentType"},
		{"not yaml", ": : :\n", "parse settings document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettingsDocument([]byte(tt.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImportValidatesBeforeApplying(t *testing.T) {
	s := newTestState(t)

	mode := "dev"
	width := 99.0
	doc := &SettingsDocument{ARMode: &mode, MarkerImageWidth: &width}

	err := s.ImportDocument(doc)
	require.Error(t, err)
	require.Equal(t, ARModeAuto, s.ARMode.Get(), "nothing applies when any field is invalid")
	require.Equal(t, DefaultMarkerImageWidth, s.MarkerImageWidth.Get())
}

func TestDocumentYAMLIsStable(t *testing.T) {
	s := newTestState(t)
	first, err := s.ExportDocument().YAML()
	require.NoError(t, err)
	second, err := s.ExportDocument().YAML()
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestParseSettingsDocumentEmptyIsValid(t *testing.T) {
	doc, err := ParseSettingsDocument([]byte(""))
	require.NoError(t, err)

	s := newTestState(t)
	require.NoError(t, s.ImportDocument(doc))
	require.Equal(t, ARModeAuto, s.ARMode.Get())
}

func TestDocumentValidatorNamesYAMLFields(t *testing.T) {
	bad := "teleport"
	doc := &SettingsDocument{ARMode: &bad}
	err := doc.Validate()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "arMode"),
		"error should reference the yaml field name: %v", err)
}
