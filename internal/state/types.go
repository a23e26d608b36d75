package state

import (
	"fmt"
	"time"

	"github.com/spiritoftheplace/sparcl/internal/oscp"
)

// ARMode selects how the client localises and what content it loads.
type ARMode string

const (
	// ARModeAuto picks oscp or marker mode based on device capability.
	ARModeAuto ARMode = "auto"
	// ARModeOSCP localises against spatial services discovered via SSD.
	ARModeOSCP ARMode = "oscp"
	// ARModeMarker anchors content to a printed image marker.
	ARModeMarker ARMode = "marker"
	// ARModeCreator places a single authored content item for preview.
	ARModeCreator ARMode = "creator"
	// ARModeDev runs without any server roundtrips.
	ARModeDev ARMode = "dev"
	// ARModeExperiment runs one of the bundled experiments.
	ARModeExperiment ARMode = "experiment"
)

// ARModes lists every valid mode in display order.
func ARModes() []ARMode {
	return []ARMode{ARModeAuto, ARModeOSCP, ARModeMarker, ARModeCreator, ARModeDev, ARModeExperiment}
}

// ParseARMode converts a string into an ARMode.
func ParseARMode(s string) (ARMode, error) {
	mode := ARMode(s)
	if err := mode.Validate(); err != nil {
		return "", err
	}
	return mode, nil
}

func (m ARMode) String() string { return string(m) }

// Validate reports whether the mode is one of the known values.
func (m ARMode) Validate() error {
	switch m {
	case ARModeAuto, ARModeOSCP, ARModeMarker, ARModeCreator, ARModeDev, ARModeExperiment:
		return nil
	}
	return fmt.Errorf("unknown ar mode %q", string(m))
}

// P2PState tracks the lifecycle of the peer-to-peer content channel.
type P2PState string

const (
	P2PNotConnected P2PState = "not-connected"
	P2PConnecting   P2PState = "connecting"
	P2PConnected    P2PState = "connected"
	P2PFailed       P2PState = "failed"
)

func (p P2PState) String() string { return string(p) }

// Validate reports whether the state is one of the known values.
func (p P2PState) Validate() error {
	switch p {
	case P2PNotConnected, P2PConnecting, P2PConnected, P2PFailed:
		return nil
	}
	return fmt.Errorf("unknown p2p state %q", string(p))
}

// ContentType describes what kind of asset creator mode places.
type ContentType string

const (
	ContentModel      ContentType = "model"
	ContentScene      ContentType = "scene"
	ContentExperience ContentType = "experience"
)

func (c ContentType) String() string { return string(c) }

// Validate reports whether the content type is one of the known values.
func (c ContentType) Validate() error {
	switch c {
	case ContentModel, ContentScene, ContentExperience:
		return nil
	}
	return fmt.Errorf("unknown content type %q", string(c))
}

// Location is the coarse device position used to scope service
// discovery. H3Index is the hex cell the coordinates fall into.
type Location struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	CountryCode string  `json:"countryCode,omitempty"`
	RegionCode  string  `json:"regionCode,omitempty"`
	H3Index     string  `json:"h3Index,omitempty"`
}

// Localisation is the result of a successful visual positioning
// request: the global pose of the camera and the local floor pose at
// the moment the camera image was captured.
type Localisation struct {
	GeoPose    oscp.GeoPose `json:"geoPose"`
	FloorPose  oscp.Pose    `json:"floorPose"`
	CapturedAt time.Time    `json:"capturedAt"`
}

// CreatorSettings configures creator mode: one content item to place.
type CreatorSettings struct {
	ContentURL  string      `json:"contentUrl"`
	ContentType ContentType `json:"contentType"`
}

// Validate checks the content type. The URL is free-form here; the
// settings document import applies stricter checks.
func (c CreatorSettings) Validate() error {
	if c.ContentType == "" {
		return nil
	}
	return c.ContentType.Validate()
}

// ContentSelection records whether a discovered content service is
// enabled and which of its topics the user wants.
type ContentSelection struct {
	IsSelected bool     `json:"isSelected"`
	Topics     []string `json:"topics,omitempty"`
}

// Persisted setting keys. These match the storage document verbatim,
// so hand-edited settings files keep working.
const (
	KeyARMode                     = "armode"
	KeyShowDashboard              = "showdashboard"
	KeyAllowP2P                   = "allowp2pnetwork"
	KeyMarkerImage                = "currentmarkerimage"
	KeyMarkerImageWidth           = "currentmarkerimagewidth"
	KeyCreatorModeSettings        = "creatormodesettings"
	KeyExperimentModeSettings     = "experimentmodesettings"
	KeyDebugAppendCameraImage     = "debug_appendcameraimage"
	KeyDebugShowLocalAxes         = "debug_showlocalaxes"
	KeyDebugUseGeolocationSensors = "debug_usegeolocationsensors"
)

// Defaults for persisted settings.
const (
	DefaultARMode           = ARModeAuto
	DefaultShowDashboard    = true
	DefaultAllowP2P         = false
	DefaultMarkerImage      = "/media/overlays/marker.jpg"
	DefaultMarkerImageWidth = 0.2
	DefaultPeerID           = "none"
)

// Marker width bounds in meters. A printed marker outside this range
// cannot be tracked reliably.
const (
	MinMarkerImageWidth = 0.01
	MaxMarkerImageWidth = 10.0
)
