// Package oscp holds the spatial service discovery types of the Open
// Spatial Computing Platform: spatial services records (SSRs), the
// services they advertise and GeoPose positions. Only the client-side
// slice lives here; no discovery protocol, just the shapes and helpers
// the state layer filters on.
package oscp

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// RecordTypeSSR is the only record type the client understands.
const RecordTypeSSR = "ssr"

// ServiceType classifies what a service endpoint offers.
type ServiceType string

const (
	// ServiceGeoPose localises camera images to a global pose.
	ServiceGeoPose ServiceType = "geopose"

	// ServiceContentDiscovery serves spatial content records around a location.
	ServiceContentDiscovery ServiceType = "content-discovery"

	// ServiceP2PMaster coordinates the peer-to-peer content sync network.
	ServiceP2PMaster ServiceType = "p2p-master"
)

// KnownServiceTypes lists every type the client can make use of.
var KnownServiceTypes = []ServiceType{ServiceGeoPose, ServiceContentDiscovery, ServiceP2PMaster}

// Property is a free-form key-value annotation on a service.
type Property struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Service is one endpoint advertised inside a spatial services record.
type Service struct {
	ID           string      `json:"id"`
	Type         ServiceType `json:"type" validate:"required,oneof=geopose content-discovery p2p-master"`
	Title        string      `json:"title" validate:"required"`
	Description  string      `json:"description,omitempty"`
	URL          string      `json:"url" validate:"required,url"`
	Properties   []Property  `json:"properties,omitempty"`
	Capabilities []string    `json:"capabilities,omitempty"`
	Active       bool        `json:"active"`
}

// ServiceRecord is a spatial services record as returned by a spatial
// service discovery lookup for one coverage area.
type ServiceRecord struct {
	ID       string    `json:"id"`
	Type     string    `json:"type" validate:"required,eq=ssr"`
	Services []Service `json:"services" validate:"required,min=1,dive"`

	// Geometry is the GeoJSON coverage area. The client never interprets
	// it, so it stays opaque.
	Geometry  json.RawMessage `json:"geometry,omitempty"`
	Altitude  float64         `json:"altitude,omitempty"`
	Provider  string          `json:"provider,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Position is a WGS84 location with ellipsoidal height in meters.
type Position struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
	H   float64 `json:"h"`
}

// Quaternion is an orientation in x, y, z, w order.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// GeoPose is a globally referenced pose: WGS84 position plus orientation.
type GeoPose struct {
	Position   Position   `json:"position"`
	Quaternion Quaternion `json:"quaternion"`
}

// Vec3 is a local-space coordinate triple in meters.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pose is a local rigid transform, as delivered by the tracking session.
type Pose struct {
	Position    Vec3       `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

// Validator returns the shared validator, configured to report JSON
// field names in errors.
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the record and all its services.
func (r *ServiceRecord) Validate() error {
	return Validator().Struct(r)
}

// Validate checks a single service.
func (s *Service) Validate() error {
	return Validator().Struct(s)
}

// Validate checks latitude and longitude ranges.
func (g *GeoPose) Validate() error {
	return Validator().Struct(g)
}

// ServicesByType collects all services of the given type across records,
// preserving record order.
func ServicesByType(records []ServiceRecord, t ServiceType) []Service {
	var out []Service
	for _, record := range records {
		for _, service := range record.Services {
			if service.Type == t {
				out = append(out, service)
			}
		}
	}
	return out
}

// FirstByType returns the first service of the given type, if any.
func FirstByType(records []ServiceRecord, t ServiceType) (Service, bool) {
	for _, record := range records {
		for _, service := range record.Services {
			if service.Type == t {
				return service, true
			}
		}
	}
	return Service{}, false
}

// CountByType tallies services per type across records.
func CountByType(records []ServiceRecord) map[ServiceType]int {
	counts := make(map[ServiceType]int)
	for _, record := range records {
		for _, service := range record.Services {
			counts[service.Type]++
		}
	}
	return counts
}
