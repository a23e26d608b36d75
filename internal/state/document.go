package state

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/spiritoftheplace/sparcl/internal/logging"
)

// SettingsDocument is the human-editable form of the persisted
// settings, used by export and import. Nil fields mean "leave the
// current value alone" on import.
type SettingsDocument struct {
	ARMode             *string           `yaml:"arMode,omitempty" validate:"omitempty,oneof=auto oscp marker creator dev experiment"`
	ShowDashboard      *bool             `yaml:"showDashboard,omitempty"`
	AllowP2PNetwork    *bool             `yaml:"allowP2PNetwork,omitempty"`
	MarkerImage        *string           `yaml:"markerImage,omitempty"`
	MarkerImageWidth   *float64          `yaml:"markerImageWidth,omitempty" validate:"omitempty,gte=0.01,lte=10"`
	CreatorMode        *CreatorDocument  `yaml:"creatorMode,omitempty"`
	ExperimentSettings map[string]string `yaml:"experimentSettings,omitempty"`
	Debug              *DebugDocument    `yaml:"debug,omitempty"`
}

// CreatorDocument is the creator mode section of a settings document.
type CreatorDocument struct {
	ContentURL  string `yaml:"contentUrl" validate:"omitempty,url"`
	ContentType string `yaml:"contentType" validate:"omitempty,oneof=model scene experience"`
}

// DebugDocument is the debug toggles section of a settings document.
type DebugDocument struct {
	AppendCameraImage     *bool `yaml:"appendCameraImage,omitempty"`
	ShowLocalAxes         *bool `yaml:"showLocalAxes,omitempty"`
	UseGeolocationSensors *bool `yaml:"useGeolocationSensors,omitempty"`
}

var (
	docValidator     *validator.Validate
	docValidatorOnce sync.Once
)

// documentValidator reports errors with yaml field names so messages
// match what the user typed in the file.
func documentValidator() *validator.Validate {
	docValidatorOnce.Do(func() {
		docValidator = validator.New()
		docValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return docValidator
}

// Validate checks the document's field constraints.
func (d *SettingsDocument) Validate() error {
	if err := documentValidator().Struct(d); err != nil {
		return fmt.Errorf("settings document: %w", err)
	}
	return nil
}

// YAML renders the document.
func (d *SettingsDocument) YAML() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode settings document: %w", err)
	}
	return data, nil
}

// ParseSettingsDocument decodes and validates a YAML settings
// document.
func ParseSettingsDocument(data []byte) (*SettingsDocument, error) {
	var doc SettingsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse settings document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ExportDocument copies every persisted setting into a document.
func (s *AppState) ExportDocument() *SettingsDocument {
	mode := string(s.ARMode.Get())
	show := s.ShowDashboard.Get()
	p2p := s.AllowP2P.Get()
	marker := s.MarkerImage.Get()
	width := s.MarkerImageWidth.Get()
	creator := s.CreatorModeSettings.Get()
	appendImg := s.DebugAppendCameraImage.Get()
	axes := s.DebugShowLocalAxes.Get()
	sensors := s.DebugUseGeolocationSensors.Get()

	doc := &SettingsDocument{
		ARMode:           &mode,
		ShowDashboard:    &show,
		AllowP2PNetwork:  &p2p,
		MarkerImage:      &marker,
		MarkerImageWidth: &width,
		CreatorMode: &CreatorDocument{
			ContentURL:  creator.ContentURL,
			ContentType: string(creator.ContentType),
		},
		Debug: &DebugDocument{
			AppendCameraImage:     &appendImg,
			ShowLocalAxes:         &axes,
			UseGeolocationSensors: &sensors,
		},
	}
	if exp := s.ExperimentModeSettings.Get(); len(exp) > 0 {
		doc.ExperimentSettings = make(map[string]string, len(exp))
		for k, v := range exp {
			doc.ExperimentSettings[k] = v
		}
	}
	logging.Events().Log(logging.Event{
		Type:     logging.EventSettingsExported,
		Category: string(logging.CategoryState),
		Success:  true,
	})
	return doc
}

// ImportDocument validates doc and applies its non-nil fields.
// Validation runs up front, so a bad value rejects the whole document
// before anything is written. A backend write failure aborts the
// remaining fields; earlier ones stay applied.
func (s *AppState) ImportDocument(doc *SettingsDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	applied := 0
	apply := func(fn func() error) error {
		if err := fn(); err != nil {
			return err
		}
		applied++
		return nil
	}

	if doc.ARMode != nil {
		mode, err := ParseARMode(*doc.ARMode)
		if err != nil {
			return err
		}
		if err := apply(func() error { return s.ARMode.Set(mode) }); err != nil {
			return err
		}
	}
	if doc.ShowDashboard != nil {
		if err := apply(func() error { return s.ShowDashboard.Set(*doc.ShowDashboard) }); err != nil {
			return err
		}
	}
	if doc.AllowP2PNetwork != nil {
		if err := apply(func() error { return s.AllowP2P.Set(*doc.AllowP2PNetwork) }); err != nil {
			return err
		}
	}
	if doc.MarkerImage != nil {
		if err := apply(func() error { return s.MarkerImage.Set(*doc.MarkerImage) }); err != nil {
			return err
		}
	}
	if doc.MarkerImageWidth != nil {
		if err := apply(func() error { return s.MarkerImageWidth.Set(*doc.MarkerImageWidth) }); err != nil {
			return err
		}
	}
	if doc.CreatorMode != nil {
		settings := CreatorSettings{
			ContentURL:  doc.CreatorMode.ContentURL,
			ContentType: ContentType(doc.CreatorMode.ContentType),
		}
		if settings.ContentType == "" {
			settings.ContentType = ContentModel
		}
		if err := apply(func() error { return s.CreatorModeSettings.Set(settings) }); err != nil {
			return err
		}
	}
	if doc.ExperimentSettings != nil {
		exp := make(map[string]string, len(doc.ExperimentSettings))
		for k, v := range doc.ExperimentSettings {
			exp[k] = v
		}
		if err := apply(func() error { return s.ExperimentModeSettings.Set(exp) }); err != nil {
			return err
		}
	}
	if doc.Debug != nil {
		if doc.Debug.AppendCameraImage != nil {
			if err := apply(func() error { return s.DebugAppendCameraImage.Set(*doc.Debug.AppendCameraImage) }); err != nil {
				return err
			}
		}
		if doc.Debug.ShowLocalAxes != nil {
			if err := apply(func() error { return s.DebugShowLocalAxes.Set(*doc.Debug.ShowLocalAxes) }); err != nil {
				return err
			}
		}
		if doc.Debug.UseGeolocationSensors != nil {
			if err := apply(func() error { return s.DebugUseGeolocationSensors.Set(*doc.Debug.UseGeolocationSensors) }); err != nil {
				return err
			}
		}
	}

	logging.Events().Log(logging.Event{
		Type:     logging.EventSettingsImported,
		Category: string(logging.CategoryState),
		Success:  true,
		Message:  fmt.Sprintf("%d settings applied", applied),
	})
	logging.State("Imported settings document (%d fields)", applied)
	return nil
}
