package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/spiritoftheplace/sparcl/internal/state"
)

// settingRow is one line on the settings page. Values are read from
// the cells at render time so external changes show up on repaint.
type settingRow struct {
	key   string
	value func() string
	hint  string
	edit  func(delta int) error
	reset func() error
}

// SettingsPageModel renders and edits the persisted settings.
type SettingsPageModel struct {
	viewport viewport.Model
	st       *state.AppState
	styles   Styles
	rows     []settingRow
	cursor   int
	width    int
	height   int
}

// NewSettingsPageModel creates the settings page component.
func NewSettingsPageModel(st *state.AppState, styles Styles) SettingsPageModel {
	vp := viewport.New(80, 20)
	m := SettingsPageModel{
		viewport: vp,
		st:       st,
		styles:   styles,
		rows:     settingRows(st),
	}
	m.UpdateContent()
	return m
}

// settingRows binds each row to its typed cell.
func settingRows(st *state.AppState) []settingRow {
	boolRow := func(key string, cell *state.Persistent[bool]) settingRow {
		return settingRow{
			key:   key,
			value: func() string { return fmt.Sprintf("%v", cell.Get()) },
			hint:  "space toggles",
			edit: func(int) error {
				return cell.Update(func(v bool) bool { return !v })
			},
			reset: cell.Reset,
		}
	}

	return []settingRow{
		{
			key:   state.KeyARMode,
			value: func() string { return string(st.ARMode.Get()) },
			hint:  "←/→ cycle modes",
			edit: func(delta int) error {
				if delta == 0 {
					delta = 1
				}
				modes := state.ARModes()
				idx := 0
				for i, m := range modes {
					if m == st.ARMode.Get() {
						idx = i
						break
					}
				}
				idx = (idx + delta + len(modes)) % len(modes)
				return st.ARMode.Set(modes[idx])
			},
			reset: st.ARMode.Reset,
		},
		boolRow(state.KeyShowDashboard, st.ShowDashboard),
		boolRow(state.KeyAllowP2P, st.AllowP2P),
		{
			key:   state.KeyMarkerImage,
			value: func() string { return st.MarkerImage.Get() },
			hint:  "edit via 'sparcl settings set'",
			reset: st.MarkerImage.Reset,
		},
		{
			key:   state.KeyMarkerImageWidth,
			value: func() string { return fmt.Sprintf("%.2f m", st.MarkerImageWidth.Get()) },
			hint:  "←/→ adjust",
			edit: func(delta int) error {
				if delta == 0 {
					return nil
				}
				w := st.MarkerImageWidth.Get() + 0.05*float64(delta)
				if w < state.MinMarkerImageWidth {
					w = state.MinMarkerImageWidth
				}
				if w > state.MaxMarkerImageWidth {
					w = state.MaxMarkerImageWidth
				}
				return st.MarkerImageWidth.Set(w)
			},
			reset: st.MarkerImageWidth.Reset,
		},
		{
			key:   state.KeyCreatorModeSettings,
			value: func() string { return compactJSON(st.CreatorModeSettings.Get()) },
			hint:  "edit via 'sparcl settings set'",
			reset: st.CreatorModeSettings.Reset,
		},
		{
			key:   state.KeyExperimentModeSettings,
			value: func() string { return compactJSON(st.ExperimentModeSettings.Get()) },
			hint:  "edit via 'sparcl settings set'",
			reset: st.ExperimentModeSettings.Reset,
		},
		boolRow(state.KeyDebugAppendCameraImage, st.DebugAppendCameraImage),
		boolRow(state.KeyDebugShowLocalAxes, st.DebugShowLocalAxes),
		boolRow(state.KeyDebugUseGeolocationSensors, st.DebugUseGeolocationSensors),
	}
}

func compactJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// SetSize updates the size of the viewport.
func (m *SettingsPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h - 4 // Reserve space for header/footer
	m.UpdateContent()
}

// UpdateContent refreshes the viewport from the current cell values.
func (m *SettingsPageModel) UpdateContent() {
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render("Settings"))
	sb.WriteString("\n\n")

	for i, row := range m.rows {
		line := fmt.Sprintf("%-30s %s", row.key, row.value())
		if i == m.cursor {
			sb.WriteString("▸ " + m.styles.Selected.Render(line))
			if row.hint != "" {
				sb.WriteString(m.styles.Muted.Render("  " + row.hint))
			}
		} else {
			sb.WriteString("  " + m.styles.Body.Render(line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("space/enter edits · u resets to default"))
	m.viewport.SetContent(sb.String())
}

// Update handles messages.
func (m SettingsPageModel) Update(msg tea.Msg) (SettingsPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			m.UpdateContent()
			return m, nil
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
			m.UpdateContent()
			return m, nil
		case " ", "enter":
			return m.edit(0)
		case "left", "h":
			return m.edit(-1)
		case "right", "l":
			return m.edit(1)
		case "u":
			row := m.rows[m.cursor]
			if row.reset == nil {
				return m, nil
			}
			if err := row.reset(); err != nil {
				return m, reportError(err)
			}
			m.UpdateContent()
			return m, reportStatus(row.key + " reset to default")
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m SettingsPageModel) edit(delta int) (SettingsPageModel, tea.Cmd) {
	if m.cursor >= len(m.rows) {
		return m, nil
	}
	row := m.rows[m.cursor]
	if row.edit == nil {
		return m, reportStatus(row.key + " is read-only here; use 'sparcl settings set'")
	}
	if err := row.edit(delta); err != nil {
		return m, reportError(err)
	}
	m.UpdateContent()
	return m, nil
}

// View renders the page.
func (m SettingsPageModel) View() string {
	return m.viewport.View()
}
