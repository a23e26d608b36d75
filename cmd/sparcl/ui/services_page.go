package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/spiritoftheplace/sparcl/internal/oscp"
	"github.com/spiritoftheplace/sparcl/internal/state"
)

// serviceRow is one service on the services page.
type serviceRow struct {
	svc  oscp.Service
	kind oscp.ServiceType
}

// ServicesPageModel lists discovered spatial services and manages the
// geopose and content selections.
type ServicesPageModel struct {
	viewport viewport.Model
	st       *state.AppState
	styles   Styles
	rows     []serviceRow
	cursor   int
	width    int
	height   int
}

// NewServicesPageModel creates the services page component.
func NewServicesPageModel(st *state.AppState, styles Styles) ServicesPageModel {
	vp := viewport.New(80, 20)
	m := ServicesPageModel{
		viewport: vp,
		st:       st,
		styles:   styles,
	}
	m.UpdateContent()
	return m
}

// SetSize updates the size of the viewport.
func (m *ServicesPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h - 4 // Reserve space for header/footer
	m.UpdateContent()
}

// rebuild regroups the rows from the derived service cells.
func (m *ServicesPageModel) rebuild() {
	m.rows = m.rows[:0]
	for _, svc := range m.st.GeoPoseServices.Get() {
		m.rows = append(m.rows, serviceRow{svc: svc, kind: oscp.ServiceGeoPose})
	}
	for _, svc := range m.st.ContentServices.Get() {
		m.rows = append(m.rows, serviceRow{svc: svc, kind: oscp.ServiceContentDiscovery})
	}
	for _, svc := range m.st.P2PServices.Get() {
		m.rows = append(m.rows, serviceRow{svc: svc, kind: oscp.ServiceP2PMaster})
	}
	if m.cursor >= len(m.rows) {
		m.cursor = 0
	}
}

// UpdateContent refreshes the viewport from the service cells.
func (m *ServicesPageModel) UpdateContent() {
	m.rebuild()

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("Spatial services"))
	sb.WriteString("\n")

	if len(m.rows) == 0 {
		sb.WriteString("\nNo services imported.\n\n")
		sb.WriteString(m.styles.Muted.Render("Run 'sparcl services import <file>' with a discovery response."))
		m.viewport.SetContent(sb.String())
		return
	}

	selected := m.st.SelectedGeoPoseService.Get()
	selections := m.st.SelectedContentServices.Get()

	var lastKind oscp.ServiceType
	for i, row := range m.rows {
		if row.kind != lastKind {
			sb.WriteString("\n" + m.styles.Title.Render(string(row.kind)) + "\n")
			lastKind = row.kind
		}

		mark := "  "
		switch row.kind {
		case oscp.ServiceGeoPose:
			if selected != nil && selected.ID == row.svc.ID {
				mark = m.styles.Success.Render("✓ ")
			}
		case oscp.ServiceContentDiscovery:
			if sel, ok := selections[row.svc.ID]; ok && sel.IsSelected {
				mark = m.styles.Success.Render("✓ ")
			}
		}

		line := fmt.Sprintf("%-28s %s", serviceTitle(row.svc), row.svc.URL)
		if i == m.cursor {
			sb.WriteString(mark + m.styles.Selected.Render(line))
		} else {
			sb.WriteString(mark + m.styles.Body.Render(line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("enter selects the geopose service, toggles a content service"))
	m.viewport.SetContent(sb.String())
}

// Update handles messages.
func (m ServicesPageModel) Update(msg tea.Msg) (ServicesPageModel, tea.Cmd) {
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
			return m.choose()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ServicesPageModel) choose() (ServicesPageModel, tea.Cmd) {
	if m.cursor >= len(m.rows) {
		return m, nil
	}
	row := m.rows[m.cursor]
	switch row.kind {
	case oscp.ServiceGeoPose:
		if err := m.st.SelectGeoPoseService(row.svc.ID); err != nil {
			return m, reportError(err)
		}
		m.UpdateContent()
		return m, reportStatus("localisation via " + serviceTitle(row.svc))
	case oscp.ServiceContentDiscovery:
		sel := m.st.SelectedContentServices.Get()[row.svc.ID]
		sel.IsSelected = !sel.IsSelected
		if err := m.st.SetContentSelection(row.svc.ID, sel); err != nil {
			return m, reportError(err)
		}
		m.UpdateContent()
		return m, nil
	default:
		return m, reportStatus("the p2p master is chosen by the network")
	}
}

func serviceTitle(svc oscp.Service) string {
	if svc.Title != "" {
		return svc.Title
	}
	return svc.ID
}

// View renders the page.
func (m ServicesPageModel) View() string {
	return m.viewport.View()
}
