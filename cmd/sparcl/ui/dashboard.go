package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	json "github.com/goccy/go-json"

	"github.com/spiritoftheplace/sparcl/internal/config"
	"github.com/spiritoftheplace/sparcl/internal/logging"
	"github.com/spiritoftheplace/sparcl/internal/oscp"
	"github.com/spiritoftheplace/sparcl/internal/state"
)

// Messages exchanged inside the dashboard.
type (
	// settingChangedMsg reports a cell change, including ones made
	// outside this process.
	settingChangedMsg struct {
		key   string
		value string
	}

	// servicesChangedMsg reports that the service records changed.
	servicesChangedMsg struct{}

	// statusMsg puts a transient note in the footer.
	statusMsg string

	// errorMsg puts a transient error in the footer.
	errorMsg struct{ err error }

	// clearStatusMsg blanks the footer note.
	clearStatusMsg struct{}
)

func reportStatus(s string) tea.Cmd {
	return func() tea.Msg { return statusMsg(s) }
}

func reportError(err error) tea.Cmd {
	return func() tea.Msg { return errorMsg{err: err} }
}

func clearStatusAfter() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

type page int

const (
	pageSettings page = iota
	pageServices
	pageModels
	pageCount
)

const footerHeight = 3

// Options configures the dashboard.
type Options struct {
	State          *state.AppState
	Config         *config.Config
	UserConfig     *config.UserConfig
	UserConfigPath string
	Workspace      string

	// Force keeps the dashboard open even while the showdashboard
	// setting is off.
	Force bool
}

// Model is the top-level dashboard model.
type Model struct {
	opts     Options
	st       *state.AppState
	theme    Theme
	styles   Styles
	renderer *glamour.TermRenderer

	page     page
	settings SettingsPageModel
	services ServicesPageModel
	models   ModelsPageModel

	// events carries cell notifications from whatever goroutine wrote
	// the cell into the bubbletea loop.
	events chan tea.Msg
	unsubs []state.Unsubscribe

	width         int
	height        int
	ready         bool
	showHelp      bool
	helpView      string
	status        string
	statusIsError bool
}

// NewModel builds the dashboard over an already hydrated state.
func NewModel(opts Options) (*Model, error) {
	theme := ThemeByName(opts.UserConfig.GetTheme())
	styles := NewStyles(theme)

	m := &Model{
		opts:     opts,
		st:       opts.State,
		theme:    theme,
		styles:   styles,
		settings: NewSettingsPageModel(opts.State, styles),
		services: NewServicesPageModel(opts.State, styles),
		models:   NewModelsPageModel(opts.Workspace, styles),
		events:   make(chan tea.Msg, 32),
	}
	if err := m.buildRenderer(80); err != nil {
		return nil, err
	}
	m.subscribe()
	logging.UI("Dashboard opened (theme=%s, workspace=%s)", themeName(theme), opts.Workspace)
	return m, nil
}

// Close drops the cell subscriptions. Call after the program exits.
func (m *Model) Close() {
	for _, u := range m.unsubs {
		u()
	}
}

// subscribe forwards cell changes into the event channel. The
// immediate callback Subscribe makes is skipped; only real changes
// repaint. A full channel drops, the repaint stale at worst.
func (m *Model) subscribe() {
	subscribePersisted(m, m.st.ARMode)
	subscribePersisted(m, m.st.ShowDashboard)
	subscribePersisted(m, m.st.AllowP2P)
	subscribePersisted(m, m.st.MarkerImage)
	subscribePersisted(m, m.st.MarkerImageWidth)
	subscribePersisted(m, m.st.CreatorModeSettings)
	subscribePersisted(m, m.st.ExperimentModeSettings)
	subscribePersisted(m, m.st.DebugAppendCameraImage)
	subscribePersisted(m, m.st.DebugShowLocalAxes)
	subscribePersisted(m, m.st.DebugUseGeolocationSensors)

	first := true
	unsub := m.st.Services.Subscribe(func([]oscp.ServiceRecord) {
		if first {
			first = false
			return
		}
		select {
		case m.events <- servicesChangedMsg{}:
		default:
		}
	})
	m.unsubs = append(m.unsubs, unsub)
}

func subscribePersisted[T any](m *Model, cell *state.Persistent[T]) {
	first := true
	unsub := cell.Subscribe(func(v T) {
		if first {
			first = false
			return
		}
		value := fmt.Sprintf("%v", v)
		if data, err := json.Marshal(v); err == nil {
			value = string(data)
		}
		select {
		case m.events <- settingChangedMsg{key: cell.Key(), value: value}:
		default:
		}
	})
	m.unsubs = append(m.unsubs, unsub)
}

// listen waits for the next forwarded cell change.
func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// buildRenderer rebuilds the markdown renderer for the current theme
// and width, and re-renders the help overlay with it.
func (m *Model) buildRenderer(wrap int) error {
	var opts []glamour.TermRendererOption
	if m.theme.IsDark {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath("light"))
	}
	opts = append(opts, glamour.WithWordWrap(wrap))

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("failed to build markdown renderer: %w", err)
	}
	m.renderer = renderer
	m.helpView = m.renderMarkdown(helpMarkdown)
	return nil
}

// renderMarkdown renders md, falling back to the raw text. glamour can
// panic on odd terminal styles, so the render is fenced.
func (m *Model) renderMarkdown(md string) string {
	out, err := safeRender(m.renderer, md)
	if err != nil {
		logging.UI("Markdown render failed: %v", err)
		return md
	}
	return out
}

func safeRender(r *glamour.TermRenderer, md string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("markdown render panic: %v", rec)
		}
	}()
	return r.Render(md)
}

// Init starts listening for cell changes.
func (m *Model) Init() tea.Cmd {
	return m.listen()
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.settings.SetSize(msg.Width, msg.Height-footerHeight)
		m.services.SetSize(msg.Width, msg.Height-footerHeight)
		m.models.SetSize(msg.Width, msg.Height-footerHeight)
		wrap := msg.Width - 8
		if wrap < 20 {
			wrap = 20
		}
		if err := m.buildRenderer(wrap); err != nil {
			m.status = err.Error()
			m.statusIsError = true
		}
		return m, nil

	case settingChangedMsg:
		// Toggling showdashboard off closes the dashboard, the same
		// way the web overlay disappears.
		if msg.key == state.KeyShowDashboard && !m.st.ShowDashboard.Get() && !m.opts.Force {
			return m, tea.Quit
		}
		m.settings.UpdateContent()
		m.status = fmt.Sprintf("%s = %s", msg.key, msg.value)
		m.statusIsError = false
		return m, tea.Batch(m.listen(), clearStatusAfter())

	case servicesChangedMsg:
		m.services.UpdateContent()
		m.status = "services updated"
		m.statusIsError = false
		return m, tea.Batch(m.listen(), clearStatusAfter())

	case statusMsg:
		m.status = string(msg)
		m.statusIsError = false
		return m, clearStatusAfter()

	case errorMsg:
		m.status = msg.err.Error()
		m.statusIsError = true
		return m, clearStatusAfter()

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			switch msg.String() {
			case "?", "esc", "q":
				m.showHelp = false
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		case "tab":
			m.page = (m.page + 1) % pageCount
			return m, nil
		case "shift+tab":
			m.page = (m.page + pageCount - 1) % pageCount
			return m, nil
		case "1":
			m.page = pageSettings
			return m, nil
		case "2":
			m.page = pageServices
			return m, nil
		case "3":
			m.page = pageModels
			return m, nil
		case "t":
			return m, m.toggleTheme()
		case "r":
			if err := m.st.ReloadPersisted(); err != nil {
				return m, reportError(err)
			}
			m.settings.UpdateContent()
			return m, reportStatus("settings reloaded from storage")
		}
	}

	// Everything else goes to the active page.
	var cmd tea.Cmd
	switch m.page {
	case pageSettings:
		m.settings, cmd = m.settings.Update(msg)
	case pageServices:
		m.services, cmd = m.services.Update(msg)
	case pageModels:
		m.models, cmd = m.models.Update(msg)
	}
	return m, cmd
}

// toggleTheme flips light/dark and persists the choice in the user
// config.
func (m *Model) toggleTheme() tea.Cmd {
	if m.theme.IsDark {
		m.theme = LightTheme()
	} else {
		m.theme = DarkTheme()
	}
	m.applyStyles()

	name := themeName(m.theme)
	if err := m.opts.UserConfig.SetTheme(name); err != nil {
		return reportError(err)
	}
	if err := m.opts.UserConfig.Save(m.opts.UserConfigPath); err != nil {
		return reportError(err)
	}
	return reportStatus(name + " theme saved")
}

func themeName(t Theme) string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (m *Model) applyStyles() {
	m.styles = NewStyles(m.theme)
	m.settings.styles = m.styles
	m.services.styles = m.styles
	m.models.styles = m.styles
	m.settings.UpdateContent()
	m.services.UpdateContent()
	m.models.UpdateContent()

	wrap := m.width - 8
	if wrap < 20 {
		wrap = 20
	}
	if err := m.buildRenderer(wrap); err != nil {
		m.status = err.Error()
		m.statusIsError = true
	}
}

// View renders the dashboard.
func (m *Model) View() string {
	if !m.ready {
		return "Loading dashboard..."
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")

	if m.showHelp {
		sb.WriteString(m.styles.Overlay.Render(m.helpView))
	} else {
		switch m.page {
		case pageSettings:
			sb.WriteString(m.settings.View())
		case pageServices:
			sb.WriteString(m.services.View())
		case pageModels:
			sb.WriteString(m.models.View())
		}
	}

	sb.WriteString("\n")
	sb.WriteString(m.footerView())
	return sb.String()
}

func (m *Model) headerView() string {
	names := []string{"settings", "services", "models"}
	tabs := make([]string, len(names))
	for i, name := range names {
		if page(i) == m.page {
			tabs[i] = m.styles.ActiveTab.Render(name)
		} else {
			tabs[i] = m.styles.Tab.Render(name)
		}
	}

	name := "sparcl"
	if m.opts.Config != nil && m.opts.Config.Name != "" {
		name = m.opts.Config.Name
	}
	title := m.styles.Header.Render(name)
	mode := m.styles.Badge.Render(string(m.st.ARMode.Get()))
	line := title + " " + strings.Join(tabs, " ") + "  " + mode
	return line + "\n" + m.styles.RenderDivider(m.width)
}

func (m *Model) footerView() string {
	help := "tab switch · ? help · t theme · r reload · q quit"
	out := m.styles.RenderDivider(m.width) + "\n" + m.styles.Footer.Render(help)
	if m.status == "" {
		return out
	}
	style := m.styles.Success
	if m.statusIsError {
		style = m.styles.Error
	}
	return out + "\n" + style.Render("  "+m.status)
}
