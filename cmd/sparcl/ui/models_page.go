package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/spiritoftheplace/sparcl/internal/scene"
)

// modelEntry is one placeholder model on the models page.
type modelEntry struct {
	name      string
	kind      string
	meshes    int
	vertices  int
	triangles int
}

// ModelsPageModel lists the placeholder primitives and assemblies and
// exports them as OBJ files.
type ModelsPageModel struct {
	viewport  viewport.Model
	styles    Styles
	workspace string
	entries   []modelEntry
	cursor    int
	width     int
	height    int
}

// NewModelsPageModel creates the models page component.
func NewModelsPageModel(workspace string, styles Styles) ModelsPageModel {
	vp := viewport.New(80, 20)
	m := ModelsPageModel{
		viewport:  vp,
		styles:    styles,
		workspace: workspace,
		entries:   modelEntries(),
	}
	m.UpdateContent()
	return m
}

// modelEntries sizes every primitive and assembly. Geometry is
// deterministic, so this runs once.
func modelEntries() []modelEntry {
	var entries []modelEntry
	for _, t := range scene.Primitives() {
		geo, err := scene.BuildPrimitive(t)
		if err != nil {
			continue
		}
		entries = append(entries, modelEntry{
			name:      string(t),
			kind:      "primitive",
			meshes:    1,
			vertices:  geo.VertexCount(),
			triangles: geo.TriangleCount(),
		})
	}
	for _, name := range []string{"placeholder", "experience", "waiting", "axes", "reticle"} {
		node := assemblyNode(name)
		if node == nil {
			continue
		}
		vertices, triangles := 0, 0
		node.Traverse(func(n *scene.Node) {
			if n.Mesh != nil && n.Mesh.Geometry != nil {
				vertices += n.Mesh.Geometry.VertexCount()
				triangles += n.Mesh.Geometry.TriangleCount()
			}
		})
		entries = append(entries, modelEntry{
			name:      name,
			kind:      "assembly",
			meshes:    node.MeshCount(),
			vertices:  vertices,
			triangles: triangles,
		})
	}
	return entries
}

// assemblyNode builds a named assembly with its session proportions.
func assemblyNode(name string) *scene.Node {
	switch name {
	case "placeholder":
		return scene.DefaultPlaceholder()
	case "experience":
		return scene.ExperiencePlaceholder()
	case "waiting":
		return scene.WaitingAnimation()
	case "axes":
		return scene.CreateAxes(0, 0)
	case "reticle":
		return scene.CreateReticle(0, 0, scene.Color{})
	}
	return nil
}

// SetSize updates the size of the viewport.
func (m *ModelsPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h - 4 // Reserve space for header/footer
	m.UpdateContent()
}

// UpdateContent refreshes the viewport from the model entries.
func (m *ModelsPageModel) UpdateContent() {
	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("Placeholder models"))
	sb.WriteString("\n\n")

	table := NewSimpleTable("", []string{"", "model", "kind", "meshes", "vertices", "triangles"})
	for i, e := range m.entries {
		mark := " "
		if i == m.cursor {
			mark = "▸"
		}
		table.AddRow(mark, e.name, e.kind,
			fmt.Sprintf("%d", e.meshes),
			fmt.Sprintf("%d", e.vertices),
			fmt.Sprintf("%d", e.triangles))
	}
	sb.WriteString(table.View(m.styles))

	sb.WriteString(m.styles.Muted.Render("x exports the selected model as OBJ"))
	m.viewport.SetContent(sb.String())
}

// Update handles messages.
func (m ModelsPageModel) Update(msg tea.Msg) (ModelsPageModel, tea.Cmd) {
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
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
			m.UpdateContent()
			return m, nil
		case "x", "enter":
			return m.export()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ModelsPageModel) export() (ModelsPageModel, tea.Cmd) {
	if m.cursor >= len(m.entries) {
		return m, nil
	}
	entry := m.entries[m.cursor]
	path := filepath.Join(m.workspace, entry.name+".obj")
	if err := exportModelOBJ(entry.name, path); err != nil {
		return m, reportError(err)
	}
	return m, reportStatus("wrote " + path)
}

// exportModelOBJ writes the named model to path. Primitives get the
// accent color at unit scale.
func exportModelOBJ(name, path string) error {
	node := assemblyNode(name)
	if node == nil {
		t, err := scene.ParsePrimitive(name)
		if err != nil {
			return err
		}
		node, err = scene.CreateModel(t, scene.ColorAccent, false, 1)
		if err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return scene.WriteOBJ(f, node)
}

// View renders the page.
func (m ModelsPageModel) View() string {
	return m.viewport.View()
}
