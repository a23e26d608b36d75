// Package main implements the placeholder model CLI commands for sparcl.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spiritoftheplace/sparcl/internal/scene"
)

var (
	modelsOut         string
	modelsColor       string
	modelsScale       float32
	modelsTranslucent bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and export placeholder models",
	Long: `Work with the 3D placeholders an AR session renders while real
content loads: six primitive shapes plus the built-in assemblies
(placeholder, experience, waiting, axes, reticle).`,
	RunE: runModelsList,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List primitives and assemblies with their mesh sizes",
	RunE:  runModelsList,
}

var modelsExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export a model as a Wavefront OBJ file",
	Long: `Export a model as a Wavefront OBJ file for inspection in any 3D
viewer.

<name> is a primitive (box, sphere, plane, cylinder, cone, torus), an
assembly (placeholder, experience, waiting, axes, reticle), or
"random" for a rolled object description.`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsExport,
}

func init() {
	modelsExportCmd.Flags().StringVarP(&modelsOut, "out", "o", "", "Output file (default: <name>.obj)")
	modelsExportCmd.Flags().StringVarP(&modelsColor, "color", "c", "", "Hex color for primitives (default: accent coral)")
	modelsExportCmd.Flags().Float32VarP(&modelsScale, "scale", "s", 1, "Uniform scale for primitives")
	modelsExportCmd.Flags().BoolVar(&modelsTranslucent, "translucent", false, "Render primitives translucent")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsExportCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	fmt.Println("Primitives")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Printf("  %-12s %10s %10s\n", "name", "vertices", "triangles")
	for _, t := range scene.Primitives() {
		geo, err := scene.BuildPrimitive(t)
		if err != nil {
			return err
		}
		fmt.Printf("  %-12s %10d %10d\n", t, geo.VertexCount(), geo.TriangleCount())
	}

	fmt.Println("\nAssemblies")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Printf("  %-12s %10s %10s\n", "name", "meshes", "triangles")
	for _, name := range assemblyNames() {
		node, err := buildModel(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-12s %10d %10d\n", name, node.MeshCount(), countTriangles(node))
	}
	return nil
}

func runModelsExport(cmd *cobra.Command, args []string) error {
	name := strings.ToLower(args[0])
	node, err := buildModel(name)
	if err != nil {
		return err
	}

	out := modelsOut
	if out == "" {
		out = name + ".obj"
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()

	if err := scene.WriteOBJ(f, node); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Printf("✅ Wrote %s (%d meshes, %d triangles)\n", out, node.MeshCount(), countTriangles(node))
	return nil
}

func assemblyNames() []string {
	return []string{"placeholder", "experience", "waiting", "axes", "reticle"}
}

// buildModel resolves a model name to a scene node. Assemblies use
// their session proportions; primitives honor the export flags.
func buildModel(name string) (*scene.Node, error) {
	switch name {
	case "placeholder":
		return scene.DefaultPlaceholder(), nil
	case "experience":
		return scene.ExperiencePlaceholder(), nil
	case "waiting":
		return scene.WaitingAnimation(), nil
	case "axes":
		return scene.CreateAxes(modelsScale, 0), nil
	case "reticle":
		// Zero color keeps the reticle's white default.
		var color scene.Color
		if modelsColor != "" {
			c, err := scene.Hex(modelsColor)
			if err != nil {
				return nil, err
			}
			color = c
		}
		return scene.CreateReticle(0.1*modelsScale, 0, color), nil
	case "random":
		return scene.ModelFromDescription(scene.RandomObjectDescription())
	}

	t, err := scene.ParsePrimitive(name)
	if err != nil {
		return nil, fmt.Errorf("unknown model %q (primitives: %s; assemblies: %s, random)",
			name, joinPrimitives(), strings.Join(assemblyNames(), ", "))
	}
	color, err := exportColor()
	if err != nil {
		return nil, err
	}
	return scene.CreateModel(t, color, modelsTranslucent, modelsScale)
}

func exportColor() (scene.Color, error) {
	if modelsColor == "" {
		return scene.ColorAccent, nil
	}
	return scene.Hex(modelsColor)
}

func joinPrimitives() string {
	names := make([]string, 0, len(scene.Primitives()))
	for _, t := range scene.Primitives() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func countTriangles(root *scene.Node) int {
	total := 0
	root.Traverse(func(n *scene.Node) {
		if n.Mesh != nil && n.Mesh.Geometry != nil {
			total += n.Mesh.Geometry.TriangleCount()
		}
	})
	return total
}
