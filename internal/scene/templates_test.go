package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestParsePrimitive(t *testing.T) {
	tests := []struct {
		in      string
		want    PrimitiveType
		wantErr bool
	}{
		{"box", PrimitiveBox, false},
		{" Sphere ", PrimitiveSphere, false},
		{"TORUS", PrimitiveTorus, false},
		{"pyramid", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePrimitive(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePrimitive(%q) accepted", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePrimitive(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrimitive(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateModelEveryPrimitive(t *testing.T) {
	for _, p := range Primitives() {
		t.Run(string(p), func(t *testing.T) {
			node, err := CreateModel(p, ColorGreen, false, 0)
			if err != nil {
				t.Fatal(err)
			}
			if node.Name != string(p) {
				t.Errorf("node name = %q, want %q", node.Name, p)
			}
			if node.Scale != (mgl32.Vec3{1, 1, 1}) {
				t.Errorf("default scale = %v, want unit", node.Scale)
			}
			if node.Mesh == nil || node.Mesh.Geometry == nil || node.Mesh.Program == nil {
				t.Fatal("node missing mesh parts")
			}
			if err := node.Mesh.Geometry.Validate(); err != nil {
				t.Errorf("geometry invalid: %v", err)
			}
			c, ok := node.Mesh.Program.Color()
			if !ok || c != ColorGreen {
				t.Errorf("program color = %v, want %v", c, ColorGreen)
			}
		})
	}
}

func TestCreateModelUnknownType(t *testing.T) {
	if _, err := CreateModel("pyramid", ColorRed, false, 1); err == nil {
		t.Fatal("expected unknown primitive to fail")
	}
}

func TestCreateModelScales(t *testing.T) {
	node, err := CreateModel(PrimitiveBox, ColorRed, false, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if node.Scale != (mgl32.Vec3{0.2, 0.2, 0.2}) {
		t.Fatalf("scale = %v, want 0.2 uniform", node.Scale)
	}
}

func TestCreateAxes(t *testing.T) {
	axes := CreateAxes(2, 0.1)

	if len(axes.Children) != 3 {
		t.Fatalf("axes has %d children, want 3", len(axes.Children))
	}
	wantNames := []string{"axis-x", "axis-y", "axis-z"}
	wantColors := []Color{ColorRed, ColorGreen, ColorBlue}
	axisOf := []int{0, 1, 2}

	for i, child := range axes.Children {
		if child.Name != wantNames[i] {
			t.Errorf("child %d name = %q, want %q", i, child.Name, wantNames[i])
		}
		c, ok := child.Mesh.Program.Color()
		if !ok || c != wantColors[i] {
			t.Errorf("child %d color = %v, want %v", i, c, wantColors[i])
		}

		// Each bar spans [0, length] along its own axis in world space.
		g := child.Mesh.Geometry.Clone()
		g.Transform(child.Matrix())
		min, max := g.Bounds()
		axis := axisOf[i]
		if math.Abs(float64(min[axis])) > 1e-5 || math.Abs(float64(max[axis]-2)) > 1e-5 {
			t.Errorf("child %d spans %v..%v on axis %d, want 0..2", i, min[axis], max[axis], axis)
		}
	}
}

func TestCreateReticleLiesFlat(t *testing.T) {
	reticle := CreateReticle(0, 0, Color{})

	g := reticle.Mesh.Geometry.Clone()
	g.Transform(reticle.Matrix())
	min, max := g.Bounds()

	// The ring is rotated out of XY into the XZ plane: thin in Y,
	// ring-sized in X and Z.
	if float64(max.Y()-min.Y()) > 0.011 {
		t.Fatalf("reticle thickness in Y = %v, want tube-sized", max.Y()-min.Y())
	}
	if max.X() < 0.09 || max.Z() < 0.05 {
		t.Fatalf("reticle extent = %v..%v, want ring-sized in XZ", min, max)
	}

	c, ok := reticle.Mesh.Program.Color()
	if !ok || c != ColorWhite {
		t.Fatalf("default reticle color = %v, want white", c)
	}
}

func TestDefaultPlaceholder(t *testing.T) {
	node := DefaultPlaceholder()
	if node.Name != "placeholder" {
		t.Errorf("name = %q", node.Name)
	}
	if node.Scale != (mgl32.Vec3{0.2, 0.2, 0.2}) {
		t.Errorf("scale = %v, want 0.2", node.Scale)
	}
	if node.Mesh.Program.Transparent {
		t.Error("placeholder should be opaque")
	}
}

func TestWaitingAnimationSpins(t *testing.T) {
	node := WaitingAnimation()
	if node.SpinAxis == (mgl32.Vec3{}) {
		t.Fatal("waiting animation has no spin axis")
	}
	if !node.Mesh.Program.Transparent {
		t.Fatal("waiting animation should be translucent")
	}
}

func TestExperiencePlaceholder(t *testing.T) {
	node := ExperiencePlaceholder()
	c, ok := node.Mesh.Program.Color()
	if !ok || c != ColorAccent {
		t.Fatalf("experience color = %v, want accent", c)
	}
}

func TestRandomObjectDescription(t *testing.T) {
	known := make(map[PrimitiveType]bool)
	for _, p := range Primitives() {
		known[p] = true
	}

	for i := 0; i < 32; i++ {
		d := RandomObjectDescription()
		if !known[d.Shape] {
			t.Fatalf("unknown shape %q", d.Shape)
		}
		if d.Scale < 0.1 || d.Scale > 0.3 {
			t.Fatalf("scale %v outside [0.1, 0.3]", d.Scale)
		}
		if _, err := Hex(d.Color); err != nil {
			t.Fatalf("description color %q unparsable: %v", d.Color, err)
		}
	}
}

func TestModelFromDescription(t *testing.T) {
	d := ObjectDescription{Shape: PrimitiveTorus, Color: "#336699", Scale: 0.25, Transparent: true}
	node, err := ModelFromDescription(d)
	if err != nil {
		t.Fatal(err)
	}
	if node.Name != "torus" {
		t.Errorf("name = %q", node.Name)
	}
	if !node.Mesh.Program.Transparent {
		t.Error("transparent flag not applied")
	}
	if node.Scale.X() != 0.25 {
		t.Errorf("scale = %v", node.Scale)
	}

	if _, err := ModelFromDescription(ObjectDescription{Shape: PrimitiveBox, Color: "nope"}); err == nil {
		t.Fatal("expected bad color to fail")
	}
}
