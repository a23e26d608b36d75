package scene

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spiritoftheplace/sparcl/internal/logging"
)

// PrimitiveType names one of the placeholder shapes.
type PrimitiveType string

const (
	PrimitiveBox      PrimitiveType = "box"
	PrimitiveSphere   PrimitiveType = "sphere"
	PrimitivePlane    PrimitiveType = "plane"
	PrimitiveCylinder PrimitiveType = "cylinder"
	PrimitiveCone     PrimitiveType = "cone"
	PrimitiveTorus    PrimitiveType = "torus"
)

// Primitives lists every buildable shape in display order.
func Primitives() []PrimitiveType {
	return []PrimitiveType{
		PrimitiveBox, PrimitiveSphere, PrimitivePlane,
		PrimitiveCylinder, PrimitiveCone, PrimitiveTorus,
	}
}

// ParsePrimitive converts a user-supplied shape name.
func ParsePrimitive(s string) (PrimitiveType, error) {
	t := PrimitiveType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case PrimitiveBox, PrimitiveSphere, PrimitivePlane, PrimitiveCylinder, PrimitiveCone, PrimitiveTorus:
		return t, nil
	}
	return "", fmt.Errorf("unknown primitive %q", s)
}

// BuildPrimitive constructs the geometry for a shape with its default
// proportions.
func BuildPrimitive(t PrimitiveType) (*Geometry, error) {
	switch t {
	case PrimitiveBox:
		return NewBox(BoxOptions{}), nil
	case PrimitiveSphere:
		return NewSphere(SphereOptions{}), nil
	case PrimitivePlane:
		return NewPlane(PlaneOptions{}), nil
	case PrimitiveCylinder:
		return NewCylinder(CylinderOptions{}), nil
	case PrimitiveCone:
		return NewCone(ConeOptions{}), nil
	case PrimitiveTorus:
		return NewTorus(TorusOptions{}), nil
	}
	return nil, fmt.Errorf("unknown primitive %q", string(t))
}

// CreateModel builds a placeholder node: primitive geometry plus the
// uniform-color program. A zero scale means 1.
func CreateModel(t PrimitiveType, color Color, translucent bool, scale float32) (*Node, error) {
	geometry, err := BuildPrimitive(t)
	if err != nil {
		return nil, err
	}
	if scale == 0 {
		scale = 1
	}

	node := NewNode(string(t))
	node.Scale = mgl32.Vec3{scale, scale, scale}
	node.Mesh = &Mesh{
		Name:     string(t),
		Geometry: geometry,
		Program:  ColoredProgram(color, translucent),
	}

	logging.Events().ModelCreated(string(t), color.Hex())
	logging.SceneDebug("Created %s model color=%s translucent=%v scale=%.2f", t, color.Hex(), translucent, scale)
	return node, nil
}

// CreateAxes builds the local-axes debug helper: three boxes along +X,
// +Y and +Z colored red, green and blue. Zero arguments default to a
// 1 m length and 2 cm thickness.
func CreateAxes(length, thickness float32) *Node {
	if length == 0 {
		length = 1
	}
	if thickness == 0 {
		thickness = 0.02
	}

	root := NewNode("axes")

	x := NewNode("axis-x")
	x.Position = mgl32.Vec3{length / 2, 0, 0}
	x.Mesh = &Mesh{
		Name:     "axis-x",
		Geometry: NewBox(BoxOptions{Width: length, Height: thickness, Depth: thickness}),
		Program:  ColoredProgram(ColorRed, false),
	}

	y := NewNode("axis-y")
	y.Position = mgl32.Vec3{0, length / 2, 0}
	y.Mesh = &Mesh{
		Name:     "axis-y",
		Geometry: NewBox(BoxOptions{Width: thickness, Height: length, Depth: thickness}),
		Program:  ColoredProgram(ColorGreen, false),
	}

	z := NewNode("axis-z")
	z.Position = mgl32.Vec3{0, 0, length / 2}
	z.Mesh = &Mesh{
		Name:     "axis-z",
		Geometry: NewBox(BoxOptions{Width: thickness, Height: thickness, Depth: length}),
		Program:  ColoredProgram(ColorBlue, false),
	}

	root.Add(x).Add(y).Add(z)
	return root
}

// CreateReticle builds the hit-test ring: a thin torus rotated flat
// into the XZ plane so it hugs detected surfaces. Zero arguments
// default to a 10 cm ring with a 5 mm tube in white.
func CreateReticle(radius, tube float32, color Color) *Node {
	if radius == 0 {
		radius = 0.1
	}
	if tube == 0 {
		tube = 0.005
	}
	if color == (Color{}) {
		color = ColorWhite
	}

	node := NewNode("reticle")
	node.Quaternion = mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0})
	node.Mesh = &Mesh{
		Name: "reticle",
		Geometry: NewTorus(TorusOptions{
			Radius:          radius,
			Tube:            tube,
			RadialSegments:  8,
			TubularSegments: 24,
		}),
		Program: ColoredProgram(color, false),
	}
	return node
}

// DefaultPlaceholder is the stand-in shown for content that has no
// asset yet: a 20 cm box in a random color.
func DefaultPlaceholder() *Node {
	node, _ := CreateModel(PrimitiveBox, RandomColor(), false, 0.2)
	node.Name = "placeholder"
	return node
}

// ExperiencePlaceholder marks a launchable experience: an accent
// colored pedestal.
func ExperiencePlaceholder() *Node {
	node, _ := CreateModel(PrimitiveCylinder, ColorAccent, false, 0.3)
	node.Name = "experience"
	return node
}

// WaitingAnimation is shown while content downloads: a translucent
// sphere spinning around +Y.
func WaitingAnimation() *Node {
	node, _ := CreateModel(PrimitiveSphere, ColorWhite, true, 0.15)
	node.Name = "waiting"
	node.SpinAxis = mgl32.Vec3{0, 1, 0}
	return node
}

// ObjectDescription is a serializable recipe for a placeholder, the
// shape shared over the p2p channel so peers render the same object.
type ObjectDescription struct {
	Shape       PrimitiveType `json:"shape"`
	Color       string        `json:"color"`
	Scale       float32       `json:"scale"`
	Transparent bool          `json:"transparent"`
}

// RandomObjectDescription rolls a random placeholder recipe.
func RandomObjectDescription() ObjectDescription {
	shapes := Primitives()
	return ObjectDescription{
		Shape:       shapes[rand.Intn(len(shapes))],
		Color:       RandomColor().Hex(),
		Scale:       0.1 + rand.Float32()*0.2,
		Transparent: rand.Float32() < 0.25,
	}
}

// ModelFromDescription builds the node a description prescribes.
func ModelFromDescription(d ObjectDescription) (*Node, error) {
	color, err := Hex(d.Color)
	if err != nil {
		return nil, err
	}
	return CreateModel(d.Shape, color, d.Transparent, d.Scale)
}
