package scene

import "github.com/go-gl/mathgl/mgl32"

// The placeholder shader pair. One uniform color with a fixed
// directional light so primitives read as 3D against the camera feed.
const (
	coloredVertexShader = `attribute vec3 position;
attribute vec3 normal;

uniform mat4 modelViewMatrix;
uniform mat4 projectionMatrix;
uniform mat3 normalMatrix;

varying vec3 vNormal;

void main() {
    vNormal = normalize(normalMatrix * normal);
    gl_Position = projectionMatrix * modelViewMatrix * vec4(position, 1.0);
}
`

	coloredFragmentShader = `precision highp float;

uniform vec4 uColor;

varying vec3 vNormal;

void main() {
    vec3 normal = normalize(vNormal);
    float lighting = dot(normal, normalize(vec3(-0.3, 0.8, 0.6)));
    gl_FragColor.rgb = uColor.rgb + lighting * 0.1;
    gl_FragColor.a = uColor.a;
}
`
)

// Program is a shader pair plus its draw state. Uniforms are plain
// values keyed by uniform name; the renderer uploads them as-is.
type Program struct {
	Vertex      string
	Fragment    string
	Uniforms    map[string]interface{}
	Transparent bool
	DepthTest   bool
}

// ColoredProgram builds the standard uniform-color program used by
// every placeholder. Translucent programs render at half alpha with
// blending enabled.
func ColoredProgram(color Color, translucent bool) *Program {
	if translucent {
		color = color.WithAlpha(color.A * 0.5)
	}
	return &Program{
		Vertex:   coloredVertexShader,
		Fragment: coloredFragmentShader,
		Uniforms: map[string]interface{}{
			"uColor": color.Vec4(),
		},
		Transparent: translucent,
		DepthTest:   true,
	}
}

// Color reads the uColor uniform back out of a program.
func (p *Program) Color() (Color, bool) {
	v, ok := p.Uniforms["uColor"].(mgl32.Vec4)
	if !ok {
		return Color{}, false
	}
	return Color{R: v.X(), G: v.Y(), B: v.Z(), A: v.W()}, true
}
