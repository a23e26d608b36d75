package scene

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// The fixed palette the built-in assemblies use.
var (
	ColorRed   = Color{R: 1, A: 1}
	ColorGreen = Color{G: 1, A: 1}
	ColorBlue  = Color{B: 1, A: 1}
	ColorWhite = Color{R: 1, G: 1, B: 1, A: 1}
	// ColorAccent is the coral highlight the web client uses for
	// experience placeholders.
	ColorAccent = Color{R: 1, G: 0.498, B: 0.314, A: 1}
)

// Hex parses "#rrggbb" or "#rrggbbaa", with or without the leading
// hash. Alpha defaults to 1.
func Hex(s string) (Color, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(raw) != 6 && len(raw) != 8 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(raw[:6], "%02x%02x%02x", &r, &g, &b); err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	c := Color{
		R: float32(r) / 255,
		G: float32(g) / 255,
		B: float32(b) / 255,
		A: 1,
	}
	if len(raw) == 8 {
		var a uint8
		if _, err := fmt.Sscanf(raw[6:], "%02x", &a); err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		c.A = float32(a) / 255
	}
	return c, nil
}

// MustHex is Hex for compile-time constants; it panics on bad input.
func MustHex(s string) Color {
	c, err := Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex renders the color as "#rrggbb", dropping alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channelByte(c.R), channelByte(c.G), channelByte(c.B))
}

func channelByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// WithAlpha returns the color with a replaced alpha channel.
func (c Color) WithAlpha(a float32) Color {
	c.A = a
	return c
}

// Vec4 returns the color as an RGBA vector for shader uniforms.
func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{c.R, c.G, c.B, c.A}
}

// RandomColor returns an opaque random color.
func RandomColor() Color {
	return Color{
		R: rand.Float32(),
		G: rand.Float32(),
		B: rand.Float32(),
		A: 1,
	}
}
