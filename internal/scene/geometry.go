// Package scene builds the in-memory 3D objects sparcl shows while
// real content loads: primitive meshes, colored shader programs, and
// small assemblies like the coordinate axes and the hit-test reticle.
// Nothing here talks to a GPU; meshes are plain data for the renderer
// or the OBJ exporter.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Geometry is an indexed triangle mesh. Positions, Normals and UVs run
// in parallel; Indices reference them in counter-clockwise winding
// with outward normals.
type Geometry struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// TriangleCount returns the number of indexed triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Indices) / 3
}

// Validate checks the structural invariants: parallel attribute
// arrays, triangle-aligned indices, every index in range.
func (g *Geometry) Validate() error {
	if len(g.Normals) != len(g.Positions) {
		return fmt.Errorf("geometry has %d normals for %d positions", len(g.Normals), len(g.Positions))
	}
	if len(g.UVs) != len(g.Positions) {
		return fmt.Errorf("geometry has %d uvs for %d positions", len(g.UVs), len(g.Positions))
	}
	if len(g.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(g.Indices))
	}
	count := uint32(len(g.Positions))
	for i, idx := range g.Indices {
		if idx >= count {
			return fmt.Errorf("index %d at position %d out of range (%d vertices)", idx, i, count)
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box. Empty geometry yields
// zero vectors.
func (g *Geometry) Bounds() (min, max mgl32.Vec3) {
	if len(g.Positions) == 0 {
		return min, max
	}
	min = g.Positions[0]
	max = g.Positions[0]
	for _, p := range g.Positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return min, max
}

// Transform applies m to positions and the inverse-transpose of m to
// normals, in place.
func (g *Geometry) Transform(m mgl32.Mat4) {
	normalMat := m.Mat3().Inv().Transpose()
	for i, p := range g.Positions {
		g.Positions[i] = m.Mul4x1(p.Vec4(1)).Vec3()
	}
	for i, n := range g.Normals {
		rotated := normalMat.Mul3x1(n)
		if l := rotated.Len(); l > 0 {
			rotated = rotated.Mul(1 / l)
		}
		g.Normals[i] = rotated
	}
}

// Merge appends other's vertices and triangles, offsetting indices.
func (g *Geometry) Merge(other *Geometry) {
	offset := uint32(len(g.Positions))
	g.Positions = append(g.Positions, other.Positions...)
	g.Normals = append(g.Normals, other.Normals...)
	g.UVs = append(g.UVs, other.UVs...)
	for _, idx := range other.Indices {
		g.Indices = append(g.Indices, idx+offset)
	}
}

// Clone returns a deep copy.
func (g *Geometry) Clone() *Geometry {
	c := &Geometry{
		Positions: make([]mgl32.Vec3, len(g.Positions)),
		Normals:   make([]mgl32.Vec3, len(g.Normals)),
		UVs:       make([]mgl32.Vec2, len(g.UVs)),
		Indices:   make([]uint32, len(g.Indices)),
	}
	copy(c.Positions, g.Positions)
	copy(c.Normals, g.Normals)
	copy(c.UVs, g.UVs)
	copy(c.Indices, g.Indices)
	return c
}
