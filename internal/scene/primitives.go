package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Primitive builders. Option structs use zero values to mean "library
// default", matching the defaults of the web client's geometry
// constructors so placeholders keep their familiar proportions. All
// builders produce deterministic output for equal options.

// BoxOptions configures NewBox. Zero dimensions become 1, zero segment
// counts become 1.
type BoxOptions struct {
	Width  float32
	Height float32
	Depth  float32

	WidthSegments  int
	HeightSegments int
	DepthSegments  int
}

// NewBox builds an axis-aligned box centered on the origin.
func NewBox(opts BoxOptions) *Geometry {
	w := defaultF(opts.Width, 1)
	h := defaultF(opts.Height, 1)
	d := defaultF(opts.Depth, 1)
	sw := defaultI(opts.WidthSegments, 1)
	sh := defaultI(opts.HeightSegments, 1)
	sd := defaultI(opts.DepthSegments, 1)

	g := &Geometry{}
	buildBoxFace(g, 2, 1, 0, -1, -1, d, h, w, sd, sh)  // +x
	buildBoxFace(g, 2, 1, 0, 1, -1, d, h, -w, sd, sh)  // -x
	buildBoxFace(g, 0, 2, 1, 1, 1, w, d, h, sw, sd)    // +y
	buildBoxFace(g, 0, 2, 1, 1, -1, w, d, -h, sw, sd)  // -y
	buildBoxFace(g, 0, 1, 2, 1, -1, w, h, d, sw, sh)   // +z
	buildBoxFace(g, 0, 1, 2, -1, -1, w, h, -d, sw, sh) // -z
	return g
}

// buildBoxFace emits one grid-subdivided face. u, v, w index the
// vector components the face's horizontal, vertical, and normal axes
// map to; the sign of depth picks the facing direction.
func buildBoxFace(g *Geometry, u, v, w int, udir, vdir, width, height, depth float32, gridX, gridY int) {
	segW := width / float32(gridX)
	segH := height / float32(gridY)
	halfW := width / 2
	halfH := height / 2
	halfD := depth / 2

	start := uint32(len(g.Positions))
	var dir float32 = 1
	if depth < 0 {
		dir = -1
	}

	for iy := 0; iy <= gridY; iy++ {
		y := float32(iy)*segH - halfH
		for ix := 0; ix <= gridX; ix++ {
			x := float32(ix)*segW - halfW

			var p, n mgl32.Vec3
			p[u] = x * udir
			p[v] = y * vdir
			p[w] = halfD
			n[w] = dir

			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, n)
			g.UVs = append(g.UVs, mgl32.Vec2{
				float32(ix) / float32(gridX),
				1 - float32(iy)/float32(gridY),
			})
		}
	}

	stride := uint32(gridX + 1)
	for iy := 0; iy < gridY; iy++ {
		for ix := 0; ix < gridX; ix++ {
			a := start + uint32(ix) + stride*uint32(iy)
			b := start + uint32(ix) + stride*uint32(iy+1)
			c := start + uint32(ix+1) + stride*uint32(iy+1)
			d := start + uint32(ix+1) + stride*uint32(iy)
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
}

// PlaneOptions configures NewPlane. Zero dimensions become 1, zero
// segment counts become 1.
type PlaneOptions struct {
	Width  float32
	Height float32

	WidthSegments  int
	HeightSegments int
}

// NewPlane builds a rectangle in the XY plane facing +Z.
func NewPlane(opts PlaneOptions) *Geometry {
	w := defaultF(opts.Width, 1)
	h := defaultF(opts.Height, 1)
	sw := defaultI(opts.WidthSegments, 1)
	sh := defaultI(opts.HeightSegments, 1)

	segW := w / float32(sw)
	segH := h / float32(sh)
	halfW := w / 2
	halfH := h / 2

	g := &Geometry{}
	for iy := 0; iy <= sh; iy++ {
		y := float32(iy)*segH - halfH
		for ix := 0; ix <= sw; ix++ {
			x := float32(ix)*segW - halfW
			g.Positions = append(g.Positions, mgl32.Vec3{x, -y, 0})
			g.Normals = append(g.Normals, mgl32.Vec3{0, 0, 1})
			g.UVs = append(g.UVs, mgl32.Vec2{
				float32(ix) / float32(sw),
				1 - float32(iy)/float32(sh),
			})
		}
	}

	stride := uint32(sw + 1)
	for iy := 0; iy < sh; iy++ {
		for ix := 0; ix < sw; ix++ {
			a := uint32(ix) + stride*uint32(iy)
			b := uint32(ix) + stride*uint32(iy+1)
			c := uint32(ix+1) + stride*uint32(iy+1)
			d := uint32(ix+1) + stride*uint32(iy)
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
	return g
}

// SphereOptions configures NewSphere. Zero radius becomes 0.5, zero
// segment counts become 16x8, zero PhiLength becomes a full circle,
// zero ThetaLength a half circle.
type SphereOptions struct {
	Radius         float32
	WidthSegments  int
	HeightSegments int
	PhiStart       float32
	PhiLength      float32
	ThetaStart     float32
	ThetaLength    float32
}

// NewSphere builds a UV sphere centered on the origin.
func NewSphere(opts SphereOptions) *Geometry {
	radius := defaultF(opts.Radius, 0.5)
	sw := defaultI(opts.WidthSegments, 16)
	sh := defaultI(opts.HeightSegments, 8)
	if sw < 3 {
		sw = 3
	}
	if sh < 2 {
		sh = 2
	}
	phiStart := opts.PhiStart
	phiLength := defaultF(opts.PhiLength, 2*math.Pi)
	thetaStart := opts.ThetaStart
	thetaLength := defaultF(opts.ThetaLength, math.Pi)
	thetaEnd := float32(math.Min(float64(thetaStart+thetaLength), math.Pi))

	g := &Geometry{}
	grid := make([][]uint32, 0, sh+1)
	index := uint32(0)

	for iy := 0; iy <= sh; iy++ {
		row := make([]uint32, 0, sw+1)
		v := float32(iy) / float32(sh)

		// Pole vertices get a half-texel U offset so the texture seam
		// does not pinch.
		var uOffset float32
		switch {
		case iy == 0 && thetaStart == 0:
			uOffset = 0.5 / float32(sw)
		case iy == sh && thetaEnd == math.Pi:
			uOffset = -0.5 / float32(sw)
		}

		for ix := 0; ix <= sw; ix++ {
			u := float32(ix) / float32(sw)
			phi := phiStart + u*phiLength
			theta := thetaStart + v*thetaLength

			p := mgl32.Vec3{
				-radius * cos(phi) * sin(theta),
				radius * cos(theta),
				radius * sin(phi) * sin(theta),
			}
			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, p.Normalize())
			g.UVs = append(g.UVs, mgl32.Vec2{u + uOffset, 1 - v})
			row = append(row, index)
			index++
		}
		grid = append(grid, row)
	}

	for iy := 0; iy < sh; iy++ {
		for ix := 0; ix < sw; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			if iy != 0 || thetaStart > 0 {
				g.Indices = append(g.Indices, a, b, d)
			}
			if iy != sh-1 || thetaEnd < math.Pi {
				g.Indices = append(g.Indices, b, c, d)
			}
		}
	}
	return g
}

// CylinderOptions configures NewCylinder. Zero radii become 0.25, zero
// height becomes 1, zero segment counts become 8 radial by 1 height,
// zero ThetaLength a full circle. For a cone use NewCone; a zero
// RadiusTop here means "default", not "pointed".
type CylinderOptions struct {
	RadiusTop      float32
	RadiusBottom   float32
	Height         float32
	RadialSegments int
	HeightSegments int
	OpenEnded      bool
	ThetaStart     float32
	ThetaLength    float32
}

// NewCylinder builds a Y-axis cylinder centered on the origin.
func NewCylinder(opts CylinderOptions) *Geometry {
	return buildCylinder(
		defaultF(opts.RadiusTop, 0.25),
		defaultF(opts.RadiusBottom, 0.25),
		defaultF(opts.Height, 1),
		defaultI(opts.RadialSegments, 8),
		defaultI(opts.HeightSegments, 1),
		opts.OpenEnded,
		opts.ThetaStart,
		defaultF(opts.ThetaLength, 2*math.Pi),
	)
}

// ConeOptions configures NewCone. Zero radius becomes 0.25, zero
// height becomes 1.
type ConeOptions struct {
	Radius         float32
	Height         float32
	RadialSegments int
	HeightSegments int
	OpenEnded      bool
	ThetaStart     float32
	ThetaLength    float32
}

// NewCone builds a cone: a cylinder whose top radius is zero.
func NewCone(opts ConeOptions) *Geometry {
	return buildCylinder(
		0,
		defaultF(opts.Radius, 0.25),
		defaultF(opts.Height, 1),
		defaultI(opts.RadialSegments, 8),
		defaultI(opts.HeightSegments, 1),
		opts.OpenEnded,
		opts.ThetaStart,
		defaultF(opts.ThetaLength, 2*math.Pi),
	)
}

func buildCylinder(radiusTop, radiusBottom, height float32, radialSegments, heightSegments int, openEnded bool, thetaStart, thetaLength float32) *Geometry {
	g := &Geometry{}
	halfHeight := height / 2
	index := uint32(0)

	// Torso.
	slope := (radiusBottom - radiusTop) / height
	rows := make([][]uint32, 0, heightSegments+1)
	for iy := 0; iy <= heightSegments; iy++ {
		row := make([]uint32, 0, radialSegments+1)
		v := float32(iy) / float32(heightSegments)
		radius := v*(radiusBottom-radiusTop) + radiusTop
		for ix := 0; ix <= radialSegments; ix++ {
			u := float32(ix) / float32(radialSegments)
			theta := u*thetaLength + thetaStart
			sinT, cosT := sin(theta), cos(theta)

			g.Positions = append(g.Positions, mgl32.Vec3{
				radius * sinT,
				-v*height + halfHeight,
				radius * cosT,
			})
			g.Normals = append(g.Normals, mgl32.Vec3{sinT, slope, cosT}.Normalize())
			g.UVs = append(g.UVs, mgl32.Vec2{u, 1 - v})
			row = append(row, index)
			index++
		}
		rows = append(rows, row)
	}
	for ix := 0; ix < radialSegments; ix++ {
		for iy := 0; iy < heightSegments; iy++ {
			a := rows[iy][ix]
			b := rows[iy+1][ix]
			c := rows[iy+1][ix+1]
			d := rows[iy][ix+1]
			if radiusTop > 0 {
				g.Indices = append(g.Indices, a, b, d)
			}
			if radiusBottom > 0 {
				g.Indices = append(g.Indices, b, c, d)
			}
		}
	}

	// Caps.
	if !openEnded {
		if radiusTop > 0 {
			buildCylinderCap(g, radiusTop, halfHeight, 1, radialSegments, thetaStart, thetaLength)
		}
		if radiusBottom > 0 {
			buildCylinderCap(g, radiusBottom, halfHeight, -1, radialSegments, thetaStart, thetaLength)
		}
	}
	return g
}

func buildCylinderCap(g *Geometry, radius, halfHeight, sign float32, radialSegments int, thetaStart, thetaLength float32) {
	// One center vertex per fan triangle keeps UVs seam-free.
	centerStart := uint32(len(g.Positions))
	for ix := 1; ix <= radialSegments; ix++ {
		g.Positions = append(g.Positions, mgl32.Vec3{0, halfHeight * sign, 0})
		g.Normals = append(g.Normals, mgl32.Vec3{0, sign, 0})
		g.UVs = append(g.UVs, mgl32.Vec2{0.5, 0.5})
	}
	centerEnd := uint32(len(g.Positions))

	for ix := 0; ix <= radialSegments; ix++ {
		u := float32(ix) / float32(radialSegments)
		theta := u*thetaLength + thetaStart
		sinT, cosT := sin(theta), cos(theta)

		g.Positions = append(g.Positions, mgl32.Vec3{
			radius * sinT,
			halfHeight * sign,
			radius * cosT,
		})
		g.Normals = append(g.Normals, mgl32.Vec3{0, sign, 0})
		g.UVs = append(g.UVs, mgl32.Vec2{
			cosT*0.5 + 0.5,
			sinT*0.5*sign + 0.5,
		})
	}

	for ix := 0; ix < radialSegments; ix++ {
		c := centerStart + uint32(ix)
		i := centerEnd + uint32(ix)
		if sign > 0 {
			g.Indices = append(g.Indices, i, i+1, c)
		} else {
			g.Indices = append(g.Indices, i+1, i, c)
		}
	}
}

// TorusOptions configures NewTorus. Zero radius becomes 0.5, zero tube
// becomes 0.2, zero segment counts become 8 radial by 6 tubular, zero
// Arc a full circle.
type TorusOptions struct {
	Radius          float32
	Tube            float32
	RadialSegments  int
	TubularSegments int
	Arc             float32
}

// NewTorus builds a torus in the XY plane around the Z axis.
func NewTorus(opts TorusOptions) *Geometry {
	radius := defaultF(opts.Radius, 0.5)
	tube := defaultF(opts.Tube, 0.2)
	radial := defaultI(opts.RadialSegments, 8)
	tubular := defaultI(opts.TubularSegments, 6)
	arc := defaultF(opts.Arc, 2*math.Pi)

	g := &Geometry{}
	for j := 0; j <= radial; j++ {
		v := float32(j) / float32(radial) * 2 * math.Pi
		for i := 0; i <= tubular; i++ {
			u := float32(i) / float32(tubular) * arc

			p := mgl32.Vec3{
				(radius + tube*cos(v)) * cos(u),
				(radius + tube*cos(v)) * sin(u),
				tube * sin(v),
			}
			center := mgl32.Vec3{radius * cos(u), radius * sin(u), 0}

			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, p.Sub(center).Normalize())
			g.UVs = append(g.UVs, mgl32.Vec2{
				float32(i) / float32(tubular),
				float32(j) / float32(radial),
			})
		}
	}

	stride := uint32(tubular + 1)
	for j := 1; j <= radial; j++ {
		for i := 1; i <= tubular; i++ {
			a := stride*uint32(j) + uint32(i-1)
			b := stride*uint32(j-1) + uint32(i-1)
			c := stride*uint32(j-1) + uint32(i)
			d := stride*uint32(j) + uint32(i)
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
	return g
}

func defaultF(v, def float32) float32 {
	if v == 0 {
		return def
	}
	return v
}

func defaultI(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func sin(x float32) float32 { return float32(math.Sin(float64(x))) }
func cos(x float32) float32 { return float32(math.Cos(float64(x))) }
