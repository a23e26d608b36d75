package scene

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
)

// WriteOBJ flattens a node tree into Wavefront OBJ text: one object
// per mesh-carrying node, world transforms applied, vertices shared
// across v/vt/vn by index. Output is deterministic for a given tree.
func WriteOBJ(w io.Writer, root *Node) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "# sparcl placeholder export"); err != nil {
		return err
	}

	offset := 1 // OBJ indices are 1-based and global across objects
	var writeErr error
	root.TraverseWorld(func(node *Node, world mgl32.Mat4) {
		if node.Mesh == nil || node.Mesh.Geometry == nil || writeErr != nil {
			return
		}
		g := node.Mesh.Geometry

		name := node.Name
		if name == "" {
			name = node.Mesh.Name
		}
		if name == "" {
			name = "mesh"
		}
		if _, err := fmt.Fprintf(bw, "o %s\n", name); err != nil {
			writeErr = err
			return
		}

		normalMat := world.Mat3().Inv().Transpose()
		for _, p := range g.Positions {
			wp := world.Mul4x1(p.Vec4(1)).Vec3()
			if _, err := fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", wp.X(), wp.Y(), wp.Z()); err != nil {
				writeErr = err
				return
			}
		}
		for _, uv := range g.UVs {
			if _, err := fmt.Fprintf(bw, "vt %.6f %.6f\n", uv.X(), uv.Y()); err != nil {
				writeErr = err
				return
			}
		}
		for _, n := range g.Normals {
			wn := normalMat.Mul3x1(n)
			if l := wn.Len(); l > 0 {
				wn = wn.Mul(1 / l)
			}
			if _, err := fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", wn.X(), wn.Y(), wn.Z()); err != nil {
				writeErr = err
				return
			}
		}
		for i := 0; i+2 < len(g.Indices); i += 3 {
			a := int(g.Indices[i]) + offset
			b := int(g.Indices[i+1]) + offset
			c := int(g.Indices[i+2]) + offset
			if _, err := fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c); err != nil {
				writeErr = err
				return
			}
		}
		offset += len(g.Positions)
	})
	if writeErr != nil {
		return writeErr
	}
	return bw.Flush()
}
