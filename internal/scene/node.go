package scene

import "github.com/go-gl/mathgl/mgl32"

// Mesh pairs a geometry with the program that draws it.
type Mesh struct {
	Name     string
	Geometry *Geometry
	Program  *Program
}

// Node is one element of the scene graph: a local transform, an
// optional mesh, and children. Nodes are plain data; rendering and
// animation happen elsewhere. SpinAxis, when nonzero, asks the host to
// rotate the node around that local axis while it is on screen.
type Node struct {
	Name       string
	Position   mgl32.Vec3
	Quaternion mgl32.Quat
	Scale      mgl32.Vec3
	SpinAxis   mgl32.Vec3
	Mesh       *Mesh
	Children   []*Node
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:       name,
		Quaternion: mgl32.QuatIdent(),
		Scale:      mgl32.Vec3{1, 1, 1},
	}
}

// Add appends a child and returns the node for chaining.
func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// Matrix composes the local transform as translate * rotate * scale.
func (n *Node) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	r := n.Quaternion.Mat4()
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// Traverse visits the node and its descendants depth-first in child
// order.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Traverse(fn)
	}
}

// TraverseWorld visits the tree depth-first, handing each node its
// accumulated world matrix.
func (n *Node) TraverseWorld(fn func(*Node, mgl32.Mat4)) {
	n.traverseWorld(mgl32.Ident4(), fn)
}

func (n *Node) traverseWorld(parent mgl32.Mat4, fn func(*Node, mgl32.Mat4)) {
	world := parent.Mul4(n.Matrix())
	fn(n, world)
	for _, child := range n.Children {
		child.traverseWorld(world, fn)
	}
}

// MeshCount returns the number of nodes in the tree carrying a mesh.
func (n *Node) MeshCount() int {
	count := 0
	n.Traverse(func(node *Node) {
		if node.Mesh != nil {
			count++
		}
	})
	return count
}
