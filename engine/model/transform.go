package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// ResolveWorldTransforms computes the world transform of every node in the document.
// Every root of every scene is visited depth first with world = parentWorld * local. A node
// that was already reached through an earlier path is not visited again, and nodes no scene
// reaches keep the identity transform. The result is indexed like doc.Nodes.
//
// Parameters:
//   - doc: the document whose node forest is resolved
//
// Returns:
//   - []mgl32.Mat4: one world transform per node
func ResolveWorldTransforms(doc *gltf.Document) []mgl32.Mat4 {
	world := make([]mgl32.Mat4, len(doc.Nodes))
	resolved := make([]bool, len(doc.Nodes))

	var visit func(node int, parent mgl32.Mat4)
	visit = func(node int, parent mgl32.Mat4) {
		if node < 0 || node >= len(doc.Nodes) || resolved[node] {
			return
		}
		n := doc.Nodes[node]
		world[node] = parent.Mul4(loader.LocalTransform(n))
		resolved[node] = true
		for _, child := range n.Children {
			visit(child, world[node])
		}
	}

	identity := mgl32.Ident4()
	for _, scene := range doc.Scenes {
		for _, root := range scene.Nodes {
			visit(root, identity)
		}
	}

	for i := range world {
		if !resolved[i] {
			world[i] = identity
		}
	}
	return world
}

// validateNodeGraph checks that every scene root and child reference names an existing node,
// that no node has more than one parent, and that scene roots have none. Together these keep
// every traversal from a scene root finite.
func validateNodeGraph(doc *gltf.Document) error {
	parent := make([]int, len(doc.Nodes))
	for i := range parent {
		parent[i] = -1
	}
	for i, n := range doc.Nodes {
		for _, child := range n.Children {
			if child < 0 || child >= len(doc.Nodes) {
				return fmt.Errorf("node %d: child index %d out of range", i, child)
			}
			if parent[child] >= 0 {
				return fmt.Errorf("node %d: child %d already has parent %d", i, child, parent[child])
			}
			parent[child] = i
		}
		if n.Mesh != nil && (*n.Mesh < 0 || *n.Mesh >= len(doc.Meshes)) {
			return fmt.Errorf("node %d: mesh index %d out of range", i, *n.Mesh)
		}
	}
	for s, scene := range doc.Scenes {
		for _, root := range scene.Nodes {
			if root < 0 || root >= len(doc.Nodes) {
				return fmt.Errorf("scene %d: root node index %d out of range", s, root)
			}
			if parent[root] >= 0 {
				return fmt.Errorf("scene %d: root node %d has parent %d", s, root, parent[root])
			}
		}
	}
	return nil
}
