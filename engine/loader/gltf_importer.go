package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

// importGLTF builds an Asset from a parsed document: every mesh instance reachable from the
// default scene becomes a Part placed by its node's world transform.
//
// Parameters:
//   - p: the parser holding a loaded document
//   - fallbackName: the asset name used when the scene is unnamed
//
// Returns:
//   - *Asset: the imported asset
//   - error: error if extraction fails
func importGLTF(p *gltfParser, fallbackName string) (*Asset, error) {
	doc := p.document
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	materials, err := newMaterialExtractor(p).extractAll()
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}

	asset := &Asset{Name: fallbackName, Materials: materials}
	roots := rootNodes(doc)
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		asset.Name = common.Coalesce(doc.Scenes[*doc.Scene].Name, fallbackName)
	}

	meshes := make(map[int][]extractedPrimitive)
	visited := make(map[int]bool)
	var walk func(index int, parent [16]float32) error
	walk = func(index int, parent [16]float32) error {
		if index < 0 || index >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", index)
		}
		if visited[index] {
			return fmt.Errorf("node %d is reachable twice; the hierarchy must be a forest", index)
		}
		visited[index] = true

		node := &doc.Nodes[index]
		world := common.Mul4x(parent, nodeMatrix(node))

		if node.Mesh != nil {
			prims, ok := meshes[*node.Mesh]
			if !ok {
				var err error
				if prims, err = extractMesh(p, *node.Mesh); err != nil {
					return err
				}
				meshes[*node.Mesh] = prims
			}
			for _, prim := range prims {
				if prim.material >= len(materials) {
					return fmt.Errorf("node %d references material %d of %d", index, prim.material, len(materials))
				}
				asset.Parts = append(asset.Parts, Part{
					Name:     common.Coalesce(node.Name, prim.mesh.Name()),
					Mesh:     prim.mesh,
					Material: prim.material,
					World:    world,
					Joints:   prim.joints,
				})
			}
		}

		for _, child := range node.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(root, common.IdentityMatrix()); err != nil {
			return nil, err
		}
	}
	return asset, nil
}

// rootNodes returns the default scene's roots, or every parentless node when the document
// declares no scene.
func rootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			s = *doc.Scene
		}
		return doc.Scenes[s].Nodes
	}

	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}

// nodeMatrix returns the node's local transform, T * R * S when no matrix is given.
func nodeMatrix(n *gltfNode) [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}

	t := common.Vec3{}
	if n.Translation != nil {
		t = *n.Translation
	}
	q := common.IdentityQuat()
	if n.Rotation != nil {
		q = *n.Rotation
	}
	s := common.Vec3{1, 1, 1}
	if n.Scale != nil {
		s = *n.Scale
	}
	return common.ComposeTRS(t, q, s)
}
