package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
)

// gltfPrimitive extraction result: one mesh per primitive plus the glTF material index it uses
// (-1 when the primitive has none).
type extractedPrimitive struct {
	mesh     model.Mesh
	material int
	joints   int
}

// extractMesh converts every triangle primitive of a glTF mesh into a model.Mesh.
//
// Parameters:
//   - p: the parser holding the document
//   - meshIndex: the glTF mesh index
//
// Returns:
//   - []extractedPrimitive: one entry per primitive
//   - error: error if any primitive cannot be read
func extractMesh(p *gltfParser, meshIndex int) ([]extractedPrimitive, error) {
	doc := p.document
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}
	gm := &doc.Meshes[meshIndex]

	out := make([]extractedPrimitive, 0, len(gm.Primitives))
	for i := range gm.Primitives {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", meshIndex)
		}
		if i > 0 {
			name = fmt.Sprintf("%s_prim%d", name, i)
		}
		prim, err := extractPrimitive(p, &gm.Primitives[i], name)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, i, err)
		}
		out = append(out, prim)
	}
	return out, nil
}

func extractPrimitive(p *gltfParser, prim *gltfPrimitive, name string) (extractedPrimitive, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return extractedPrimitive{}, fmt.Errorf("unsupported primitive mode %d (only triangles)", *prim.Mode)
	}
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return extractedPrimitive{}, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := p.readFloats(posIdx, gltfAccessorTypeVec3)
	if err != nil {
		return extractedPrimitive{}, fmt.Errorf("positions: %w", err)
	}

	n := len(positions) / 3
	vertices := make([]model.GPUVertex, n)
	for i := range vertices {
		copy(vertices[i].Position[:], positions[i*3:])
		vertices[i].Color = [4]float32{1, 1, 1, 1}
	}

	hasNormals, err := readAttribute(p, prim, "NORMAL", gltfAccessorTypeVec3, n, func(i int, v []float32) {
		copy(vertices[i].Normal[:], v)
	})
	if err != nil {
		return extractedPrimitive{}, err
	}
	// texture space is bottom-left origin, glTF is top-left
	if _, err := readAttribute(p, prim, "TEXCOORD_0", gltfAccessorTypeVec2, n, func(i int, v []float32) {
		vertices[i].TexCoord = [2]float32{v[0], 1 - v[1]}
	}); err != nil {
		return extractedPrimitive{}, err
	}
	if _, err := readColors(p, prim, vertices); err != nil {
		return extractedPrimitive{}, err
	}
	// flipping v mirrors the bitangent, so handedness flips with it
	hasTangents, err := readAttribute(p, prim, "TANGENT", gltfAccessorTypeVec4, n, func(i int, v []float32) {
		vertices[i].Tangent = [4]float32{v[0], v[1], v[2], -v[3]}
	})
	if err != nil {
		return extractedPrimitive{}, err
	}
	joints, err := readSkin(p, prim, vertices)
	if err != nil {
		return extractedPrimitive{}, err
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = p.readUints(*prim.Indices, gltfAccessorTypeScalar); err != nil {
			return extractedPrimitive{}, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= n {
				return extractedPrimitive{}, fmt.Errorf("index %d exceeds vertex count %d", idx, n)
			}
		}
	} else {
		indices = make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	indices = indices[:len(indices)-len(indices)%3]

	if !hasNormals {
		generateNormals(vertices, indices)
	}
	if !hasTangents {
		generateTangents(vertices, indices)
	}

	material := -1
	if prim.Material != nil {
		material = *prim.Material
	}
	return extractedPrimitive{
		mesh:     model.NewMesh(model.WithName(name), model.WithGeometry(vertices, indices), model.WithSkinned(joints > 0)),
		material: material,
		joints:   joints,
	}, nil
}

// readAttribute reads an optional float attribute and hands each element to set.
// Reports whether the attribute was present.
func readAttribute(p *gltfParser, prim *gltfPrimitive, name, accType string, count int, set func(i int, v []float32)) (bool, error) {
	idx, ok := prim.Attributes[name]
	if !ok {
		return false, nil
	}
	data, err := p.readFloats(idx, accType)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	c := componentCount(accType)
	if len(data)/c != count {
		return false, fmt.Errorf("%s has %d elements, want %d", name, len(data)/c, count)
	}
	for i := 0; i < count; i++ {
		set(i, data[i*c:(i+1)*c])
	}
	return true, nil
}

// readColors accepts COLOR_0 as VEC3 or VEC4.
func readColors(p *gltfParser, prim *gltfPrimitive, vertices []model.GPUVertex) (bool, error) {
	idx, ok := prim.Attributes["COLOR_0"]
	if !ok {
		return false, nil
	}
	accType := gltfAccessorTypeVec4
	if idx >= 0 && idx < len(p.document.Accessors) && p.document.Accessors[idx].Type == gltfAccessorTypeVec3 {
		accType = gltfAccessorTypeVec3
	}
	return readAttribute(p, prim, "COLOR_0", accType, len(vertices), func(i int, v []float32) {
		vertices[i].Color = [4]float32{v[0], v[1], v[2], 1}
		if len(v) == 4 {
			vertices[i].Color[3] = v[3]
		}
	})
}

// readSkin copies JOINTS_0/WEIGHTS_0 and returns the joint palette size the mesh needs
// (0 for unskinned meshes).
func readSkin(p *gltfParser, prim *gltfPrimitive, vertices []model.GPUVertex) (int, error) {
	jIdx, hasJoints := prim.Attributes["JOINTS_0"]
	if _, hasWeights := prim.Attributes["WEIGHTS_0"]; !hasJoints || !hasWeights {
		return 0, nil
	}
	joints, err := p.readUints(jIdx, gltfAccessorTypeVec4)
	if err != nil {
		return 0, fmt.Errorf("JOINTS_0: %w", err)
	}
	if len(joints)/4 != len(vertices) {
		return 0, fmt.Errorf("JOINTS_0 has %d elements, want %d", len(joints)/4, len(vertices))
	}
	if _, err := readAttribute(p, prim, "WEIGHTS_0", gltfAccessorTypeVec4, len(vertices), func(i int, v []float32) {
		copy(vertices[i].BoneWeights[:], v)
	}); err != nil {
		return 0, err
	}

	palette := 0
	for i := range vertices {
		for k := 0; k < 4; k++ {
			j := joints[i*4+k]
			vertices[i].BoneIndices[k] = j
			if vertices[i].BoneWeights[k] > 0 {
				palette = max(palette, int(j)+1)
			}
		}
	}
	return palette, nil
}

// generateNormals accumulates area-weighted face normals onto shared vertices.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	accum := make([]common.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		p0 := common.Vec3(vertices[a].Position)
		face := common.Vec3(vertices[b].Position).Sub(p0).Cross(common.Vec3(vertices[c].Position).Sub(p0))
		accum[a] = accum[a].Add(face)
		accum[b] = accum[b].Add(face)
		accum[c] = accum[c].Add(face)
	}
	for i := range vertices {
		if accum[i].Length() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = accum[i].Normalize()
	}
}

// generateTangents derives per-vertex tangents from UV gradients and orthonormalizes them
// against the normal; w carries the bitangent handedness.
func generateTangents(vertices []model.GPUVertex, indices []uint32) {
	tan := make([]common.Vec3, len(vertices))
	btan := make([]common.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		p0 := common.Vec3(vertices[a].Position)
		e1 := common.Vec3(vertices[b].Position).Sub(p0)
		e2 := common.Vec3(vertices[c].Position).Sub(p0)
		uv0 := common.Vec2(vertices[a].TexCoord)
		d1 := common.Vec2(vertices[b].TexCoord).Sub(uv0)
		d2 := common.Vec2(vertices[c].TexCoord).Sub(uv0)

		det := d1[0]*d2[1] - d1[1]*d2[0]
		if det == 0 {
			continue
		}
		inv := 1 / det
		t := e1.Scale(d2[1] * inv).Sub(e2.Scale(d1[1] * inv))
		bt := e2.Scale(d1[0] * inv).Sub(e1.Scale(d2[0] * inv))
		for _, idx := range [3]uint32{a, b, c} {
			tan[idx] = tan[idx].Add(t)
			btan[idx] = btan[idx].Add(bt)
		}
	}

	for i := range vertices {
		n := common.Vec3(vertices[i].Normal)
		ortho := tan[i].Sub(n.Scale(n.Dot(tan[i])))
		if ortho.Length() < 1e-6 {
			vertices[i].Tangent = [4]float32{1, 0, 0, 1}
			continue
		}
		ortho = ortho.Normalize()
		w := float32(1)
		if n.Cross(ortho).Dot(btan[i]) < 0 {
			w = -1
		}
		vertices[i].Tangent = ortho.Vec4(w)
	}
}
