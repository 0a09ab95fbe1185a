package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
)

func TestSceneAssignsIDs(t *testing.T) {
	s := NewScene("test")
	box := model.NewBox(common.Vec3{1, 1, 1})

	a := NewNode(box, 1)
	assert.Zero(t, a.ID())
	assert.Equal(t, uint64(1), s.Add(a))

	// An explicit ID moves the counter past it.
	b := NewNode(box, 1)
	b.SetID(10)
	assert.Equal(t, uint64(10), s.Add(b))
	assert.Equal(t, uint64(11), s.Add(NewNode(box, 1)))

	assert.Equal(t, 3, s.Count())
	assert.Same(t, b, s.Get(10))
	assert.Nil(t, s.Get(2))
}

func TestSceneNodesSortedAndRemove(t *testing.T) {
	box := model.NewBox(common.Vec3{1, 1, 1})
	c := NewNode(box, 1)
	c.SetID(7)
	s := NewScene("test", WithNodes(c, NewNode(box, 1), NewNode(box, 1)))

	nodes := s.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, []uint64{7, 8, 9}, []uint64{nodes[0].ID(), nodes[1].ID(), nodes[2].ID()})

	s.Remove(8)
	s.Remove(100)
	nodes = s.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, uint64(9), nodes[1].ID())
}

func TestSceneAddMeshRegistersMaterial(t *testing.T) {
	s := NewScene("test")
	mesh := model.NewPlane(2, 2)
	floor := material.NewMaterial(material.WithName("floor"))

	n1 := s.AddMesh(mesh, floor, WithName("a"))
	n2 := s.AddMesh(mesh, floor, WithName("b"), WithHidden())
	assert.Equal(t, n1.Material(), n2.Material())
	assert.Equal(t, "b", n2.Name())
	assert.True(t, n1.Visible())
	assert.False(t, n2.Visible())
	assert.Equal(t, 1, s.Materials().Len())

	got, ok := s.Materials().Lookup(n1.Material())
	require.True(t, ok)
	assert.Same(t, floor, got)

	// Clearing drops nodes but keeps material handles.
	s.Clear()
	assert.Zero(t, s.Count())
	assert.Equal(t, 1, s.Materials().Len())
	assert.Equal(t, n1.Material(), s.Materials().Register(floor))
}

func TestSceneSharedRegistry(t *testing.T) {
	r := material.NewRegistry()
	s := NewScene("test", WithMaterials(r))
	assert.Same(t, r, s.Materials())
}

func TestNodeBonesAreCopied(t *testing.T) {
	bones := [][16]float32{common.IdentityMatrix(), common.IdentityMatrix()}
	n := NewNode(model.NewBox(common.Vec3{1, 1, 1}), 1, WithBones(bones))
	bones[0][12] = 5
	assert.Equal(t, float32(0), n.Bones()[0][12])

	out := n.Bones()
	out[1][13] = 3
	assert.Equal(t, float32(0), n.Bones()[1][13])

	assert.Nil(t, NewNode(model.NewBox(common.Vec3{1, 1, 1}), 1).Bones())
}

func TestNodeTransform(t *testing.T) {
	n := NewNode(model.NewBox(common.Vec3{1, 1, 1}), 1)
	assert.Equal(t, common.IdentityMatrix(), n.World())

	n.SetTransform(common.Vec3{1, 2, 3}, common.Vec3{}, common.Vec3{2, 2, 2})
	w := n.World()
	assert.Equal(t, float32(2), w[0])
	assert.Equal(t, float32(2), w[5])
	assert.Equal(t, float32(2), w[10])
	assert.Equal(t, [3]float32{1, 2, 3}, [3]float32{w[12], w[13], w[14]})

	n.SetMaterial(4)
	assert.Equal(t, material.Handle(4), n.Material())
}

func TestNewNodePanicsWithoutMesh(t *testing.T) {
	assert.Panics(t, func() { NewNode(nil, 1) })
}
