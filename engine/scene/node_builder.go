package scene

import "github.com/Carmen-Shannon/oxy-ssr/common"

// NodeBuilderOption is a functional option for configuring a Node.
type NodeBuilderOption func(n *node)

// WithName sets the node's debug name.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithName(name string) NodeBuilderOption {
	return func(n *node) {
		n.name = name
	}
}

// WithTransform sets the node's world transform from position, rotation and scale.
//
// Parameters:
//   - pos: translation
//   - rot: rotation in radians
//   - scale: scale factors
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithTransform(pos, rot, scale common.Vec3) NodeBuilderOption {
	return func(n *node) {
		common.BuildModelMatrix(n.world[:], pos, rot, scale)
	}
}

// WithWorld sets the node's world matrix directly.
//
// Parameters:
//   - m: the column-major world matrix
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithWorld(m [16]float32) NodeBuilderOption {
	return func(n *node) {
		n.world = m
	}
}

// WithBones sets the node's initial bone palette.
//
// Parameters:
//   - bones: the bone matrices
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithBones(bones [][16]float32) NodeBuilderOption {
	return func(n *node) {
		n.bones = append([][16]float32(nil), bones...)
	}
}

// WithHidden creates the node hidden.
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithHidden() NodeBuilderOption {
	return func(n *node) {
		n.visible.Store(false)
	}
}
