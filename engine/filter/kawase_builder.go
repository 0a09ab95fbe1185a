package filter

// KawaseBuilderOption is a functional option for configuring a Kawase blur.
type KawaseBuilderOption func(*kawase)

// WithLabel sets the label used for intermediate targets and errors.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - KawaseBuilderOption: a function that applies the label to the blur
func WithLabel(label string) KawaseBuilderOption {
	return func(k *kawase) {
		k.label = label
	}
}

// WithKernelSize sets the kernel size. Defaults to KernelSmall.
//
// Parameters:
//   - size: the kernel size
//
// Returns:
//   - KawaseBuilderOption: a function that applies the size to the blur
func WithKernelSize(size KernelSize) KawaseBuilderOption {
	return func(k *kawase) {
		k.size = size
	}
}

// WithScale multiplies every tap offset. Defaults to 1.
//
// Parameters:
//   - scale: the offset multiplier
//
// Returns:
//   - KawaseBuilderOption: a function that applies the scale to the blur
func WithScale(scale float32) KawaseBuilderOption {
	return func(k *kawase) {
		k.scale = scale
	}
}

// WithEdgeSharpness sets how strongly view-space depth differences suppress taps in edge-aware mode.
// Zero disables the suppression. Defaults to 1.
//
// Parameters:
//   - sharpness: the weight falloff per view unit
//
// Returns:
//   - KawaseBuilderOption: a function that applies the sharpness to the blur
func WithEdgeSharpness(sharpness float32) KawaseBuilderOption {
	return func(k *kawase) {
		k.sharpness = max(sharpness, 0)
	}
}
