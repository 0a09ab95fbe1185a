package filter

import (
	"fmt"
	"strings"
)

// KernelSize selects a Kawase kernel sequence. Larger kernels blur wider at the cost of more passes.
type KernelSize int

const (
	KernelVerySmall KernelSize = iota
	KernelSmall
	KernelMedium
	KernelLarge
	KernelVeryLarge
	KernelHuge
)

// kernelPresets holds the per-pass kernel offsets of each size, in texels.
var kernelPresets = [...][]float32{
	{0, 0},
	{0, 1, 1},
	{0, 1, 1, 2},
	{0, 1, 2, 2, 3},
	{0, 1, 2, 3, 4, 4, 5},
	{0, 1, 2, 3, 4, 5, 7, 8, 9, 10},
}

var kernelNames = [...]string{"very_small", "small", "medium", "large", "very_large", "huge"}

// Kernels returns the kernel offset of every pass, in order. Unknown sizes fall back to KernelSmall.
func (k KernelSize) Kernels() []float32 {
	if k < 0 || int(k) >= len(kernelPresets) {
		k = KernelSmall
	}
	return kernelPresets[k]
}

// String returns the snake_case size name.
func (k KernelSize) String() string {
	if k < 0 || int(k) >= len(kernelNames) {
		return fmt.Sprintf("KernelSize(%d)", int(k))
	}
	return kernelNames[k]
}

// ParseKernelSize reads a size name. Case, underscores and dashes are ignored, so "VERY_SMALL",
// "very-small" and "verySmall" all parse.
//
// Parameters:
//   - s: the name
//
// Returns:
//   - KernelSize: the size
//   - error: an error if s names no size
func ParseKernelSize(s string) (KernelSize, error) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(s))
	for i, name := range kernelNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return KernelSize(i), nil
		}
	}
	return KernelSmall, fmt.Errorf("unknown kernel size %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k KernelSize) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KernelSize) UnmarshalText(text []byte) error {
	v, err := ParseKernelSize(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
