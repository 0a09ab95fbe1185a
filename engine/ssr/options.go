package ssr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-ssr/engine/filter"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// OutputMode selects what the final composite writes. Exactly one mode is active; changing it
// builds a different composite program.
type OutputMode int

const (
	// OutputDefault adds the reflections onto the input image.
	OutputDefault OutputMode = iota

	// OutputReflections writes the composited reflection layer alone.
	OutputReflections

	// OutputRawReflections writes the temporal composite before blurring.
	OutputRawReflections

	// OutputBlurred writes the blurred reflections.
	OutputBlurred

	// OutputInput writes the input image unchanged.
	OutputInput

	// OutputBlurMix writes the per-pixel blur weight as gray.
	OutputBlurMix
)

var outputModeNames = [...]string{"default", "reflections", "raw_reflections", "blurred", "input", "blur_mix"}

// String returns the snake_case mode name.
func (m OutputMode) String() string {
	if m < 0 || int(m) >= len(outputModeNames) {
		return fmt.Sprintf("OutputMode(%d)", int(m))
	}
	return outputModeNames[m]
}

// ParseOutputMode reads a mode name, ignoring case, underscores and dashes.
//
// Parameters:
//   - s: the name
//
// Returns:
//   - OutputMode: the mode
//   - error: an error if s names no mode
func ParseOutputMode(s string) (OutputMode, error) {
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(s))
	for i, name := range outputModeNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return OutputMode(i), nil
		}
	}
	return OutputDefault, fmt.Errorf("unknown output mode %q: %w", s, ErrInvalidOption)
}

// MarshalText implements encoding.TextMarshaler.
func (m OutputMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OutputMode) UnmarshalText(text []byte) error {
	v, err := ParseOutputMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Options holds every tunable of the reflection pipeline. Keys match the toml/yaml tags.
type Options struct {
	// Width and Height are the pipeline resolution. Zero leaves the pipeline unconfigured.
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`

	UseBlur        bool              `toml:"useBlur" yaml:"useBlur"`
	BlurKernelSize filter.KernelSize `toml:"blurKernelSize" yaml:"blurKernelSize"`

	// RayStep is the linear march step in view units.
	RayStep   float32 `toml:"rayStep" yaml:"rayStep"`
	Intensity float32 `toml:"intensity" yaml:"intensity"`
	MaxSteps  int     `toml:"maxSteps" yaml:"maxSteps"`

	// NumBinarySearchSteps of zero accepts the coarse crossing point.
	NumBinarySearchSteps int `toml:"numBinarySearchSteps" yaml:"numBinarySearchSteps"`

	// MaxDepthDifference bounds the refined hit's depth gap, in hundredths of a view unit.
	MaxDepthDifference float32 `toml:"maxDepthDifference" yaml:"maxDepthDifference"`

	// MaxDepth is the device depth beyond which pixels get no reflection.
	MaxDepth float32 `toml:"maxDepth" yaml:"maxDepth"`

	// Thickness is the largest depth gap, in view units, accepted as a crossing.
	Thickness float32 `toml:"thickness" yaml:"thickness"`
	IOR       float32 `toml:"ior" yaml:"ior"`

	EnableJittering bool    `toml:"enableJittering" yaml:"enableJittering"`
	Jitter          float32 `toml:"jitter" yaml:"jitter"`
	JitterSpread    float32 `toml:"jitterSpread" yaml:"jitterSpread"`
	JitterRough     float32 `toml:"jitterRough" yaml:"jitterRough"`

	// RoughnessFadeOut at 1 rejects fully rough pixels; at 0 roughness no longer weakens reflections.
	RoughnessFadeOut float32 `toml:"roughnessFadeOut" yaml:"roughnessFadeOut"`

	StretchMissedRays bool `toml:"stretchMissedRays" yaml:"stretchMissedRays"`
	UseMRT            bool `toml:"useMRT" yaml:"useMRT"`
	UseNormalMap      bool `toml:"useNormalMap" yaml:"useNormalMap"`
	UseRoughnessMap   bool `toml:"useRoughnessMap" yaml:"useRoughnessMap"`
	TemporalResolve   bool `toml:"temporalResolve" yaml:"temporalResolve"`

	// RayFadeOut attenuates reflections quadratically with travel distance. Zero disables it.
	RayFadeOut float32 `toml:"rayFadeOut" yaml:"rayFadeOut"`

	// DepthBlur scales the blur weight by the square root of the travel distance.
	DepthBlur float32 `toml:"depthBlur" yaml:"depthBlur"`
	MaxBlur   float32 `toml:"maxBlur" yaml:"maxBlur"`

	// StaticNoise pins the sample counter to 1, freezing the jitter pattern.
	StaticNoise bool       `toml:"staticNoise" yaml:"staticNoise"`
	OutputMode  OutputMode `toml:"outputMode" yaml:"outputMode"`

	// ReprojectionBlend is the weight of the velocity-displaced history sample against the
	// history sample at the same pixel.
	ReprojectionBlend float32 `toml:"reprojectionBlend" yaml:"reprojectionBlend"`
	VelocityIntensity float32 `toml:"velocityIntensity" yaml:"velocityIntensity"`
}

// DefaultOptions returns the documented defaults. Width and Height are zero.
//
// Returns:
//   - Options: the defaults
func DefaultOptions() Options {
	return Options{
		UseBlur:              true,
		BlurKernelSize:       filter.KernelSmall,
		RayStep:              0.1,
		Intensity:            1,
		MaxSteps:             20,
		NumBinarySearchSteps: 5,
		MaxDepthDifference:   3,
		MaxDepth:             1,
		Thickness:            10,
		IOR:                  1.45,
		EnableJittering:      false,
		Jitter:               0.1,
		JitterSpread:         0.1,
		JitterRough:          0.1,
		RoughnessFadeOut:     1,
		StretchMissedRays:    false,
		UseMRT:               true,
		UseNormalMap:         true,
		UseRoughnessMap:      true,
		TemporalResolve:      true,
		RayFadeOut:           0,
		DepthBlur:            0.1,
		MaxBlur:              1,
		StaticNoise:          false,
		OutputMode:           OutputDefault,
		ReprojectionBlend:    0.5,
		VelocityIntensity:    1,
	}
}

// Validate reports the first out-of-range value.
//
// Returns:
//   - error: an error wrapping ErrInvalidOption, or nil
func (o Options) Validate() error {
	switch {
	case o.Width < 0 || o.Height < 0:
		return fmt.Errorf("size %dx%d: %w", o.Width, o.Height, ErrInvalidOption)
	case o.RayStep <= 0:
		return fmt.Errorf("rayStep %v must be positive: %w", o.RayStep, ErrInvalidOption)
	case o.MaxSteps < 0:
		return fmt.Errorf("maxSteps %d must not be negative: %w", o.MaxSteps, ErrInvalidOption)
	case o.NumBinarySearchSteps < 0:
		return fmt.Errorf("numBinarySearchSteps %d must not be negative: %w", o.NumBinarySearchSteps, ErrInvalidOption)
	case o.Thickness < 0:
		return fmt.Errorf("thickness %v must not be negative: %w", o.Thickness, ErrInvalidOption)
	case o.IOR <= 0:
		return fmt.Errorf("ior %v must be positive: %w", o.IOR, ErrInvalidOption)
	case o.ReprojectionBlend < 0 || o.ReprojectionBlend > 1:
		return fmt.Errorf("reprojectionBlend %v outside [0, 1]: %w", o.ReprojectionBlend, ErrInvalidOption)
	case o.OutputMode < OutputDefault || o.OutputMode > OutputBlurMix:
		return fmt.Errorf("outputMode %d: %w", o.OutputMode, ErrInvalidOption)
	case o.BlurKernelSize < filter.KernelVerySmall || o.BlurKernelSize > filter.KernelHuge:
		return fmt.Errorf("blurKernelSize %d: %w", o.BlurKernelSize, ErrInvalidOption)
	}
	return nil
}

// LoadOptions reads options from a .toml, .yaml or .yml file on top of DefaultOptions.
// Missing keys keep their defaults and unknown keys are ignored.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Options: the loaded options
//   - error: an error if the file cannot be read, parsed or validated
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("load options: %w", err)
	}
	opts, err := ParseOptions(data, filepath.Ext(path))
	if err != nil {
		return Options{}, fmt.Errorf("load options %s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes options in the format named by ext on top of DefaultOptions.
//
// Parameters:
//   - data: the encoded options
//   - ext: ".toml", ".yaml" or ".yml"
//
// Returns:
//   - Options: the decoded options
//   - error: an error if the format is unknown or the data is invalid
func ParseOptions(data []byte, ext string) (Options, error) {
	opts := DefaultOptions()
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(data, &opts)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &opts)
	default:
		return Options{}, fmt.Errorf("unsupported options format %q", ext)
	}
	if err != nil {
		return Options{}, err
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
