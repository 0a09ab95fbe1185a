// Package capture converts render target contents into images on disk: tone-mapped 8-bit PNGs
// for viewing and half-float OpenEXR files that keep the full HDR range.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/chewxy/math32"
	"github.com/mrjoshuak/go-openexr/exr"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
)

// ErrSizeMismatch is returned when a pixel slice does not hold width*height values.
var ErrSizeMismatch = errors.New("capture: pixel count does not match image size")

// ToneMap selects how linear values are mapped to 8-bit output.
type ToneMap int

const (
	// ToneMapNone clamps each channel to [0, 1]. Used for data buffers such as normals.
	ToneMapNone ToneMap = iota

	// ToneMapACES applies exposure, the ACES filmic curve and the sRGB transfer function.
	ToneMapACES
)

// Settings controls the 8-bit conversion.
type Settings struct {
	ToneMap  ToneMap
	Exposure float32
}

// DefaultSettings returns ACES tone mapping at unit exposure.
func DefaultSettings() Settings {
	return Settings{ToneMap: ToneMapACES, Exposure: 1}
}

// aces is the Narkowicz fit of the ACES filmic curve.
func aces(x float32) float32 {
	if x <= 0 {
		return 0
	}
	const a, b, c, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	return common.Saturate((x * (a*x + b)) / (x*(c*x+d) + e))
}

// linearToSRGB applies the sRGB transfer function to a value in [0, 1].
func linearToSRGB(x float32) float32 {
	x = common.Saturate(x)
	if x >= 1 {
		return 1
	}
	if x <= 0.0031308 {
		return 12.92 * x
	}
	return 1.055*math32.Pow(x, 1/2.4) - 0.055
}

// quantize maps [0, 1] to a rounded 8-bit value.
func quantize(x float32) uint8 {
	return uint8(common.Saturate(x)*255 + 0.5)
}

// mapColor converts one linear value to 8-bit RGBA under s. Alpha is never tone mapped.
func (s Settings) mapColor(v common.Vec4) color.RGBA {
	out := color.RGBA{A: quantize(v[3])}
	ch := [3]*uint8{&out.R, &out.G, &out.B}
	for i := range 3 {
		x := v[i]
		if s.ToneMap == ToneMapACES {
			x = linearToSRGB(aces(x * s.Exposure))
		}
		*ch[i] = quantize(x)
	}
	return out
}

// Image converts linear pixels, rows ordered top to bottom, into an 8-bit image.
//
// Parameters:
//   - pixels: width*height linear RGBA values
//   - width, height: the image size
//   - s: the conversion settings
//
// Returns:
//   - *image.RGBA: the converted image
//   - error: ErrSizeMismatch if the slice length is wrong
func Image(pixels []common.Vec4, width, height int, s Settings) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil, fmt.Errorf("%d pixels for %dx%d: %w", len(pixels), width, height, ErrSizeMismatch)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, s.mapColor(pixels[y*width+x]))
		}
	}
	return img, nil
}

// HDR copies linear pixels into a float image without any conversion.
//
// Parameters:
//   - pixels: width*height linear RGBA values
//   - width, height: the image size
//
// Returns:
//   - *exr.RGBAImage: the float image
//   - error: ErrSizeMismatch if the slice length is wrong
func HDR(pixels []common.Vec4, width, height int) (*exr.RGBAImage, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil, fmt.Errorf("%d pixels for %dx%d: %w", len(pixels), width, height, ErrSizeMismatch)
	}
	img := exr.NewRGBAImage(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			p := pixels[y*width+x]
			img.SetRGBA(x, y, p[0], p[1], p[2], p[3])
		}
	}
	return img, nil
}

// Read fetches one bound attachment from d.
//
// Parameters:
//   - d: the device owning the target
//   - in: the target and attachment to read
//
// Returns:
//   - []common.Vec4: the pixels, rows ordered top to bottom
//   - int, int: the target size
//   - error: the device's error
func Read(d device.Device, in device.Input) ([]common.Vec4, int, int, error) {
	if in.Target == nil {
		return nil, 0, 0, device.ErrInvalidTarget
	}
	px, err := d.ReadPixels(in.Target, in.Attachment)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read %s[%d]: %w", in.Target.Label(), in.Attachment, err)
	}
	return px, in.Target.Width(), in.Target.Height(), nil
}

// SavePNG writes img as a PNG, resampled by scale when scale is positive and not 1.
//
// Parameters:
//   - path: the output file
//   - img: the image to save
//   - scale: the resize factor
//
// Returns:
//   - error: an error if the file cannot be written
func SavePNG(path string, img image.Image, scale float32) error {
	if scale > 0 && scale != 1 {
		b := img.Bounds()
		w := max(1, int(math32.Round(float32(b.Dx())*scale)))
		h := max(1, int(math32.Round(float32(b.Dy())*scale)))
		img = transform.Resize(img, w, h, transform.Linear)
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("save png %s: %w", path, err)
	}
	return nil
}

// SaveEXR writes linear pixels as a half-float OpenEXR file.
//
// Parameters:
//   - path: the output file
//   - pixels: width*height linear RGBA values, rows ordered top to bottom
//   - width, height: the image size
//
// Returns:
//   - error: ErrSizeMismatch or an encoding error
func SaveEXR(path string, pixels []common.Vec4, width, height int) error {
	img, err := HDR(pixels, width, height)
	if err != nil {
		return err
	}
	if err := exr.EncodeFile(path, img); err != nil {
		return fmt.Errorf("save exr %s: %w", path, err)
	}
	return nil
}

// SaveInput reads an attachment from d and writes it to pngPath and exrPath. An empty path
// skips that format.
//
// Parameters:
//   - d: the device owning the target
//   - in: the attachment to save
//   - s: the 8-bit conversion settings
//   - pngPath, exrPath: the output files
//
// Returns:
//   - error: the first read or write error
func SaveInput(d device.Device, in device.Input, s Settings, pngPath, exrPath string) error {
	px, w, h, err := Read(d, in)
	if err != nil {
		return err
	}
	if pngPath != "" {
		img, err := Image(px, w, h, s)
		if err != nil {
			return err
		}
		if err := SavePNG(pngPath, img, 1); err != nil {
			return err
		}
	}
	if exrPath != "" {
		return SaveEXR(exrPath, px, w, h)
	}
	return nil
}
