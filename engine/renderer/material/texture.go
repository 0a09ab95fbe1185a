package material

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/chewxy/math32"
)

var nextTextureID atomic.Uint64

// texture is the implementation of the Texture interface.
// Texels are stored bottom row first so that Fetch(0, 0) is the bottom-left corner.
type texture struct {
	id     uint64
	name   string
	width  int
	height int
	texels []common.Vec4
	rgba8  []byte
}

// Texture is an immutable RGBA image used as a material map.
// Sampling repeats outside [0, 1] and filters bilinearly.
type Texture interface {
	shader.Sampler

	// ID returns a process-unique identifier used as a GPU upload cache key.
	//
	// Returns:
	//   - uint64: the texture ID
	ID() uint64

	// Name returns the texture name, usually its source path.
	//
	// Returns:
	//   - string: the name
	Name() string

	// RGBA8 returns the texels as top-row-first 8-bit RGBA for GPU upload.
	//
	// Returns:
	//   - []byte: the pixel bytes
	RGBA8() []byte
}

var _ Texture = &texture{}

// NewTextureFromImage converts a decoded image into a Texture. Values are kept in [0, 1] without color space conversion.
//
// Parameters:
//   - name: the texture name
//   - img: the source image
//
// Returns:
//   - Texture: the texture
func NewTextureFromImage(name string, img image.Image) Texture {
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	t := &texture{
		id:     nextTextureID.Add(1),
		name:   name,
		width:  b.Dx(),
		height: b.Dy(),
		texels: make([]common.Vec4, b.Dx()*b.Dy()),
		rgba8:  append([]byte(nil), rgba.Pix...),
	}
	for y := 0; y < t.height; y++ {
		row := t.height - 1 - y
		for x := 0; x < t.width; x++ {
			o := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
			t.texels[row*t.width+x] = common.Vec4{
				float32(rgba.Pix[o]) / 255,
				float32(rgba.Pix[o+1]) / 255,
				float32(rgba.Pix[o+2]) / 255,
				float32(rgba.Pix[o+3]) / 255,
			}
		}
	}
	return t
}

// LoadTexture reads an image file (PNG, JPEG or BMP) from disk.
//
// Parameters:
//   - path: the image path
//
// Returns:
//   - Texture: the loaded texture
//   - error: error if the file cannot be opened or decoded
func LoadTexture(path string) (Texture, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load texture %s: %w", path, err)
	}
	return NewTextureFromImage(path, img), nil
}

// NewSolidTexture builds a 1x1 texture of a single color.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - Texture: the texture
func NewSolidTexture(c common.Color) Texture {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	for i := 0; i < 4; i++ {
		img.Pix[i] = uint8(common.Saturate(c[i])*255 + 0.5)
	}
	return NewTextureFromImage("solid", img)
}

// NewCheckerTexture builds a size x size checkerboard alternating between a and b every cell texels.
//
// Parameters:
//   - size: texture edge length
//   - cell: checker cell edge length
//   - a, b: the two colors
//
// Returns:
//   - Texture: the texture
func NewCheckerTexture(size, cell int, a, b common.Color) Texture {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := a
			if ((x/max(cell, 1))+(y/max(cell, 1)))%2 == 1 {
				c = b
			}
			o := img.PixOffset(x, y)
			for i := 0; i < 4; i++ {
				img.Pix[o+i] = uint8(common.Saturate(c[i])*255 + 0.5)
			}
		}
	}
	return NewTextureFromImage(fmt.Sprintf("checker_%d_%d", size, cell), img)
}

func (t *texture) ID() uint64 {
	return t.id
}

func (t *texture) Name() string {
	return t.name
}

func (t *texture) Size() (int, int) {
	return t.width, t.height
}

func (t *texture) RGBA8() []byte {
	return t.rgba8
}

func (t *texture) Fetch(x, y int) common.Vec4 {
	x = wrap(x, t.width)
	y = wrap(y, t.height)
	return t.texels[y*t.width+x]
}

func (t *texture) Sample(uv common.Vec2) common.Vec4 {
	fx := uv[0]*float32(t.width) - 0.5
	fy := uv[1]*float32(t.height) - 0.5
	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)
	bottom := t.Fetch(x0, y0).Lerp(t.Fetch(x0+1, y0), tx)
	top := t.Fetch(x0, y0+1).Lerp(t.Fetch(x0+1, y0+1), tx)
	return bottom.Lerp(top, ty)
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
