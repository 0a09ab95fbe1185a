package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
)

// materialExtractor converts glTF materials into source materials, decoding each image once.
type materialExtractor struct {
	parser   *gltfParser
	textures map[int]material.Texture
}

func newMaterialExtractor(p *gltfParser) *materialExtractor {
	return &materialExtractor{parser: p, textures: make(map[int]material.Texture)}
}

// extractAll converts every material of the document, in document order.
func (e *materialExtractor) extractAll() ([]material.Material, error) {
	doc := e.parser.document
	out := make([]material.Material, len(doc.Materials))
	for i := range doc.Materials {
		m, err := e.extract(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// extract maps the metallic-roughness model onto a source material. The metallicRoughness
// texture becomes the roughness map, read from its green channel.
func (e *materialExtractor) extract(index int) (material.Material, error) {
	gm := &e.parser.document.Materials[index]
	name := common.Coalesce(gm.Name, fmt.Sprintf("material_%d", index))

	opts := []material.MaterialBuilderOption{
		material.WithName(name),
		material.WithDoubleSided(gm.DoubleSided),
		// glTF defaults
		material.WithMetallic(1),
		material.WithRoughness(1),
	}

	if pbr := gm.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			opts = append(opts, material.WithBaseColor(common.Color(*pbr.BaseColorFactor)))
		}
		if pbr.MetallicFactor != nil {
			opts = append(opts, material.WithMetallic(*pbr.MetallicFactor))
		}
		if pbr.RoughnessFactor != nil {
			opts = append(opts, material.WithRoughness(*pbr.RoughnessFactor))
		}
		if pbr.BaseColorTexture != nil {
			tex, err := e.texture(pbr.BaseColorTexture.Index)
			if err != nil {
				return nil, fmt.Errorf("%q base color texture: %w", name, err)
			}
			if tex != nil {
				opts = append(opts, material.WithBaseColorMap(tex))
			}
		}
		if pbr.MetallicRoughnessTexture != nil {
			tex, err := e.texture(pbr.MetallicRoughnessTexture.Index)
			if err != nil {
				return nil, fmt.Errorf("%q metallic-roughness texture: %w", name, err)
			}
			if tex != nil {
				opts = append(opts, material.WithRoughnessMap(tex))
			}
		}
	}

	if gm.NormalTexture != nil {
		tex, err := e.texture(gm.NormalTexture.Index)
		if err != nil {
			return nil, fmt.Errorf("%q normal texture: %w", name, err)
		}
		if tex != nil {
			scale := float32(1)
			if gm.NormalTexture.Scale != nil {
				scale = *gm.NormalTexture.Scale
			}
			opts = append(opts, material.WithNormalMap(tex, common.Vec2{scale, scale}))
		}
	}

	if gm.EmissiveFactor != nil {
		strength := float32(1)
		if gm.Extensions != nil && gm.Extensions.EmissiveStrength != nil {
			strength = gm.Extensions.EmissiveStrength.EmissiveStrength
		}
		opts = append(opts, material.WithEmissive(common.Vec3(*gm.EmissiveFactor).Scale(strength).Vec4(1)))
	}

	return material.NewMaterial(opts...), nil
}

// texture resolves a glTF texture to its decoded image. Textures without a source yield nil.
func (e *materialExtractor) texture(textureIndex int) (material.Texture, error) {
	doc := e.parser.document
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}
	src := doc.Textures[textureIndex].Source
	if src == nil {
		return nil, nil
	}
	if tex, ok := e.textures[*src]; ok {
		return tex, nil
	}
	if *src < 0 || *src >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", *src)
	}

	tex, err := e.decodeImage(*src, &doc.Images[*src])
	if err != nil {
		return nil, err
	}
	e.textures[*src] = tex
	return tex, nil
}

func (e *materialExtractor) decodeImage(index int, img *gltfImage) (material.Texture, error) {
	name := common.Coalesce(img.Name, img.URI, fmt.Sprintf("image_%d", index))

	var data []byte
	switch {
	case img.BufferView != nil:
		view, err := e.parser.bufferView(*img.BufferView)
		if err != nil {
			return nil, err
		}
		data = view
	case strings.HasPrefix(img.URI, "data:"):
		decoded, _, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, err
		}
		data = decoded
		name = fmt.Sprintf("image_%d", index)
	case img.URI != "":
		if e.parser.baseDir == "" {
			return nil, fmt.Errorf("external image %q needs a base directory", img.URI)
		}
		return material.LoadTexture(filepath.Join(e.parser.baseDir, filepath.FromSlash(img.URI)))
	default:
		return nil, fmt.Errorf("image %d has neither bufferView nor URI", index)
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %d (%s): %w", index, img.MimeType, err)
	}
	if img.MimeType != "" && !strings.HasSuffix(img.MimeType, format) {
		return nil, fmt.Errorf("image %d declares %s but holds %s", index, img.MimeType, format)
	}
	return material.NewTextureFromImage(name, decoded), nil
}
