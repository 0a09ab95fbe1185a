package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// gltfLoaderBackend reads glTF 2.0 JSON and GLB files.
type gltfLoaderBackend struct{}

var _ loaderBackend = &gltfLoaderBackend{}

func newGLTFLoaderBackend() *gltfLoaderBackend {
	return &gltfLoaderBackend{}
}

func (b *gltfLoaderBackend) Load(path string) (*Asset, error) {
	p := newGLTFParser(filepath.Dir(path))
	if err := p.parseFile(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return importGLTF(p, name)
}

func (b *gltfLoaderBackend) LoadReader(r io.Reader, name string) (*Asset, error) {
	p := newGLTFParser("")
	if err := p.parseReader(r); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return importGLTF(p, name)
}
