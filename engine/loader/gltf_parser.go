package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("unsupported glTF version (expected 2.x)")
	errInvalidGLBMagic    = errors.New("invalid GLB magic")
	errInvalidGLBVersion  = errors.New("unsupported GLB container version")
	errMissingJSONChunk   = errors.New("GLB has no JSON chunk")
	errInvalidDataURI     = errors.New("malformed data URI")
	errBufferSizeMismatch = errors.New("buffer is shorter than its byteLength")
	errAccessorBounds     = errors.New("accessor reads past the end of its buffer")
)

// gltfParser decodes a glTF or GLB document and resolves its buffers so accessors can be read.
type gltfParser struct {
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

// newGLTFParser creates a parser. baseDir resolves relative buffer and image URIs; an empty
// baseDir only allows embedded data.
//
// Parameters:
//   - baseDir: the directory relative URIs are resolved against
//
// Returns:
//   - *gltfParser: the parser
func newGLTFParser(baseDir string) *gltfParser {
	return &gltfParser{baseDir: baseDir}
}

// parseFile reads and decodes a .gltf or .glb file.
func (p *gltfParser) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return p.parse(data)
}

// parseReader decodes a document from r.
func (p *gltfParser) parseReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	return p.parse(data)
}

// parse sniffs the GLB magic so callers do not need to know the container type.
func (p *gltfParser) parse(data []byte) error {
	jsonData := data
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic {
		var err error
		if jsonData, err = p.splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// splitGLB returns the JSON chunk and keeps the BIN chunk for buffer 0.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html (GLB file format)
func (p *gltfParser) splitGLB(data []byte) ([]byte, error) {
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.binChunk = body
		}
	}

	if jsonData == nil {
		return nil, errMissingJSONChunk
	}
	return jsonData, nil
}

func (p *gltfParser) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.binChunk != nil:
			buf.Data = p.binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			data, err := p.readURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// readURI resolves a base64 data URI or a path relative to the document.
func (p *gltfParser) readURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, _, err := decodeDataURI(uri)
		return data, err
	}
	if p.baseDir == "" {
		return nil, fmt.Errorf("external URI %q needs a base directory", uri)
	}
	data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data> and returns the media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	comma := strings.IndexByte(uri, ',')
	if !strings.HasPrefix(uri, "data:") || comma < 0 {
		return nil, "", errInvalidDataURI
	}
	header := uri[len("data:"):comma]
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("unsupported data URI encoding %q", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mediaType, nil
}

// bufferView returns the bytes of a buffer view without accessor interpretation.
func (p *gltfParser) bufferView(index int) ([]byte, error) {
	doc := p.document
	if index < 0 || index >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", index)
	}
	bv := &doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if end > len(data) {
		return nil, fmt.Errorf("bufferView %d: %w", index, errAccessorBounds)
	}
	return data[bv.ByteOffset:end], nil
}

// accessorElements returns the accessor, its element size, stride and first byte, validated
// against the underlying buffer.
func (p *gltfParser) accessorElements(index int) (*gltfAccessor, []byte, int, error) {
	doc := p.document
	if doc == nil {
		return nil, nil, 0, errors.New("no document loaded")
	}
	if index < 0 || index >= len(doc.Accessors) {
		return nil, nil, 0, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, 0, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil {
		return nil, nil, 0, fmt.Errorf("accessor %d has no bufferView", index)
	}

	view, err := p.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, 0, err
	}
	elem := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elem == 0 {
		return nil, nil, 0, fmt.Errorf("accessor %d: unsupported layout %s/%d", index, acc.Type, acc.ComponentType)
	}
	stride := elem
	if bs := doc.BufferViews[*acc.BufferView].ByteStride; bs != nil && *bs > 0 {
		stride = *bs
	}
	if acc.ByteOffset > len(view) || (acc.Count > 0 && acc.ByteOffset+(acc.Count-1)*stride+elem > len(view)) {
		return nil, nil, 0, fmt.Errorf("accessor %d: %w", index, errAccessorBounds)
	}
	return acc, view[acc.ByteOffset:], stride, nil
}

// readFloats reads an accessor as count*components floats. Integer components are
// normalized to [0, 1] or [-1, 1] as glTF prescribes for normalized attributes.
//
// Parameters:
//   - index: the accessor index
//   - accType: the required accessor type
//
// Returns:
//   - []float32: flat component data
//   - error: error if the accessor is missing, malformed or of another type
func (p *gltfParser) readFloats(index int, accType string) ([]float32, error) {
	acc, data, stride, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accType {
		return nil, fmt.Errorf("accessor %d is %s, want %s", index, acc.Type, accType)
	}
	if acc.ComponentType != gltfComponentTypeFloat && !acc.Normalized {
		return nil, fmt.Errorf("accessor %d: integer components must be normalized", index)
	}

	n := componentCount(acc.Type)
	size := componentSize(acc.ComponentType)
	out := make([]float32, acc.Count*n)
	for i := 0; i < acc.Count; i++ {
		for c := 0; c < n; c++ {
			out[i*n+c] = readComponent(data[i*stride+c*size:], acc.ComponentType)
		}
	}
	return out, nil
}

// readUints reads an unsigned integer accessor (indices, joints) as count*components uint32.
func (p *gltfParser) readUints(index int, accType string) ([]uint32, error) {
	acc, data, stride, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accType {
		return nil, fmt.Errorf("accessor %d is %s, want %s", index, acc.Type, accType)
	}

	n := componentCount(acc.Type)
	size := componentSize(acc.ComponentType)
	out := make([]uint32, acc.Count*n)
	for i := 0; i < acc.Count; i++ {
		for c := 0; c < n; c++ {
			b := data[i*stride+c*size:]
			switch acc.ComponentType {
			case gltfComponentTypeUnsignedByte:
				out[i*n+c] = uint32(b[0])
			case gltfComponentTypeUnsignedShort:
				out[i*n+c] = uint32(binary.LittleEndian.Uint16(b))
			case gltfComponentTypeUnsignedInt:
				out[i*n+c] = binary.LittleEndian.Uint32(b)
			default:
				return nil, fmt.Errorf("accessor %d: component type %d is not an unsigned integer", index, acc.ComponentType)
			}
		}
	}
	return out, nil
}

func readComponent(b []byte, componentType int) float32 {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeUnsignedByte:
		return float32(b[0]) / 255
	case gltfComponentTypeByte:
		return max(float32(int8(b[0]))/127, -1)
	case gltfComponentTypeUnsignedShort:
		return float32(binary.LittleEndian.Uint16(b)) / 65535
	case gltfComponentTypeShort:
		return max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1)
	case gltfComponentTypeUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b)) / math.MaxUint32
	}
	return 0
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	}
	return 0
}

func componentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat4:
		return 16
	}
	return 0
}
