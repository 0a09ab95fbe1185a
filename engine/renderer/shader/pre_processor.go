// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations and replaces them with registered chunk sources,
// const declarations, or nothing (conditional markers), dropping lines inside
// inactive conditional blocks.
package shader

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
)

var (
	//go:embed assets/frame.wgsl
	frameChunk string

	//go:embed assets/object.wgsl
	objectChunk string

	//go:embed assets/material.wgsl
	materialChunk string

	//go:embed assets/skinning.wgsl
	skinningChunk string

	//go:embed assets/packing.wgsl
	packingChunk string

	//go:embed assets/fullscreen.wgsl
	fullscreenChunk string
)

// Defines holds compile-time values for @oxy:define and @oxy:if annotations.
// Values are emitted verbatim into WGSL const declarations.
type Defines map[string]string

// Set records a define and returns the receiver for chaining.
func (d Defines) Set(name string, value any) Defines {
	switch v := value.(type) {
	case bool:
		d[name] = strconv.FormatBool(v)
	case float32:
		d[name] = formatFloat(v)
	case float64:
		d[name] = formatFloat(float32(v))
	default:
		d[name] = fmt.Sprint(v)
	}
	return d
}

// Enabled reports whether the named define is set and not false or zero.
func (d Defines) Enabled(name string) bool {
	v, ok := d[name]
	return ok && v != "false" && v != "0" && v != ""
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// chunks maps include keys to their embedded WGSL source.
	chunks map[AnnotationArg]string
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations.
type PreProcessor interface {
	// Process expands every annotation in source using the supplied defines.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations
	//   - defines: values for @oxy:define and @oxy:if, may be nil
	//
	// Returns:
	//   - string: the processed WGSL shader source code
	//   - error: an error if any annotation is malformed, a define is missing, or a conditional is unbalanced
	Process(source string, defines Defines) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with every engine chunk registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		chunks: map[AnnotationArg]string{
			AnnotationArgVertex:     model.GPUVertexSource,
			AnnotationArgFrame:      frameChunk,
			AnnotationArgObject:     objectChunk,
			AnnotationArgMaterial:   materialChunk,
			AnnotationArgSkinning:   skinningChunk,
			AnnotationArgPacking:    packingChunk,
			AnnotationArgFullscreen: fullscreenChunk,
		},
	}
}

func (p *preProcessor) Process(source string, defines Defines) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	// each entry records whether the enclosing block is emitting and whether this block's own test passed
	type block struct{ parentActive, cond bool }
	var stack []block
	active := true

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			if active {
				out = append(out, line)
			}
			continue
		}

		switch a.Type {
		case annotationTypeIf:
			name := string(a.Args[0])
			want := true
			if n, ok := strings.CutPrefix(name, "!"); ok {
				name, want = n, false
			}
			cond := defines.Enabled(name) == want
			stack = append(stack, block{parentActive: active, cond: cond})
			active = active && cond
		case annotationTypeElse:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy else without matching if", i+1)
			}
			top := &stack[len(stack)-1]
			top.cond = !top.cond
			active = top.parentActive && top.cond
		case annotationTypeEndIf:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy endif without matching if", i+1)
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		case annotationTypeInclude:
			if active {
				out = append(out, p.chunks[a.Args[0]])
			}
		case annotationTypeDefine:
			if !active {
				continue
			}
			name := string(a.Args[0])
			v, ok := defines[name]
			if !ok {
				return "", fmt.Errorf("line %d: define %q has no value", i+1, name)
			}
			out = append(out, fmt.Sprintf("const %s: %s = %s;", name, a.Args[1], v))
		}
	}
	if len(stack) != 0 {
		return "", fmt.Errorf("unterminated @oxy if block")
	}
	return strings.Join(out, "\n"), nil
}

// formatFloat renders v as a WGSL float literal that always carries a decimal point.
func formatFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
