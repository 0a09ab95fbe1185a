// annotations.go defines the annotation types and parser for the Oxy WGSL shader
// pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// drive chunk injection, compile-time constants and conditional blocks. Generated
// surrogate programs lean on the conditionals to strip unused map sampling.
package shader

import (
	"fmt"
	"slices"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects a registered WGSL chunk at the annotation site.
	//
	// Syntax: //@oxy:include <chunk>
	//
	// Example: //@oxy:include packing
	annotationTypeInclude AnnotationType = "include"

	// annotationTypeDefine emits a WGSL const declaration for a define supplied to Process.
	//
	// Syntax: //@oxy:define <NAME> <wgsl_type>
	//
	// Example: //@oxy:define MAX_STEPS i32
	annotationTypeDefine AnnotationType = "define"

	// annotationTypeIf opens a conditional block kept only when the named define is set and truthy.
	// A leading "!" negates the test.
	//
	// Syntax: //@oxy:if <NAME>
	annotationTypeIf AnnotationType = "if"

	// annotationTypeElse flips the innermost open conditional block.
	annotationTypeElse AnnotationType = "else"

	// annotationTypeEndIf closes the innermost open conditional block.
	annotationTypeEndIf AnnotationType = "endif"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - include: [0] = chunk key
	//   - define:  [0] = define name, [1] = WGSL type
	//   - if:      [0] = define name, optionally prefixed with "!"
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int
}

// AnnotationArg is a single whitespace-separated annotation argument.
type AnnotationArg string

// Chunk keys accepted by @oxy:include.
const (
	AnnotationArgVertex     AnnotationArg = "vertex"
	AnnotationArgFrame      AnnotationArg = "frame"
	AnnotationArgObject     AnnotationArg = "object"
	AnnotationArgMaterial   AnnotationArg = "material"
	AnnotationArgSkinning   AnnotationArg = "skinning"
	AnnotationArgPacking    AnnotationArg = "packing"
	AnnotationArgFullscreen AnnotationArg = "fullscreen"
)

// validChunks lists every chunk key the parser accepts.
var validChunks = []AnnotationArg{
	AnnotationArgVertex,
	AnnotationArgFrame,
	AnnotationArgObject,
	AnnotationArgMaterial,
	AnnotationArgSkinning,
	AnnotationArgPacking,
	AnnotationArgFullscreen,
}

// validConstTypes lists the WGSL scalar types a define may be emitted as.
var validConstTypes = []string{"f32", "i32", "u32", "bool"}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validChunks, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown chunk %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil
	case annotationTypeDefine:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @oxy define annotation requires a name and a type", lineNum)
		}
		if !slices.Contains(validConstTypes, args[2]) {
			return nil, fmt.Errorf("line %d: unsupported const type %q in @oxy define annotation", lineNum, args[2])
		}
		return &Annotation{Type: annotationTypeDefine, Args: []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(args[2])}, Line: lineNum}, nil
	case annotationTypeIf:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy if annotation requires exactly one define name", lineNum)
		}
		return &Annotation{Type: annotationTypeIf, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil
	case annotationTypeElse, annotationTypeEndIf:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation takes no arguments", lineNum, args[0])
		}
		return &Annotation{Type: AnnotationType(args[0]), Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
