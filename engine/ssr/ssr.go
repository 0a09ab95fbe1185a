// Package ssr computes screen-space reflections for a scene a host renderer already draws.
//
// A Pipeline renders auxiliary geometry and velocity buffers through surrogate programs,
// ray-marches a reflection for every pixel through the packed depth buffer, accumulates the
// noisy result over frames, blurs it by a per-pixel weight and composites it onto the host's
// color image. Cross-frame state lives in an explicit FrameHistory value that the pipeline
// replaces after every successful frame.
package ssr

import "errors"

var (
	// ErrNotConfigured is returned by Render before the pipeline has a size.
	ErrNotConfigured = errors.New("ssr pipeline not configured")

	// ErrSizeMismatch is returned when the input image does not match the pipeline size.
	ErrSizeMismatch = errors.New("input size does not match pipeline size")

	// ErrUnknownOption is returned by Get and Set for keys outside the option set.
	ErrUnknownOption = errors.New("unknown option")

	// ErrInvalidOption is returned when an option value is out of range or of the wrong type.
	ErrInvalidOption = errors.New("invalid option value")
)
