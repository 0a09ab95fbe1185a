package loader

import "io"

// loaderBackend defines the format-specific half of a Loader.
type loaderBackend interface {
	// Load imports an asset from a file; relative URIs resolve against its directory.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	Load(path string) (*Asset, error)

	// LoadReader imports an asset from a stream holding only embedded data.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - name: the asset name used when the file does not name its scene
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	LoadReader(r io.Reader, name string) (*Asset, error)
}
