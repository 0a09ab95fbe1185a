package surrogate

// CacheBuilderOption is a functional option for configuring a Cache.
type CacheBuilderOption func(*cache)

// WithFlags sets every feature switch at once.
//
// Parameters:
//   - f: the flags
//
// Returns:
//   - CacheBuilderOption: a function that applies the flags to the cache
func WithFlags(f Flags) CacheBuilderOption {
	return func(c *cache) {
		c.flags = f
	}
}

// WithNormalMap controls whether geometry surrogates inherit normal maps.
//
// Parameters:
//   - enabled: true to sample source normal maps
//
// Returns:
//   - CacheBuilderOption: a function that applies the switch to the cache
func WithNormalMap(enabled bool) CacheBuilderOption {
	return func(c *cache) {
		c.flags.UseNormalMap = enabled
	}
}

// WithRoughnessMap controls whether geometry surrogates inherit roughness maps.
//
// Parameters:
//   - enabled: true to sample source roughness maps
//
// Returns:
//   - CacheBuilderOption: a function that applies the switch to the cache
func WithRoughnessMap(enabled bool) CacheBuilderOption {
	return func(c *cache) {
		c.flags.UseRoughnessMap = enabled
	}
}

// WithMRT controls whether geometry surrogates also write packed depth to a second attachment.
//
// Parameters:
//   - enabled: true for two-attachment output
//
// Returns:
//   - CacheBuilderOption: a function that applies the switch to the cache
func WithMRT(enabled bool) CacheBuilderOption {
	return func(c *cache) {
		c.flags.UseMRT = enabled
	}
}
