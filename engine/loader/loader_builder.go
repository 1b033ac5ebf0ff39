package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithDecodeWorkers is an option builder that sets how many images are decoded in parallel.
//
// Parameters:
//   - n: the number of decode workers, values below 1 are treated as 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count option to a loader
func WithDecodeWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.decodeWorkers = n
	}
}

// WithSkipImages is an option builder that disables image decoding on Load.
// Assets loaded this way can still be decoded later with DecodeImages.
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithSkipImages() LoaderBuilderOption {
	return func(l *loader) {
		l.skipImages = true
	}
}

// WithAsset is an option builder that pre-populates the asset cache.
//
// Parameters:
//   - key: the cache key for the asset
//   - asset: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, asset *Asset) LoaderBuilderOption {
	return func(l *loader) {
		l.assetCache[key] = asset
	}
}
