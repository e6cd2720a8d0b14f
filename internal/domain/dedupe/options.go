package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithNormalizer replaces the key normalizer. A nil normalizer is ignored.
func WithNormalizer(n Normalizer) Option {
	return func(d *inMemoryDeduper) {
		if n != nil {
			d.normalize = n
		}
	}
}
