package idgenerator

import "io"

// Options holds the configuration of the generators.
type Options struct {
	// Reader provides the random bytes. Defaults to crypto/rand.
	Reader io.Reader
}

// WithReader sets the reader that will provide random bytes.
func WithReader(r io.Reader) Option {
	return func(o *Options) {
		o.Reader = r
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Options)
