package cursor

import "github.com/ramiroaisen/nedb-types/domain"

// Options holds the configuration of a [Cursor].
type Options struct {
	Decoder domain.Decoder
	// Find seeds skip, limit, sort and projection.
	Find domain.FindOptions
}

// Option configures a [Cursor] through the functional options pattern.
type Option func(*Options)

// WithDecoder sets the decoder used by Scan.
func WithDecoder(d domain.Decoder) Option {
	return func(o *Options) {
		o.Decoder = d
	}
}

// WithFindOptions seeds the cursor with per-call find options.
func WithFindOptions(f domain.FindOptions) Option {
	return func(o *Options) {
		o.Find = f
	}
}
