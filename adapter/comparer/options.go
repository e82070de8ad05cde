package comparer

// Option configures a [Comparer].
type Option func(*Options)

// Options holds the [Comparer] settings.
type Options struct {
	StringComparer func(a, b string) int
}

// WithStringComparer sets the function used to order strings. Defaults to a
// byte-wise comparison.
func WithStringComparer(f func(a, b string) int) Option {
	return func(o *Options) {
		o.StringComparer = f
	}
}
