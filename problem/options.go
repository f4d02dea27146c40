package problem

const (
	// DefaultMaxInnerExceptionDepth bounds the causal chain walk.
	DefaultMaxInnerExceptionDepth = 10
)

// Options controls how much internal detail reaches the wire. It is loaded
// once at start and passed by value, so every holder sees the same snapshot.
type Options struct {
	IncludeExceptionDetails bool `yaml:"includeExceptionDetails" envconfig:"INCLUDE_EXCEPTION_DETAILS"`
	MaxInnerExceptionDepth  int  `yaml:"maxInnerExceptionDepth" envconfig:"MAX_INNER_EXCEPTION_DEPTH"`
}

// DefaultOptions returns the options for an environment: exception details
// are only exposed in development.
func DefaultOptions(environment string) Options {
	return Options{
		IncludeExceptionDetails: environment == "development",
		MaxInnerExceptionDepth:  DefaultMaxInnerExceptionDepth,
	}
}

// Normalize returns a copy with a negative depth replaced by the default.
// Zero is kept and means no inner exceptions are listed.
func (o Options) Normalize() Options {
	if o.MaxInnerExceptionDepth < 0 {
		o.MaxInnerExceptionDepth = DefaultMaxInnerExceptionDepth
	}
	return o
}
