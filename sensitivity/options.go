package sensitivity

import "go.uber.org/zap"

// Option configures an engine call.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

func defaultOptions() *options {
	return &options{logger: zap.NewNop()}
}

func apply(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for per-pass debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
