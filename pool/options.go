package pool

import "github.com/go-kit/log"

// Option configures a pool's ambient behavior (currently just logging).
type Option func(*config)

type config struct {
	logger log.Logger
}

func defaultConfig() config {
	return config{logger: log.NewNopLogger()}
}

// WithLogger sets the logger a pool uses to report job panics.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}
