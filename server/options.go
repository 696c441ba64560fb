package server

import (
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultPollInterval is how long Accept blocks before the acceptor checks
// the shutdown signal again.
const DefaultPollInterval = 100 * time.Millisecond

// Option configures a Server at Bind time.
type Option func(*config)

type config struct {
	logger       log.Logger
	reg          prometheus.Registerer
	pollInterval time.Duration
}

func defaultConfig() config {
	return config{
		logger:       log.NewNopLogger(),
		reg:          prometheus.NewRegistry(),
		pollInterval: DefaultPollInterval,
	}
}

// WithLogger sets the server's structured logger.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRegisterer sets the prometheus registerer the server's metrics are
// registered against.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) { c.reg = reg }
}

// WithPollInterval overrides DefaultPollInterval, the non-blocking accept
// deadline used to periodically recheck the shutdown signal.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) { c.pollInterval = d }
}
