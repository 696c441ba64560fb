package kvs

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCompactionThreshold is the fixed redundant-byte threshold (spec
// §4.1) above which a write triggers compaction.
const DefaultCompactionThreshold = 1024 * 1024

// LogFileName is the fixed relative path of the log file within a Store's
// root directory.
const LogFileName = "kvs.log"

// Option configures a Store at Open time.
type Option func(*storeConfig)

type storeConfig struct {
	logger              log.Logger
	reg                 prometheus.Registerer
	compactionThreshold int
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		logger:              log.NewNopLogger(),
		reg:                 prometheus.NewRegistry(),
		compactionThreshold: DefaultCompactionThreshold,
	}
}

// WithLogger sets the structured logger used for compaction and replay
// warnings. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(c *storeConfig) { c.logger = logger }
}

// WithRegisterer sets the prometheus registerer metrics are registered
// against. Defaults to a private registry, never the global default, so
// opening multiple Stores in one process (e.g. in tests) never collides on
// metric names.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *storeConfig) { c.reg = reg }
}

// WithCompactionThreshold overrides DefaultCompactionThreshold.
func WithCompactionThreshold(n int) Option {
	return func(c *storeConfig) { c.compactionThreshold = n }
}
