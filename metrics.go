package kvs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type storeMetrics struct {
	setsTotal         prometheus.Counter
	getsTotal         prometheus.Counter
	removesTotal      prometheus.Counter
	removeMissesTotal prometheus.Counter
	bytesWritten      prometheus.Counter
	bytesRead         prometheus.Counter
	compactionsTotal  prometheus.Counter
	compactionErrors  prometheus.Counter
	redundantBytes    prometheus.Gauge
	keysLive          prometheus.Gauge
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	return &storeMetrics{
		setsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_sets_total",
			Help: "kvs_sets_total counts successful Set calls.",
		}),
		getsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_gets_total",
			Help: "kvs_gets_total counts Get calls, hit or miss.",
		}),
		removesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_removes_total",
			Help: "kvs_removes_total counts successful Remove calls.",
		}),
		removeMissesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_remove_misses_total",
			Help: "kvs_remove_misses_total counts Remove calls against an absent key.",
		}),
		bytesWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_log_bytes_written_total",
			Help: "kvs_log_bytes_written_total counts bytes appended to the log, including compaction rewrites.",
		}),
		bytesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_log_bytes_read_total",
			Help: "kvs_log_bytes_read_total counts bytes decoded from the log by Get.",
		}),
		compactionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_compactions_total",
			Help: "kvs_compactions_total counts completed compaction passes.",
		}),
		compactionErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_compaction_errors_total",
			Help: "kvs_compaction_errors_total counts compaction passes that failed and left the prior log in place.",
		}),
		redundantBytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "kvs_redundant_bytes",
			Help: "kvs_redundant_bytes is the current count of dead log bytes since the last compaction.",
		}),
		keysLive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "kvs_keys_live",
			Help: "kvs_keys_live is the current number of keys with a live index entry.",
		}),
	}
}
