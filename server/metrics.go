package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serverMetrics struct {
	connectionsTotal  prometheus.Counter
	requestsTotal     prometheus.Counter
	decodeErrorsTotal prometheus.Counter
	acceptErrorsTotal prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	return &serverMetrics{
		connectionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_server_connections_total",
			Help: "kvs_server_connections_total counts accepted TCP connections.",
		}),
		requestsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_server_requests_total",
			Help: "kvs_server_requests_total counts successfully decoded and dispatched requests.",
		}),
		decodeErrorsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_server_decode_errors_total",
			Help: "kvs_server_decode_errors_total counts connections closed due to a malformed request frame.",
		}),
		acceptErrorsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_server_accept_errors_total",
			Help: "kvs_server_accept_errors_total counts non-timeout Accept errors.",
		}),
	}
}
