package bench

import (
	"fmt"
	"testing"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/stretchr/testify/require"

	kvs "github.com/0xcrust/log-kv"
	"github.com/0xcrust/log-kv/engine/boltengine"
)

func nowNanos() int64 { return time.Now().UnixNano() }

// BenchmarkSetLatency compares per-call Set latency distributions between
// the log-structured store and the reference bbolt-backed engine.
func BenchmarkSetLatency(b *testing.B) {
	b.Run("Store", func(b *testing.B) { runSetBench(b, openStore(b)) })
	b.Run("BoltEngine", func(b *testing.B) { runSetBench(b, openBolt(b)) })
}

// BenchmarkGetLatency compares per-call Get latency distributions.
func BenchmarkGetLatency(b *testing.B) {
	b.Run("Store", func(b *testing.B) { runGetBench(b, openStore(b)) })
	b.Run("BoltEngine", func(b *testing.B) { runGetBench(b, openBolt(b)) })
}

type engine interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
}

func openStore(b *testing.B) engine {
	b.Helper()
	s, err := kvs.Open(b.TempDir())
	require.NoError(b, err)
	b.Cleanup(func() { s.Close() })
	return s
}

func openBolt(b *testing.B) engine {
	b.Helper()
	e, err := boltengine.Open(b.TempDir())
	require.NoError(b, err)
	b.Cleanup(func() { e.Close() })
	return e
}

func runSetBench(b *testing.B, e engine) {
	hist := hdrhistogram.New(1, 10_000_000, 3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%d", i%1000)
		start := nowNanos()
		require.NoError(b, e.Set(key, "value"))
		hist.RecordValue(nowNanos() - start)
	}
	b.StopTimer()
	reportPercentiles(b, hist)
}

func runGetBench(b *testing.B, e engine) {
	for i := 0; i < 1000; i++ {
		require.NoError(b, e.Set(fmt.Sprintf("key-%d", i), "value"))
	}

	hist := hdrhistogram.New(1, 10_000_000, 3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%d", i%1000)
		start := nowNanos()
		_, _, err := e.Get(key)
		require.NoError(b, err)
		hist.RecordValue(nowNanos() - start)
	}
	b.StopTimer()
	reportPercentiles(b, hist)
}

func reportPercentiles(b *testing.B, hist *hdrhistogram.Histogram) {
	b.ReportMetric(float64(hist.ValueAtQuantile(50)), "p50-ns")
	b.ReportMetric(float64(hist.ValueAtQuantile(99)), "p99-ns")
}
