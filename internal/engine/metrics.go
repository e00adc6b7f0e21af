package engine

import (
	"github.com/Kevin-Yang1/remixdb/internal/sstable"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters exposed by an Engine, grounded on
// the teacher's pattern of embedding a small, purpose-built metrics struct
// per subsystem rather than a single global registry
// (_examples/cockroachdb-pebble/internal/cache/metrics.go).
type Metrics struct {
	compactions prometheus.Counter
	reinserted  prometheus.Counter
	statWrites  prometheus.CounterFunc
	statReads   prometheus.CounterFunc
}

func newMetrics(sst *sstable.Engine) *Metrics {
	return &Metrics{
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remixdb",
			Name:      "compactions_total",
			Help:      "Number of compaction passes completed.",
		}),
		reinserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remixdb",
			Name:      "reinserted_records_total",
			Help:      "Records reinserted into the memtable after landing in a rejected compaction partition.",
		}),
		statWrites: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "remixdb",
			Name:      "sstable_bytes_written_total",
			Help:      "Cumulative bytes written to partition data/index files.",
		}, func() float64 { return float64(sst.StatWrites()) }),
		statReads: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "remixdb",
			Name:      "sstable_bytes_read_total",
			Help:      "Cumulative bytes read from partition data files.",
		}, func() float64 { return float64(sst.StatReads()) }),
	}
}

// Collectors returns every Prometheus collector an Engine exposes, for the
// caller to register against its own registry.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.compactions, m.reinserted, m.statWrites, m.statReads}
}
