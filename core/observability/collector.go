package observability

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Stats handle as prometheus metrics.
type Collector struct {
	stats *Stats

	activeDesc   *prometheus.Desc
	connsDesc    *prometheus.Desc
	requestsDesc *prometheus.Desc
	bytesDesc    *prometheus.Desc
}

// NewCollector wraps stats for registration with a prometheus registry.
func NewCollector(stats *Stats) *Collector {
	return &Collector{
		stats: stats,
		activeDesc: prometheus.NewDesc(
			"c10k_active_connections",
			"Connections currently admitted and not yet released.",
			nil, nil),
		connsDesc: prometheus.NewDesc(
			"c10k_connections_total",
			"Connections admitted since start.",
			nil, nil),
		requestsDesc: prometheus.NewDesc(
			"c10k_requests_total",
			"Requests served since start.",
			nil, nil),
		bytesDesc: prometheus.NewDesc(
			"c10k_bytes_sent_total",
			"Payload bytes written to clients since start.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeDesc
	ch <- c.connsDesc
	ch <- c.requestsDesc
	ch <- c.bytesDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, float64(snap.Active))
	ch <- prometheus.MustNewConstMetric(c.connsDesc, prometheus.CounterValue, float64(snap.TotalConnections))
	ch <- prometheus.MustNewConstMetric(c.requestsDesc, prometheus.CounterValue, float64(snap.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.CounterValue, float64(snap.TotalBytesSent))
}
