package cache

import "github.com/prometheus/client_golang/prometheus"

// Collector exports a Store's stats in Prometheus form. Directory size and
// file count are scanned on every scrape.
type Collector struct {
	store *Store

	enabled       *prometheus.Desc
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	sets          *prometheus.Desc
	invalidations *prometheus.Desc
	errors        *prometheus.Desc
	sizeBytes     *prometheus.Desc
	files         *prometheus.Desc
}

func NewCollector(s *Store) *Collector {
	return &Collector{
		store:         s,
		enabled:       prometheus.NewDesc("doorsync_cache_enabled", "Whether the file cache is enabled (1) or disabled (0).", nil, nil),
		hits:          prometheus.NewDesc("doorsync_cache_hits_total", "Cache lookups answered from a valid entry.", nil, nil),
		misses:        prometheus.NewDesc("doorsync_cache_misses_total", "Cache lookups that found no valid entry.", nil, nil),
		sets:          prometheus.NewDesc("doorsync_cache_sets_total", "Entries written.", nil, nil),
		invalidations: prometheus.NewDesc("doorsync_cache_invalidations_total", "Entry files removed by invalidation or clear.", nil, nil),
		errors:        prometheus.NewDesc("doorsync_cache_errors_total", "Cache operations that failed and degraded to a miss.", nil, nil),
		sizeBytes:     prometheus.NewDesc("doorsync_cache_size_bytes", "Total size of entry files on disk.", nil, nil),
		files:         prometheus.NewDesc("doorsync_cache_files", "Number of entry files on disk.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.enabled
	ch <- c.hits
	ch <- c.misses
	ch <- c.sets
	ch <- c.invalidations
	ch <- c.errors
	ch <- c.sizeBytes
	ch <- c.files
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.store.Stats()

	enabled := 0.0
	if snap.Enabled {
		enabled = 1
	}
	ch <- prometheus.MustNewConstMetric(c.enabled, prometheus.GaugeValue, enabled)
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(snap.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(snap.Misses))
	ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(snap.Sets))
	ch <- prometheus.MustNewConstMetric(c.invalidations, prometheus.CounterValue, float64(snap.Invalidations))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(snap.Errors))
	ch <- prometheus.MustNewConstMetric(c.sizeBytes, prometheus.GaugeValue, float64(snap.TotalSizeBytes))
	ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(snap.FileCount))
}
