package cache

import (
	"math"
	"os"
	"strings"
	"sync/atomic"
)

// Stats holds the per-process counters of a Store. They are not shared
// between processes using the same directory.
type Stats struct {
	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
	errors        atomic.Int64
}

func (s *Stats) Hits() int64          { return s.hits.Load() }
func (s *Stats) Misses() int64        { return s.misses.Load() }
func (s *Stats) Sets() int64          { return s.sets.Load() }
func (s *Stats) Invalidations() int64 { return s.invalidations.Load() }
func (s *Stats) Errors() int64        { return s.errors.Load() }

// StatsSnapshot is the operator view of the cache.
type StatsSnapshot struct {
	Enabled        bool    `json:"enabled"`
	CacheDir       string  `json:"cache_dir"`
	TotalRequests  int64   `json:"total_requests"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	HitRate        float64 `json:"hit_rate"` // percent, two decimals
	Sets           int64   `json:"sets"`
	Invalidations  int64   `json:"invalidations"`
	Errors         int64   `json:"errors"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
	FileCount      int64   `json:"file_count"`
}

// Stats combines the counters with a live scan of the cache directory.
// Files that vanish or cannot be stat'ed mid-scan are left out of the totals.
func (s *Store) Stats() StatsSnapshot {
	hits, misses := s.stats.Hits(), s.stats.Misses()
	total := hits + misses

	snap := StatsSnapshot{
		Enabled:       s.enabled,
		CacheDir:      s.dir,
		TotalRequests: total,
		Hits:          hits,
		Misses:        misses,
		Sets:          s.stats.Sets(),
		Invalidations: s.stats.Invalidations(),
		Errors:        s.stats.Errors(),
	}
	if total > 0 {
		snap.HitRate = math.Round(float64(hits)/float64(total)*10000) / 100
	}

	if s.enabled {
		snap.TotalSizeBytes, snap.FileCount = s.scanDir()
	}
	return snap
}

func (s *Store) scanDir() (size int64, count int64) {
	// ReadDir returns what it managed to read alongside any error.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.WithError(err).WithField("path", s.dir).Warn("cache directory scan incomplete")
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		size += info.Size()
		count++
	}
	return size, count
}
