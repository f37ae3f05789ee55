// Package cache is a TTL cache of JSON payloads persisted as one file per key.
//
// Several server processes may share one cache directory. Readers take a
// shared advisory lock on the entry file; writers build the replacement in
// "<key>.tmp" under an exclusive lock and rename it over "<key>.json", so a
// reader sees either the old entry or the new one, never a partial write.
//
// Every public operation is total: failures are logged and counted, and the
// caller observes a miss (or false/0) instead of an error.
package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

const (
	fileExt = ".json"
	tmpExt  = ".tmp"

	DefaultTTL         = 1800 * time.Second
	DefaultLockTimeout = 2 * time.Second
)

var (
	ErrLockTimeout  = errors.New("cache lock timeout")
	ErrCorruptEntry = errors.New("cache entry corrupt")
)

// DefaultDir is the cache directory used when none is configured.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "door_control_cache")
}

type Config struct {
	Dir         string
	Enabled     bool
	DefaultTTL  time.Duration
	LockTimeout time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Entry is the on-disk representation of one cached payload.
type Entry struct {
	Timestamp time.Time          `json:"timestamp"`
	ExpiresAt time.Time          `json:"expires_at"`
	CacheKey  string             `json:"cache_key"`
	TTL       int64              `json:"ttl"`
	Data      jsonpkg.RawMessage `json:"data"`
}

type Store struct {
	dir         string
	enabled     bool
	defaultTTL  time.Duration
	lockTimeout time.Duration
	now         func() time.Time
	stats       *Stats
	logger      logrus.FieldLogger
}

// New creates the cache directory if needed. A directory that cannot be
// created disables the store rather than failing startup.
func New(cfg Config, logger logrus.FieldLogger) *Store {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		dir:         cfg.Dir,
		enabled:     cfg.Enabled,
		defaultTTL:  cfg.DefaultTTL,
		lockTimeout: cfg.LockTimeout,
		now:         cfg.Now,
		stats:       &Stats{},
		logger:      logger.WithField("component", "cache"),
	}

	if s.enabled {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			s.logger.WithError(err).WithField("path", s.dir).Error("cache directory unavailable, caching disabled")
			s.enabled = false
		} else {
			s.logger.WithField("path", s.dir).Info("cache initialized")
		}
	}
	return s
}

func (s *Store) Enabled() bool { return s.enabled }

func (s *Store) Dir() string { return s.dir }

func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

// Counters exposes the live counters, e.g. for metrics collection.
func (s *Store) Counters() *Stats { return s.stats }

// Get returns the payload stored for key exactly as it was set. Expiry is
// judged by the entry's own expires_at; an expired file is removed on the way out.
func (s *Store) Get(key string) (jsonpkg.RawMessage, bool) {
	if !s.enabled {
		return nil, false
	}
	log := s.logger.WithField("cache_key", key)
	path := s.path(key)

	entry, err := s.readEntry(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.stats.misses.Add(1)
		log.Debug("cache miss (not found)")
		return nil, false
	case errors.Is(err, ErrCorruptEntry):
		s.stats.misses.Add(1)
		log.WithError(err).Debug("cache miss (invalid file)")
		return nil, false
	case err != nil:
		s.stats.errors.Add(1)
		log.WithError(err).Error("cache read failed")
		return nil, false
	}

	if s.now().UTC().After(entry.ExpiresAt) {
		s.stats.misses.Add(1)
		log.Debug("cache miss (expired)")
		_ = os.Remove(path)
		return nil, false
	}

	s.stats.hits.Add(1)
	log.Debug("cache hit")
	return entry.Data, true
}

// GetInto decodes a cached payload into v. A payload that does not decode
// into v is reported as a miss.
func (s *Store) GetInto(key string, v any) bool {
	data, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := jsonpkg.Unmarshal(data, v); err != nil {
		s.stats.errors.Add(1)
		s.logger.WithError(err).WithField("cache_key", key).Warn("cached payload does not decode")
		return false
	}
	return true
}

// Set stores payload under key for ttl (the default TTL when ttl <= 0).
// A RawMessage payload is stored verbatim; anything else is JSON-encoded.
func (s *Store) Set(key string, payload any, ttl time.Duration) bool {
	if !s.enabled {
		return false
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	log := s.logger.WithField("cache_key", key)

	data, err := encodePayload(payload)
	if err != nil {
		s.stats.errors.Add(1)
		log.WithError(err).Error("cache payload not serializable")
		return false
	}

	now := s.now().UTC()
	entry := Entry{
		Timestamp: now,
		ExpiresAt: now.Add(ttl),
		CacheKey:  key,
		TTL:       int64(ttl / time.Second),
		Data:      data,
	}
	b, err := jsonpkg.MarshalIndent(entry, "", "  ")
	if err != nil {
		s.stats.errors.Add(1)
		log.WithError(err).Error("cache entry encode failed")
		return false
	}

	if err := s.writeEntry(s.path(key), b); err != nil {
		s.stats.errors.Add(1)
		log.WithError(err).Error("cache write failed")
		return false
	}

	s.stats.sets.Add(1)
	log.WithField("ttl", ttl).Debug("cache set")
	return true
}

// Invalidate removes the entry for key and reports whether a file was removed.
func (s *Store) Invalidate(key string) bool {
	if !s.enabled {
		return false
	}
	log := s.logger.WithField("cache_key", key)

	err := os.Remove(s.path(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("cache invalidate (not found)")
		return false
	case err != nil:
		s.stats.errors.Add(1)
		log.WithError(err).Error("cache invalidate failed")
		return false
	}

	s.stats.invalidations.Add(1)
	log.Debug("cache invalidate")
	return true
}

// InvalidatePattern removes every entry whose key matches the shell glob
// pattern (path.Match syntax) and returns how many files were removed.
func (s *Store) InvalidatePattern(pattern string) int {
	if !s.enabled {
		return 0
	}
	n, err := s.removeMatching(sanitizeKey(pattern))
	if err != nil {
		s.stats.errors.Add(1)
		s.logger.WithError(err).WithField("pattern", pattern).Error("cache invalidate pattern failed")
		return n
	}
	s.logger.WithFields(logrus.Fields{"pattern": pattern, "removed": n}).Debug("cache invalidate pattern")
	return n
}

// ClearAll removes every entry in the cache directory.
func (s *Store) ClearAll() int {
	if !s.enabled {
		return 0
	}
	n, err := s.removeMatching("*")
	if err != nil {
		s.stats.errors.Add(1)
		s.logger.WithError(err).Error("cache clear failed")
		return n
	}
	s.logger.WithField("removed", n).Info("cache cleared")
	return n
}

func (s *Store) removeMatching(pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, pattern+fileExt))
	if err != nil {
		return 0, fmt.Errorf("glob %q: %w", pattern, err)
	}

	count := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			s.logger.WithError(err).WithField("path", m).Warn("cache file delete failed")
			continue
		}
		count++
		s.stats.invalidations.Add(1)
	}
	return count, nil
}

// path maps a key onto its entry file. Path separators are flattened so a
// key can never address a file outside the cache directory.
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+fileExt)
}

func sanitizeKey(key string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(key)
}

func encodePayload(payload any) (jsonpkg.RawMessage, error) {
	if raw, ok := payload.(jsonpkg.RawMessage); ok {
		if !jsonpkg.Valid(raw) {
			return nil, fmt.Errorf("raw payload is not valid JSON")
		}
		return raw, nil
	}
	b, err := jsonpkg.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// readEntry parses the entry file under a shared lock. The lock is released
// before returning whatever happens during the read or decode.
func (s *Store) readEntry(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	if err := lockFile(f, lockShared, s.lockTimeout); err != nil {
		return Entry{}, err
	}
	defer func() { _ = unlockFile(f) }()

	b, err := io.ReadAll(f)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", path, err)
	}

	var e Entry
	if err := jsonpkg.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if e.ExpiresAt.IsZero() || len(e.Data) == 0 {
		return Entry{}, fmt.Errorf("%w: missing expires_at or data", ErrCorruptEntry)
	}
	return e, nil
}

// writeEntry replaces the entry file atomically: the bytes go to the temp
// file, are fsynced, and the temp file is renamed over path while the
// exclusive lock is still held.
func (s *Store) writeEntry(path string, b []byte) (err error) {
	tmp := strings.TrimSuffix(path, fileExt) + tmpExt

	f, err := s.openLockedTemp(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
		_ = unlockFile(f)
		_ = f.Close()
	}()

	if err = f.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", tmp, err)
	}
	if _, err = f.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("fsync %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// openLockedTemp opens tmp and locks it exclusively. If another writer
// renamed the file away while we waited for the lock, the descriptor no
// longer names tmp and the open is retried. The whole attempt is bounded by
// the lock timeout.
func (s *Store) openLockedTemp(tmp string) (*os.File, error) {
	deadline := time.Now().Add(s.lockTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrLockTimeout
		}

		f, err := os.OpenFile(tmp, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		if err := lockFile(f, lockExclusive, remaining); err != nil {
			_ = f.Close()
			return nil, err
		}

		held, herr := f.Stat()
		cur, cerr := os.Stat(tmp)
		if herr == nil && cerr == nil && os.SameFile(held, cur) {
			return f, nil
		}

		_ = unlockFile(f)
		_ = f.Close()
		if herr != nil {
			return nil, herr
		}
		if cerr != nil && !errors.Is(cerr, fs.ErrNotExist) {
			return nil, cerr
		}
	}
}
