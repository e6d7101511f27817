// Package cache provides a file-backed response cache with per-entry TTL
// and a size-bounded eviction policy. It memoizes expensive collaborator
// calls (LLM script generation, metadata lookups) so that repeated runs
// with identical inputs do not pay for the upstream call twice.
//
// Every operation downgrades I/O failures to a cache miss or a no-op
// return value. Callers must treat cache unavailability as a fast miss,
// never as a hard failure.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const entryFileExt = ".json"

// entry is the on-disk representation of one cached value.
type entry struct {
	StoredAt   time.Time       `json:"stored_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Value      json.RawMessage `json:"value"`
}

// StoreConfig holds configuration for a cache Store.
type StoreConfig struct {
	// Dir is the directory entries are written to. Created with 0700
	// permissions if it does not exist.
	Dir string

	// DefaultTTL applies to entries written without a per-entry override.
	DefaultTTL time.Duration

	// MaxSizeMB bounds the total on-disk size of the store. When a Set
	// finds the store above this bound, the oldest 25% of entries by
	// modification time are evicted. Zero or negative disables eviction.
	MaxSizeMB float64
}

// DefaultStoreConfig returns a StoreConfig with reasonable defaults.
func DefaultStoreConfig(dir string) StoreConfig {
	return StoreConfig{
		Dir:        dir,
		DefaultTTL: time.Hour,
		MaxSizeMB:  100,
	}
}

// Store is a file-backed key/value cache. One JSON file per key lives
// under the configured directory. All operations on the same instance are
// atomic with respect to each other; Size is the one deliberate exception
// and may observe a slightly stale total.
type Store struct {
	mu       sync.Mutex
	dir      string
	ttl      time.Duration
	maxBytes int64
	logger   *slog.Logger
	nowFunc  func() time.Time // injectable for expiry tests
}

// NewStore creates a cache Store rooted at cfg.Dir, creating the directory
// if needed. Directory creation failure is the only constructor error:
// without a writable directory every later operation would be a miss, which
// callers are better off learning at startup.
func NewStore(cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, err
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	var maxBytes int64
	if cfg.MaxSizeMB > 0 {
		maxBytes = int64(cfg.MaxSizeMB * 1024 * 1024)
	}

	return &Store{
		dir:      cfg.Dir,
		ttl:      ttl,
		maxBytes: maxBytes,
		logger:   logger.With("component", "cache_store"),
		nowFunc:  time.Now,
	}, nil
}

// Key derives a deterministic digest from the identifying inputs of a
// cached call. Positional parts are hashed in order; named parts are
// hashed in sorted key order, so two call sites that supply the same named
// inputs in different orders produce the same key.
func Key(parts []any, named map[string]any) string {
	payload := struct {
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	}{Args: parts, Kwargs: named}

	if payload.Args == nil {
		payload.Args = []any{}
	}
	if payload.Kwargs == nil {
		payload.Kwargs = map[string]any{}
	}

	// encoding/json writes map keys in sorted order, which gives the
	// canonical serialization the digest needs.
	data, err := json.Marshal(payload)
	if err != nil {
		// Only unserializable inputs can land here; fall back to the
		// Go-syntax representation so the key is still deterministic.
		data = []byte(canonicalFallback(parts, named))
	}

	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the value stored under key, or ok=false if the entry is
// absent, expired, or unreadable. Expired entries are removed on access.
// A non-zero ttlOverride takes precedence over the TTL recorded with the
// entry; the entry TTL in turn takes precedence over the store default.
func (s *Store) Get(key string, ttlOverride ...time.Duration) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.Warn("cache entry corrupt, removing", "key", key, "error", err)
		s.removeEntry(path, key)
		return nil, false
	}

	ttl := time.Duration(e.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = s.ttl
	}
	if len(ttlOverride) > 0 && ttlOverride[0] > 0 {
		ttl = ttlOverride[0]
	}

	if s.nowFunc().Sub(e.StoredAt) > ttl {
		s.removeEntry(path, key)
		return nil, false
	}

	return e.Value, true
}

// GetJSON is a convenience wrapper around Get that unmarshals the cached
// value into out. Decode failures count as a miss.
func (s *Store) GetJSON(key string, out any, ttlOverride ...time.Duration) bool {
	raw, ok := s.Get(key, ttlOverride...)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("cached value failed to decode", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key. The eviction check runs before the write,
// so a store already past its bound sheds old entries even when the write
// itself subsequently fails. Returns false on serialization or I/O errors.
func (s *Store) Set(key string, value any, ttlOverride ...time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictIfNeeded()

	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", "key", key, "error", err)
		return false
	}

	ttl := s.ttl
	if len(ttlOverride) > 0 && ttlOverride[0] > 0 {
		ttl = ttlOverride[0]
	}

	e := entry{
		StoredAt:   s.nowFunc(),
		TTLSeconds: int64(ttl / time.Second),
		Value:      raw,
	}

	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("cache entry not serializable", "key", key, "error", err)
		return false
	}

	if err := os.WriteFile(s.entryPath(key), data, 0o600); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
		return false
	}

	return true
}

// Invalidate removes the entry for key if present. Reports whether an
// entry was actually removed.
func (s *Store) Invalidate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.entryPath(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache invalidate failed", "key", key, "error", err)
		}
		return false
	}
	return true
}

// Clear removes every entry in the store. Returns false if any removal
// fails; remaining entries are still attempted.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entryFiles()
	if err != nil {
		s.logger.Warn("cache clear failed to list entries", "error", err)
		return false
	}

	ok := true
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			s.logger.Warn("cache clear failed to remove entry", "path", f, "error", err)
			ok = false
		}
	}
	return ok
}

// CleanupExpired scans all entries and removes those whose recorded TTL
// has elapsed, returning the number removed. Unreadable entries are
// removed and counted too; they can never be served again.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entryFiles()
	if err != nil {
		s.logger.Warn("cache cleanup failed to list entries", "error", err)
		return 0
	}

	now := s.nowFunc()
	removed := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}

		var e entry
		expired := false
		if err := json.Unmarshal(data, &e); err != nil {
			expired = true
		} else {
			ttl := time.Duration(e.TTLSeconds) * time.Second
			if ttl <= 0 {
				ttl = s.ttl
			}
			expired = now.Sub(e.StoredAt) > ttl
		}

		if expired {
			if err := os.Remove(f); err == nil {
				removed++
			}
		}
	}

	return removed
}

// Size returns the total on-disk size of the store in megabytes. The scan
// intentionally runs without the store lock; a slightly stale answer is
// acceptable for a monitoring figure.
func (s *Store) Size() float64 {
	files, err := s.entryFiles()
	if err != nil {
		s.logger.Warn("cache size scan failed", "error", err)
		return 0
	}

	var total int64
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		total += info.Size()
	}

	return float64(total) / (1024 * 1024)
}

// evictIfNeeded deletes the oldest 25% of entries by modification time
// when the store exceeds its configured byte bound. Eviction order is
// least-recently-written, not LRU: Get never rewrites entry files, so a
// read cannot promote an entry. With fewer than 4 entries the integer
// division yields zero deletions. Caller holds s.mu.
func (s *Store) evictIfNeeded() {
	if s.maxBytes <= 0 {
		return
	}

	files, err := s.entryFiles()
	if err != nil {
		s.logger.Warn("eviction scan failed", "error", err)
		return
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}

	infos := make([]fileInfo, 0, len(files))
	var total int64
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		infos = append(infos, fileInfo{path: f, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}

	if total <= s.maxBytes {
		return
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].modTime.Before(infos[j].modTime)
	})

	evictCount := len(infos) / 4
	for i := 0; i < evictCount; i++ {
		if err := os.Remove(infos[i].path); err != nil {
			s.logger.Warn("eviction failed to remove entry", "path", infos[i].path, "error", err)
			continue
		}
	}

	if evictCount > 0 {
		s.logger.Info("evicted oldest cache entries",
			"evicted", evictCount,
			"total_entries", len(infos),
			"size_bytes", total,
			"max_bytes", s.maxBytes)
	}
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key+entryFileExt)
}

func (s *Store) entryFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(s.dir, "*"+entryFileExt))
}

func (s *Store) removeEntry(path, key string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("cache entry removal failed", "key", key, "error", err)
	}
}

func canonicalFallback(parts []any, named map[string]any) string {
	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := "args:"
	for _, p := range parts {
		out += stringify(p) + ";"
	}
	out += "kwargs:"
	for _, k := range keys {
		out += k + "=" + stringify(named[k]) + ";"
	}
	return out
}

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(b)
}
