package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/types"
)

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Stores        int64   `json:"stores"`
	Errors        int64   `json:"errors"`
	MemoryEntries int     `json:"memory_entries"`
	DiskEntries   int     `json:"disk_entries"`
	HitRate       float64 `json:"hit_rate"`
}

// Manager is the two-tier response cache. Reads never fail: any storage
// error counts as a miss, a safe degraded mode.
type Manager struct {
	memory *memoryTier
	disk   *diskTier
	cfg    config.CacheConfig
	logger *slog.Logger

	statsMu sync.Mutex
	hits    int64
	misses  int64
	stores  int64
	errs    int64

	now func() time.Time // swapped in tests
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithClock sets the time source (for tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager opens the persistent tier at cfg.DBPath and builds the cache.
func NewManager(cfg config.CacheConfig, opts ...ManagerOption) (*Manager, error) {
	disk, err := openDiskTier(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return newManager(cfg, disk, opts...), nil
}

// NewManagerWithDB builds the cache on an already-open shared database.
func NewManagerWithDB(cfg config.CacheConfig, db *sql.DB, opts ...ManagerOption) (*Manager, error) {
	disk, err := newDiskTier(db)
	if err != nil {
		return nil, err
	}
	return newManager(cfg, disk, opts...), nil
}

func newManager(cfg config.CacheConfig, disk *diskTier, opts ...ManagerOption) *Manager {
	m := &Manager{
		memory: newMemoryTier(cfg.MaxMemoryEntries),
		disk:   disk,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Get returns the cached response for a request, or nil on a miss.
// Memory tier first; on a persistent-tier hit the memory tier is backfilled.
func (m *Manager) Get(req *types.LLMRequest) *types.LLMResponse {
	key := Key(req)
	now := m.now()

	if e := m.memory.get(key, now); e != nil {
		if resp := m.decode(e); resp != nil {
			m.recordHit()
			return resp
		}
	}

	e, err := m.disk.get(key, now)
	if err != nil {
		m.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		m.recordError()
		m.recordMiss()
		return nil
	}
	if e == nil {
		m.recordMiss()
		return nil
	}

	resp := m.decode(e)
	if resp == nil {
		m.recordMiss()
		return nil
	}

	m.memory.put(e)
	m.recordHit()
	return resp
}

// Set caches a response. ttl <= 0 selects the heuristic TTL. Returns false
// (without error) when the serialized response exceeds the size cap or the
// write fails.
func (m *Manager) Set(req *types.LLMRequest, resp *types.LLMResponse, ttl time.Duration) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		m.logger.Warn("cache serialize failed", "error", err)
		m.recordError()
		return false
	}
	if len(data) > m.cfg.MaxEntryBytes {
		m.logger.Debug("response too large to cache", "bytes", len(data), "cap", m.cfg.MaxEntryBytes)
		return false
	}

	if ttl <= 0 {
		ttl = computeTTL(req, resp, time.Duration(m.cfg.DefaultTTLSeconds)*time.Second)
	}

	e := &Entry{
		Key:        Key(req),
		Response:   data,
		ModelUsed:  resp.ModelUsed,
		TokenCount: resp.Usage.TotalTokens,
		CreatedAt:  m.now(),
		TTL:        ttl,
	}

	if err := m.disk.put(e); err != nil {
		m.logger.Warn("cache write failed", "key", e.Key, "error", err)
		m.recordError()
		return false
	}
	m.memory.put(e)

	m.statsMu.Lock()
	m.stores++
	m.statsMu.Unlock()
	return true
}

// Invalidate clears everything (empty pattern) or all keys with the given
// prefix. Returns how many entries were removed across both tiers.
func (m *Manager) Invalidate(pattern string) int {
	n := m.memory.invalidate(pattern)
	diskN, err := m.disk.invalidate(pattern)
	if err != nil {
		m.logger.Warn("cache invalidate failed on persistent tier", "error", err)
		m.recordError()
		return n
	}
	return n + diskN
}

// SweepExpired bulk-deletes expired persistent rows.
func (m *Manager) SweepExpired() int {
	n, err := m.disk.sweep(m.now())
	if err != nil {
		m.logger.Warn("cache sweep failed", "error", err)
		m.recordError()
		return 0
	}
	return n
}

// RunSweeper periodically sweeps expired rows until ctx is cancelled.
// Failures are logged and the loop continues.
func (m *Manager) RunSweeper(ctx context.Context) {
	interval := time.Duration(m.cfg.CleanupIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.SweepExpired(); n > 0 {
				m.logger.Debug("cache sweep removed expired entries", "count", n)
			}
		}
	}
}

// GetStats returns a snapshot of the cache counters.
func (m *Manager) GetStats() Stats {
	m.statsMu.Lock()
	s := Stats{
		Hits:   m.hits,
		Misses: m.misses,
		Stores: m.stores,
		Errors: m.errs,
	}
	m.statsMu.Unlock()

	s.MemoryEntries = m.memory.len()
	if n, err := m.disk.count(); err == nil {
		s.DiskEntries = n
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// decode unmarshals a stored entry, returning nil on corrupt data.
func (m *Manager) decode(e *Entry) *types.LLMResponse {
	var resp types.LLMResponse
	if err := json.Unmarshal(e.Response, &resp); err != nil {
		m.logger.Warn("cache entry corrupt, dropping", "key", e.Key, "error", err)
		m.recordError()
		return nil
	}
	resp.Cached = true
	return &resp
}

func (m *Manager) recordHit() {
	m.statsMu.Lock()
	m.hits++
	m.statsMu.Unlock()
}

func (m *Manager) recordMiss() {
	m.statsMu.Lock()
	m.misses++
	m.statsMu.Unlock()
}

func (m *Manager) recordError() {
	m.statsMu.Lock()
	m.errs++
	m.statsMu.Unlock()
}
