package statestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/authweave/idkit/component"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/observability"
)

// Stats holds the store's observed traffic counters.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Expired       uint64 `json:"expired"`
	Evicted       uint64 `json:"evicted"`
	TotalRequests uint64 `json:"totalRequests"`
}

type entry struct {
	payload    any
	expiresAt  time.Time
	insertedAt time.Time
	seq        uint64
}

// Store is a TTL and capacity bounded ephemeral map. Insertion at capacity
// evicts the single oldest-inserted live entry (insertion order, not access
// order). Expiry is checked lazily on reads plus by a periodic sweep.
//
// The store backs the CSRF defense for multi-step login handshakes, so
// Consume is the primary read path: resolve and delete in one step.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	// order is the insertion queue. Entries whose seq no longer matches the
	// live entry are stale and skipped during eviction.
	order   []orderRef
	nextSeq uint64

	maxSize       int
	sweepInterval time.Duration
	stats         Stats

	stopCh  chan struct{}
	stopped sync.Once

	metrics *observability.StoreMetrics
	log     *logger.Logger
}

type orderRef struct {
	key string
	seq uint64
}

// New creates a Store from configuration.
func New(cfg Config) *Store {
	cfg.ApplyDefaults()
	return &Store{
		entries:       make(map[string]*entry),
		maxSize:       cfg.MaxSize,
		sweepInterval: cfg.SweepInterval,
		stopCh:        make(chan struct{}),
		log:           logger.Get("statestore"),
		metrics:       &observability.StoreMetrics{},
	}
}

// WithMetrics attaches OpenTelemetry instruments to the store.
func (s *Store) WithMetrics(m *observability.StoreMetrics) *Store {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Set stores payload under key with the given TTL. If the store is at
// capacity the oldest-inserted live entry is evicted first; entries that
// are already past their TTL are dropped as expired, not evicted.
func (s *Store) Set(key string, payload any, ttl time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxSize {
		s.dropExpiredLocked(now)
		for len(s.entries) >= s.maxSize {
			if !s.evictOldestLocked() {
				break
			}
		}
	}

	s.nextSeq++
	s.entries[key] = &entry{
		payload:    payload,
		expiresAt:  now.Add(ttl),
		insertedAt: now,
		seq:        s.nextSeq,
	}
	s.order = append(s.order, orderRef{key: key, seq: s.nextSeq})
	s.compactOrderLocked()
}

// orderCompactMin is the queue length below which compaction is never
// attempted.
const orderCompactMin = 64

// compactOrderLocked rebuilds the insertion queue without stale refs once
// they dominate it. Consume-heavy workloads delete entries long before
// capacity eviction would trim their queue refs, so without compaction the
// queue would grow by one ref per insert for the life of the process.
// Caller holds the write lock.
func (s *Store) compactOrderLocked() {
	if len(s.order) < orderCompactMin || len(s.order) <= 2*len(s.entries) {
		return
	}
	live := make([]orderRef, 0, len(s.entries))
	for _, ref := range s.order {
		if e, ok := s.entries[ref.key]; ok && e.seq == ref.seq {
			live = append(live, ref)
		}
	}
	s.order = live
}

// Get returns the payload for key, or nil and false when the key is absent
// or expired. Absence and expiry are never errors.
func (s *Store) Get(key string) (any, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalRequests++
	e, ok := s.entries[key]
	if !ok {
		s.stats.Misses++
		s.metrics.Add(context.Background(), s.metrics.Misses, 1, "statestore")
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(s.entries, key)
		s.stats.Expired++
		s.metrics.Add(context.Background(), s.metrics.Expired, 1, "statestore")
		return nil, false
	}
	s.stats.Hits++
	s.metrics.Add(context.Background(), s.metrics.Hits, 1, "statestore")
	return e.payload, true
}

// Consume atomically resolves and deletes key. A second Consume of the same
// key, a Consume after TTL expiry, and a Consume of a never-stored key are
// indistinguishable: all return nil and false.
func (s *Store) Consume(key string) (any, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalRequests++
	e, ok := s.entries[key]
	if !ok {
		s.stats.Misses++
		s.metrics.Add(context.Background(), s.metrics.Misses, 1, "statestore")
		return nil, false
	}
	delete(s.entries, key)
	if now.After(e.expiresAt) {
		s.stats.Expired++
		s.metrics.Add(context.Background(), s.metrics.Expired, 1, "statestore")
		return nil, false
	}
	s.stats.Hits++
	s.metrics.Add(context.Background(), s.metrics.Consumed, 1, "statestore")
	return e.payload, true
}

// Delete removes key if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Cleanup sweeps every expired entry. The scan collects candidate keys under
// a read lock, then deletes under the write lock, so the write lock is never
// held for a full map scan.
func (s *Store) Cleanup() int {
	now := time.Now()

	s.mu.RLock()
	candidates := make([]string, 0)
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			candidates = append(candidates, key)
		}
	}
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return 0
	}

	s.mu.Lock()
	removed := 0
	for _, key := range candidates {
		e, ok := s.entries[key]
		if !ok || !now.After(e.expiresAt) {
			continue
		}
		delete(s.entries, key)
		s.stats.Expired++
		removed++
	}
	s.mu.Unlock()

	if removed > 0 {
		s.metrics.Add(context.Background(), s.metrics.SweptKeys, int64(removed), "statestore")
		s.log.Debug("swept expired entries", map[string]interface{}{"removed": removed})
	}
	return removed
}

// Size returns the number of stored entries, including not-yet-swept
// expired ones.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the traffic counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// dropExpiredLocked removes expired entries. Caller holds the write lock.
func (s *Store) dropExpiredLocked(now time.Time) {
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			s.stats.Expired++
		}
	}
}

// evictOldestLocked removes the oldest-inserted live entry. Caller holds the
// write lock. Returns false when nothing can be evicted.
func (s *Store) evictOldestLocked() bool {
	for len(s.order) > 0 {
		ref := s.order[0]
		s.order = s.order[1:]

		e, ok := s.entries[ref.key]
		if !ok || e.seq != ref.seq {
			continue // stale queue entry: deleted or re-inserted since
		}
		delete(s.entries, ref.key)
		s.stats.Evicted++
		s.metrics.Add(context.Background(), s.metrics.Evicted, 1, "statestore")
		return true
	}
	return false
}

// --- component.Component ---

var _ component.Component = (*Store)(nil)

// Name returns the component name.
func (s *Store) Name() string { return "statestore" }

// Start launches the periodic expiry sweep.
func (s *Store) Start(_ context.Context) error {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.stopCh:
				return
			}
		}
	}()
	return nil
}

// Stop halts the sweep goroutine. Safe to call multiple times.
func (s *Store) Stop(_ context.Context) error {
	s.stopped.Do(func() { close(s.stopCh) })
	return nil
}

// Health reports the store's current size.
func (s *Store) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    s.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d entries (max %d)", s.Size(), s.maxSize),
	}
}
