package statestore

import (
	"context"
	"testing"
	"time"
)

func newTestStore(maxSize int) *Store {
	return New(Config{MaxSize: maxSize, SweepInterval: time.Hour})
}

func TestStore_SetAndGet(t *testing.T) {
	s := newTestStore(10)
	s.Set("k1", "hello", time.Minute)

	got, ok := s.Get("k1")
	if !ok || got != "hello" {
		t.Fatalf("expected hello, got %v (ok=%v)", got, ok)
	}
	if s.Stats().Hits != 1 {
		t.Errorf("expected 1 hit, got %d", s.Stats().Hits)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(10)
	got, ok := s.Get("nope")
	if ok || got != nil {
		t.Fatalf("expected absent, got %v", got)
	}
	st := s.Stats()
	if st.Misses != 1 || st.TotalRequests != 1 {
		t.Errorf("expected 1 miss / 1 request, got %+v", st)
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	s := newTestStore(10)
	s.Set("k1", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get("k1"); ok {
		t.Fatal("expected expired entry to be absent")
	}
	if s.Stats().Expired != 1 {
		t.Errorf("expected 1 expired, got %d", s.Stats().Expired)
	}
	if s.Size() != 0 {
		t.Errorf("lazy expiry should remove the entry, size=%d", s.Size())
	}
}

func TestStore_GetAfterDelete(t *testing.T) {
	s := newTestStore(10)
	s.Set("k1", "v", time.Minute)
	s.Delete("k1")
	if _, ok := s.Get("k1"); ok {
		t.Fatal("expected deleted entry to be absent")
	}
}

func TestStore_ConsumeOnce(t *testing.T) {
	s := newTestStore(10)
	s.Set("token", "payload", time.Minute)

	got, ok := s.Consume("token")
	if !ok || got != "payload" {
		t.Fatalf("first consume should succeed, got %v (ok=%v)", got, ok)
	}
	if _, ok := s.Consume("token"); ok {
		t.Fatal("second consume must return absent")
	}
	if _, ok := s.Get("token"); ok {
		t.Fatal("get after consume must return absent")
	}
}

func TestStore_ConsumeExpired(t *testing.T) {
	s := newTestStore(10)
	s.Set("token", "payload", -time.Second)
	if _, ok := s.Consume("token"); ok {
		t.Fatal("consuming an expired token must be indistinguishable from a forged one")
	}
}

func TestStore_CapacityEvictsOldestInserted(t *testing.T) {
	s := newTestStore(2)
	s.Set("A", 1, time.Minute)
	s.Set("B", 2, time.Minute)
	s.Set("C", 3, time.Minute)

	if s.Size() != 2 {
		t.Fatalf("expected size 2, got %d", s.Size())
	}
	if _, ok := s.Get("A"); ok {
		t.Error("oldest-inserted entry A should have been evicted")
	}
	if _, ok := s.Get("B"); !ok {
		t.Error("B should survive")
	}
	if _, ok := s.Get("C"); !ok {
		t.Error("C should survive")
	}
	if s.Stats().Evicted != 1 {
		t.Errorf("expected 1 eviction, got %d", s.Stats().Evicted)
	}
}

func TestStore_EvictionIsInsertionOrderNotAccessOrder(t *testing.T) {
	s := newTestStore(2)
	s.Set("A", 1, time.Minute)
	s.Set("B", 2, time.Minute)
	// Touch A; a recency policy would now protect it. Ours must not.
	if _, ok := s.Get("A"); !ok {
		t.Fatal("A should be present")
	}
	s.Set("C", 3, time.Minute)

	if _, ok := s.Get("A"); ok {
		t.Error("A was accessed but is still the oldest insertion, it must be evicted")
	}
	if _, ok := s.Get("B"); !ok {
		t.Error("B should survive")
	}
}

func TestStore_ExpiredEntriesDropBeforeEviction(t *testing.T) {
	s := newTestStore(2)
	s.Set("dead", 1, -time.Second)
	s.Set("live", 2, time.Minute)
	s.Set("new", 3, time.Minute)

	if _, ok := s.Get("live"); !ok {
		t.Error("live entry should not be evicted while an expired one exists")
	}
	st := s.Stats()
	if st.Evicted != 0 {
		t.Errorf("dropping an expired entry must count as expired, not evicted: %+v", st)
	}
	if st.Expired == 0 {
		t.Errorf("expected expired count > 0: %+v", st)
	}
}

func TestStore_ReinsertSameKeyRefreshesOrder(t *testing.T) {
	s := newTestStore(2)
	s.Set("A", 1, time.Minute)
	s.Set("B", 2, time.Minute)
	s.Set("A", 10, time.Minute) // refresh moves A to the back of the queue
	s.Set("C", 3, time.Minute)

	if _, ok := s.Get("B"); ok {
		t.Error("B is now the oldest insertion and should be evicted")
	}
	got, ok := s.Get("A")
	if !ok || got != 10 {
		t.Errorf("refreshed A should survive with new payload, got %v", got)
	}
}

func TestStore_Cleanup(t *testing.T) {
	s := newTestStore(10)
	s.Set("a", 1, -time.Second)
	s.Set("b", 2, -time.Second)
	s.Set("c", 3, time.Minute)

	removed := s.Cleanup()
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if s.Size() != 1 {
		t.Errorf("expected 1 survivor, got %d", s.Size())
	}
	if s.Stats().Expired != 2 {
		t.Errorf("expected expired=2, got %d", s.Stats().Expired)
	}
}

func TestStore_PeriodicSweep(t *testing.T) {
	s := New(Config{MaxSize: 10, SweepInterval: 10 * time.Millisecond})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(context.Background())

	s.Set("a", 1, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for s.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Size() != 0 {
		t.Error("sweep did not remove the expired entry")
	}
}

func TestNewToken_Is256Bits(t *testing.T) {
	tok, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(tok))
	}
	other, _ := NewToken()
	if tok == other {
		t.Error("two tokens collided")
	}
}

func TestStore_OrderQueueBoundedUnderConsumeChurn(t *testing.T) {
	s := newTestStore(100)

	for i := 0; i < 10000; i++ {
		key := "k" + string(rune('a'+i%26))
		s.Set(key, i, time.Minute)
		if _, ok := s.Consume(key); !ok {
			t.Fatalf("consume %q failed at iteration %d", key, i)
		}
	}

	if s.Size() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Size())
	}
	s.mu.RLock()
	queued := len(s.order)
	s.mu.RUnlock()
	if queued > 2*orderCompactMin {
		t.Errorf("insertion queue holds %d refs for 0 entries", queued)
	}
}
