package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/authweave/idkit/database"
	"github.com/authweave/idkit/logger"
	"github.com/authweave/idkit/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	log := logger.NewDefault("sqlstore-test")
	cfg := database.Config{
		Driver:       database.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	db, err := database.Open(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, log)
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func TestUpsertAndFind(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("Session")

	payload := persistence.Payload{"sub": "user-1", "uid": "sess-1"}
	if err := a.Upsert(ctx, "s1", payload, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := a.Find(ctx, "s1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected payload, got nil")
	}
	if got["sub"] != "user-1" {
		t.Errorf("sub = %v, want user-1", got["sub"])
	}
}

func TestFindAbsent(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("Session")

	got, err := a.Find(ctx, "missing")
	if err != nil {
		t.Fatalf("find on absent id must not error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil payload, got %v", got)
	}
}

func TestUpsertReplacesAndClearsConsumed(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("AuthorizationCode")

	if err := a.Upsert(ctx, "c1", persistence.Payload{"v": "first"}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if got, _ := a.Consume(ctx, "c1"); got == nil {
		t.Fatal("expected first consume to return payload")
	}

	if err := a.Upsert(ctx, "c1", persistence.Payload{"v": "second"}, time.Minute); err != nil {
		t.Fatalf("re-upsert failed: %v", err)
	}

	got, err := a.Consume(ctx, "c1")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if got == nil {
		t.Fatal("re-upsert must clear the consumed mark")
	}
	if got["v"] != "second" {
		t.Errorf("v = %v, want second", got["v"])
	}
}

func TestExpiryHidesRecordAndIndexes(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("DeviceCode")

	payload := persistence.Payload{"userCode": "U1"}
	if err := a.Upsert(ctx, "s1", payload, 30*time.Millisecond); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if got, err := a.Find(ctx, "s1"); err != nil || got != nil {
		t.Errorf("find after expiry = (%v, %v), want (nil, nil)", got, err)
	}
	if got, err := a.FindByUserCode(ctx, "U1"); err != nil || got != nil {
		t.Errorf("findByUserCode after expiry = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestConsumeExactlyOnce(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("AuthorizationCode")

	if err := a.Upsert(ctx, "c1", persistence.Payload{"sub": "user-1"}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	first, err := a.Consume(ctx, "c1")
	if err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if first == nil {
		t.Fatal("first consume must return the payload")
	}

	second, err := a.Consume(ctx, "c1")
	if err != nil {
		t.Fatalf("second consume failed: %v", err)
	}
	if second != nil {
		t.Errorf("second consume must return nil, got %v", second)
	}

	// The record is flagged, not deleted: find still sees it with the
	// consumed mark until natural expiry.
	found, err := a.Find(ctx, "c1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil {
		t.Fatal("consumed record must remain findable until expiry")
	}
	if _, ok := found[persistence.ConsumedField]; !ok {
		t.Error("found payload missing consumed mark")
	}
}

func TestConsumeConcurrent(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("AuthorizationCode")

	if err := a.Upsert(ctx, "c1", persistence.Payload{"sub": "user-1"}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]persistence.Payload, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := a.Consume(ctx, "c1")
			if err != nil {
				t.Errorf("consume failed: %v", err)
				return
			}
			results[i] = p
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, p := range results {
		if p != nil {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("exactly one consumer must win, got %d", winners)
	}
}

func TestFindBySecondaryKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	device := store.Adapter("DeviceCode")
	if err := device.Upsert(ctx, "d1", persistence.Payload{"userCode": "WDJB-MJHT"}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	session := store.Adapter("Session")
	if err := session.Upsert(ctx, "s1", persistence.Payload{"uid": "uid-1"}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if got, err := device.FindByUserCode(ctx, "WDJB-MJHT"); err != nil || got == nil {
		t.Errorf("findByUserCode = (%v, %v), want payload", got, err)
	}
	if got, err := session.FindByUid(ctx, "uid-1"); err != nil || got == nil {
		t.Errorf("findByUid = (%v, %v), want payload", got, err)
	}
	if got, err := device.FindByUserCode(ctx, "nope"); err != nil || got != nil {
		t.Errorf("findByUserCode miss = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestDestroyRemovesIndexes(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("DeviceCode")

	if err := a.Upsert(ctx, "d1", persistence.Payload{"userCode": "U1", "grantId": "g1"}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := a.Destroy(ctx, "d1"); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}

	if got, _ := a.Find(ctx, "d1"); got != nil {
		t.Error("record must be gone after destroy")
	}
	if got, _ := a.FindByUserCode(ctx, "U1"); got != nil {
		t.Error("userCode index must be gone after destroy")
	}
}

func TestDestroyAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t).Adapter("Session")

	if err := a.Destroy(ctx, "missing"); err != nil {
		t.Errorf("destroy on absent id must not error: %v", err)
	}
}

func TestRevokeByGrantIDCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	access := store.Adapter("AccessToken")
	refresh := store.Adapter("RefreshToken")
	for id, adapter := range map[string]persistence.Adapter{"at1": access, "rt1": refresh} {
		if err := adapter.Upsert(ctx, id, persistence.Payload{"grantId": "g1"}, time.Minute); err != nil {
			t.Fatalf("upsert %s failed: %v", id, err)
		}
	}
	if err := access.Upsert(ctx, "at2", persistence.Payload{"grantId": "g2"}, time.Minute); err != nil {
		t.Fatalf("upsert at2 failed: %v", err)
	}

	if err := access.RevokeByGrantID(ctx, "g1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	if got, _ := access.Find(ctx, "at1"); got != nil {
		t.Error("access token under g1 must be revoked")
	}
	if got, _ := refresh.Find(ctx, "rt1"); got != nil {
		t.Error("refresh token under g1 must be revoked across collections")
	}
	if got, _ := access.Find(ctx, "at2"); got == nil {
		t.Error("record under a different grant must survive")
	}
}

func TestSweepRemovesExpiredRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	a := store.Adapter("Session")

	if err := a.Upsert(ctx, "dead", persistence.Payload{"v": 1}, 10*time.Millisecond); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := a.Upsert(ctx, "live", persistence.Payload{"v": 2}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	removed, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if got, _ := a.Find(ctx, "live"); got == nil {
		t.Error("live record must survive the sweep")
	}
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Adapter("Session").Upsert(ctx, "x", persistence.Payload{"v": 1}, time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if got, _ := store.Adapter("Grant").Find(ctx, "x"); got != nil {
		t.Error("same id in a different collection must not resolve")
	}
}
