package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/authweave/idkit/database"
	"github.com/authweave/idkit/persistence"
)

type adapter struct {
	store      *Store
	collection string
}

var _ persistence.Adapter = (*adapter)(nil)

func (a *adapter) Upsert(ctx context.Context, id string, payload persistence.Payload, expiresIn time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s/%s: %w", a.collection, id, err)
	}

	rec := Record{Collection: a.collection, ID: id, Payload: string(raw)}
	if expiresIn > 0 {
		expiresAt := time.Now().Add(expiresIn)
		rec.ExpiresAt = &expiresAt
	}

	// A full replace also clears any previous consumed mark.
	res := a.store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "consumed_at"}),
	}).Create(&rec)
	if res.Error != nil {
		return database.FromDatabase(res.Error, "record")
	}
	return nil
}

func (a *adapter) Find(ctx context.Context, id string) (persistence.Payload, error) {
	var rec Record
	err := a.store.db.WithContext(ctx).
		Where("collection = ? AND id = ?", a.collection, id).
		First(&rec).Error
	return a.liveness(ctx, &rec, err)
}

func (a *adapter) FindByUserCode(ctx context.Context, userCode string) (persistence.Payload, error) {
	return a.findByKey(ctx, persistence.FieldUserCode, userCode)
}

func (a *adapter) FindByUid(ctx context.Context, uid string) (persistence.Payload, error) {
	return a.findByKey(ctx, persistence.FieldUID, uid)
}

func (a *adapter) findByKey(ctx context.Context, field, value string) (persistence.Payload, error) {
	var rec Record
	err := a.store.db.WithContext(ctx).
		Where("collection = ? AND "+a.store.jsonExpr(field)+" = ?", a.collection, value).
		First(&rec).Error
	return a.liveness(ctx, &rec, err)
}

// liveness turns a looked-up row into a payload, mapping "not found" and
// "expired" both to a nil payload with no error.
func (a *adapter) liveness(ctx context.Context, rec *Record, err error) (persistence.Payload, error) {
	if database.IsNotFoundError(err) {
		a.store.metrics.Add(ctx, a.store.metrics.Misses, 1, backendName)
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "record")
	}
	if rec.expired(time.Now()) {
		a.store.metrics.Add(ctx, a.store.metrics.Expired, 1, backendName)
		return nil, nil
	}
	a.store.metrics.Add(ctx, a.store.metrics.Hits, 1, backendName)
	return rec.decode()
}

func (a *adapter) Consume(ctx context.Context, id string) (persistence.Payload, error) {
	now := time.Now()

	// The conditional update is the atomicity point: of any number of
	// concurrent consumers, exactly one flips consumed_at from NULL.
	res := a.store.db.WithContext(ctx).
		Model(&Record{}).
		Where("collection = ? AND id = ? AND consumed_at IS NULL AND (expires_at IS NULL OR expires_at > ?)",
			a.collection, id, now).
		Update("consumed_at", now)
	if res.Error != nil {
		return nil, database.FromDatabase(res.Error, "record")
	}
	if res.RowsAffected == 0 {
		a.store.metrics.Add(ctx, a.store.metrics.Misses, 1, backendName)
		return nil, nil
	}

	var rec Record
	err := a.store.db.WithContext(ctx).
		Where("collection = ? AND id = ?", a.collection, id).
		First(&rec).Error
	if err != nil {
		return nil, database.FromDatabase(err, "record")
	}
	a.store.metrics.Add(ctx, a.store.metrics.Consumed, 1, backendName)

	// The winning consumer gets the payload as it was before consumption.
	var p persistence.Payload
	if err := json.Unmarshal([]byte(rec.Payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload for %s/%s: %w", a.collection, id, err)
	}
	return p, nil
}

func (a *adapter) Destroy(ctx context.Context, id string) error {
	// Secondary keys live inline in the payload column, so deleting the
	// row removes every index entry with it.
	res := a.store.db.WithContext(ctx).
		Where("collection = ? AND id = ?", a.collection, id).
		Delete(&Record{})
	if res.Error != nil {
		return database.FromDatabase(res.Error, "record")
	}
	return nil
}

func (a *adapter) RevokeByGrantID(ctx context.Context, grantID string) error {
	// Cascades across collections: one grant covers sessions, codes, and
	// tokens in every collection sharing the table.
	res := a.store.db.WithContext(ctx).
		Where(a.store.jsonExpr(persistence.FieldGrantID)+" = ?", grantID).
		Delete(&Record{})
	if res.Error != nil {
		return database.FromDatabase(res.Error, "record")
	}
	a.store.metrics.Add(ctx, a.store.metrics.Revoked, res.RowsAffected, backendName)
	return nil
}
