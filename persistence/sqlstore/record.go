package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/authweave/idkit/persistence"
)

// Record is the flat storage row shared by every collection.
type Record struct {
	Collection string     `gorm:"primaryKey;size:100"`
	ID         string     `gorm:"primaryKey;size:255;column:id"`
	Payload    string     `gorm:"type:text;not null"`
	ExpiresAt  *time.Time `gorm:"index"`
	ConsumedAt *time.Time `gorm:"index"`
}

// TableName sets the table name for GORM.
func (Record) TableName() string { return "oidc_records" }

func (r *Record) expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// decode unmarshals the stored payload, merging the consumed mark when
// the record has been consumed.
func (r *Record) decode() (persistence.Payload, error) {
	var p persistence.Payload
	if err := json.Unmarshal([]byte(r.Payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload for %s/%s: %w", r.Collection, r.ID, err)
	}
	if r.ConsumedAt != nil {
		p[persistence.ConsumedField] = r.ConsumedAt.Unix()
	}
	return p, nil
}
