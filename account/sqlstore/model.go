package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/util"
)

// accountRow is the storage shape; Groups and Metadata are JSON columns.
// AuthMethod and ExternalID are nullable so the composite unique index
// enforces one account per external identity while leaving accounts with
// no linked method (both columns NULL) unconstrained.
type accountRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	Username      string `gorm:"size:255;index"`
	DisplayName   string `gorm:"size:255"`
	Email         string `gorm:"size:255;index"`
	EmailVerified bool
	Phone         string `gorm:"size:64"`
	PhoneVerified bool
	AvatarURL     string `gorm:"size:1024"`
	AuthMethod    *string `gorm:"size:100;uniqueIndex:idx_accounts_identity"`
	ExternalID    *string `gorm:"size:255;uniqueIndex:idx_accounts_identity"`
	Disabled      bool
	Groups        string `gorm:"column:group_names;type:text"`
	Metadata      string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false"`
}

// TableName sets the table name for GORM.
func (accountRow) TableName() string { return "accounts" }

func toRow(a *account.Account) (*accountRow, error) {
	row := &accountRow{
		ID:            a.ID,
		Username:      a.Username,
		DisplayName:   a.DisplayName,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Phone:         a.Phone,
		PhoneVerified: a.PhoneVerified,
		AvatarURL:     a.AvatarURL,
		Disabled:      a.Disabled,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.AuthMethod != "" || a.ExternalID != "" {
		row.AuthMethod = util.Ptr(a.AuthMethod)
		row.ExternalID = util.Ptr(a.ExternalID)
	}
	if a.Groups != nil {
		raw, err := json.Marshal(a.Groups)
		if err != nil {
			return nil, fmt.Errorf("failed to encode groups for %s: %w", a.ID, err)
		}
		row.Groups = string(raw)
	}
	if a.Metadata != nil {
		raw, err := json.Marshal(a.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata for %s: %w", a.ID, err)
		}
		row.Metadata = string(raw)
	}
	return row, nil
}

func (r *accountRow) toAccount() (*account.Account, error) {
	a := &account.Account{
		ID:            r.ID,
		Username:      r.Username,
		DisplayName:   r.DisplayName,
		Email:         r.Email,
		EmailVerified: r.EmailVerified,
		Phone:         r.Phone,
		PhoneVerified: r.PhoneVerified,
		AvatarURL:     r.AvatarURL,
		AuthMethod:    util.Deref(r.AuthMethod),
		ExternalID:    util.Deref(r.ExternalID),
		Disabled:      r.Disabled,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Groups != "" {
		if err := json.Unmarshal([]byte(r.Groups), &a.Groups); err != nil {
			return nil, fmt.Errorf("failed to decode groups for %s: %w", r.ID, err)
		}
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", r.ID, err)
		}
	}
	return a, nil
}
