// Package sqlstore implements the account repository on a relational
// database through GORM. The same code serves the embedded SQLite backend
// and the networked PostgreSQL backend; the dialector is chosen when the
// database is opened.
package sqlstore

import (
	"context"
	"time"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/database"
	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/logger"
)

// Repository is a GORM-backed account store. Concurrent FindOrCreate
// calls for one identity race on the deterministic primary key; the
// database's duplicate-key rejection picks the single winner.
type Repository struct {
	db  *database.DB
	log *logger.Logger
}

// NewRepository creates a relational account repository over an open
// database.
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, log: log.WithComponent("account-sql")}
}

var _ account.Repository = (*Repository)(nil)

// Migrate creates or updates the accounts table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&accountRow{})
}

// FindByID returns the account with the given id, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*account.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUsername returns the account with the given username, or nil.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*account.Account, error) {
	return r.findOne(ctx, "username = ?", username)
}

// FindByEmail returns the account with the given email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByAuthIdentity returns the account matching both fields exactly.
func (r *Repository) FindByAuthIdentity(ctx context.Context, method, externalID string) (*account.Account, error) {
	return r.findOne(ctx, "auth_method = ? AND external_id = ?", method, externalID)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...interface{}) (*account.Account, error) {
	var row accountRow
	err := r.db.WithContext(ctx).Where(query, args...).First(&row).Error
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "account")
	}
	return row.toAccount()
}

// FindOrCreate resolves or creates the account for an external identity.
// The id is derived before the existence check; when two callers race,
// both compute the same primary key, the insert loser sees a duplicate
// and falls back to refreshing the winner's row.
func (r *Repository) FindOrCreate(ctx context.Context, method, externalID string, profile account.Profile) (*account.Account, error) {
	id := account.DeriveID(method, externalID)
	now := time.Now()

	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.refresh(ctx, existing, profile, now)
	}

	fresh := account.NewFromIdentity(method, externalID, profile, now)
	row, err := toRow(fresh)
	if err != nil {
		return nil, err
	}
	insertErr := r.db.WithContext(ctx).Create(row).Error
	if insertErr == nil {
		return fresh, nil
	}
	if !database.IsDuplicateError(insertErr) {
		return nil, database.FromDatabase(insertErr, "account")
	}

	// Lost the race; the winner's row carries the same id.
	winner, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, errors.DatabaseError(insertErr)
	}
	return r.refresh(ctx, winner, profile, now)
}

func (r *Repository) refresh(ctx context.Context, a *account.Account, profile account.Profile, now time.Time) (*account.Account, error) {
	profile.Apply(a)
	a.Touch(now)
	row, err := toRow(a)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, database.FromDatabase(err, "account")
	}
	return a, nil
}

// Create inserts a new account, filling in an empty id.
func (r *Repository) Create(ctx context.Context, a *account.Account) (*account.Account, error) {
	stored := a.Clone()
	if stored.ID == "" {
		if stored.AuthMethod != "" && stored.ExternalID != "" {
			stored.ID = account.DeriveID(stored.AuthMethod, stored.ExternalID)
		} else {
			stored.ID = account.RandomID()
		}
	}
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	row, err := toRow(stored)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, database.FromDatabase(err, "account")
	}
	return stored, nil
}

// Update applies a partial change set to an existing account.
func (r *Repository) Update(ctx context.Context, id string, changes account.Changes) (*account.Account, error) {
	var row accountRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if database.IsNotFoundError(err) {
		return nil, errors.NotFound("account", id)
	}
	if err != nil {
		return nil, database.FromDatabase(err, "account")
	}

	a, err := row.toAccount()
	if err != nil {
		return nil, err
	}
	changes.Apply(a)
	a.Touch(time.Now())

	updated, err := toRow(a)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Save(updated).Error; err != nil {
		return nil, database.FromDatabase(err, "account")
	}
	return a, nil
}

// Delete removes an account. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&accountRow{})
	if res.Error != nil {
		return database.FromDatabase(res.Error, "account")
	}
	return nil
}

// List returns accounts matching the options.
func (r *Repository) List(ctx context.Context, opts account.ListOptions) ([]*account.Account, error) {
	q := r.db.WithContext(ctx).Model(&accountRow{})

	if opts.Filter.AuthMethod != "" {
		q = q.Where("auth_method = ?", opts.Filter.AuthMethod)
	}
	if opts.Filter.Disabled != nil {
		q = q.Where("disabled = ?", *opts.Filter.Disabled)
	}
	if opts.Filter.Group != "" {
		// Groups is a JSON array column; matching the quoted element is
		// portable across both dialects.
		q = q.Where("group_names LIKE ?", `%"`+opts.Filter.Group+`"%`)
	}

	q = q.Order(orderClause(opts.SortBy, opts.SortOrder))
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var rows []accountRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "account")
	}

	accounts := make([]*account.Account, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toAccount()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// Clear removes every account.
func (r *Repository) Clear(ctx context.Context) error {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&accountRow{})
	if res.Error != nil {
		return database.FromDatabase(res.Error, "account")
	}
	return nil
}

// Size returns the number of stored accounts.
func (r *Repository) Size(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&accountRow{}).Count(&n).Error; err != nil {
		return 0, database.FromDatabase(err, "account")
	}
	return n, nil
}

func orderClause(by account.SortBy, order account.SortOrder) string {
	column := "created_at"
	switch by {
	case account.SortByUsername:
		column = "username"
	case account.SortByEmail:
		column = "email"
	case account.SortByUpdatedAt:
		column = "updated_at"
	}
	if order == account.SortDesc {
		return column + " DESC"
	}
	return column + " ASC"
}
