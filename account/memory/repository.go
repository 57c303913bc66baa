// Package memory implements the account repository as an in-process map.
// The default backend for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/errors"
)

// Repository is a map-backed account store. All operations are atomic
// under a single mutex; FindOrCreate additionally leans on deterministic
// ids, so concurrent logins for one identity land on the same map key.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account
}

// NewRepository creates an empty in-memory account repository.
func NewRepository() *Repository {
	return &Repository{accounts: make(map[string]*account.Account)}
}

var _ account.Repository = (*Repository)(nil)

// FindByID returns the account with the given id, or nil when absent.
func (r *Repository) FindByID(_ context.Context, id string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts[id].Clone(), nil
}

// FindByUsername returns the account with the given username, or nil.
func (r *Repository) FindByUsername(_ context.Context, username string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			return a.Clone(), nil
		}
	}
	return nil, nil
}

// FindByEmail returns the account with the given email, or nil.
func (r *Repository) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return a.Clone(), nil
		}
	}
	return nil, nil
}

// FindByAuthIdentity returns the account matching both fields exactly.
func (r *Repository) FindByAuthIdentity(_ context.Context, method, externalID string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.AuthMethod == method && a.ExternalID == externalID {
			return a.Clone(), nil
		}
	}
	return nil, nil
}

// FindOrCreate resolves or creates the account for an external identity.
func (r *Repository) FindOrCreate(_ context.Context, method, externalID string, profile account.Profile) (*account.Account, error) {
	id := account.DeriveID(method, externalID)
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.accounts[id]; ok {
		profile.Apply(existing)
		existing.Touch(now)
		return existing.Clone(), nil
	}

	a := account.NewFromIdentity(method, externalID, profile, now)
	r.accounts[id] = a
	return a.Clone(), nil
}

// Create inserts a new account, filling in an empty id.
func (r *Repository) Create(_ context.Context, a *account.Account) (*account.Account, error) {
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

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[stored.ID]; exists {
		return nil, errors.AlreadyExists("account")
	}
	r.accounts[stored.ID] = stored
	return stored.Clone(), nil
}

// Update applies a partial change set to an existing account.
func (r *Repository) Update(_ context.Context, id string, changes account.Changes) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, errors.NotFound("account", id)
	}
	changes.Apply(a)
	a.Touch(time.Now())
	return a.Clone(), nil
}

// Delete removes an account. Deleting an absent id is a no-op.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

// List returns accounts matching the options.
func (r *Repository) List(_ context.Context, opts account.ListOptions) ([]*account.Account, error) {
	r.mu.RLock()
	matched := make([]*account.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		if matchesFilter(a, opts.Filter) {
			matched = append(matched, a.Clone())
		}
	}
	r.mu.RUnlock()

	sortAccounts(matched, opts.SortBy, opts.SortOrder)
	return paginate(matched, opts.Offset, opts.Limit), nil
}

// Clear removes every account.
func (r *Repository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = make(map[string]*account.Account)
	return nil
}

// Size returns the number of stored accounts.
func (r *Repository) Size(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.accounts)), nil
}

func matchesFilter(a *account.Account, f account.Filter) bool {
	if f.AuthMethod != "" && a.AuthMethod != f.AuthMethod {
		return false
	}
	if f.Disabled != nil && a.Disabled != *f.Disabled {
		return false
	}
	if f.Group != "" {
		found := false
		for _, g := range a.Groups {
			if g == f.Group {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortAccounts(accounts []*account.Account, by account.SortBy, order account.SortOrder) {
	less := func(a, b *account.Account) bool {
		switch by {
		case account.SortByUsername:
			return strings.Compare(a.Username, b.Username) < 0
		case account.SortByEmail:
			return strings.Compare(a.Email, b.Email) < 0
		case account.SortByUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		if order == account.SortDesc {
			return less(accounts[j], accounts[i])
		}
		return less(accounts[i], accounts[j])
	})
}

func paginate(accounts []*account.Account, offset, limit int) []*account.Account {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(accounts) {
		return []*account.Account{}
	}
	accounts = accounts[offset:]
	if limit > 0 && limit < len(accounts) {
		accounts = accounts[:limit]
	}
	return accounts
}
