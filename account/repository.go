package account

import "context"

// SortOrder direction for List.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortBy names the sortable account fields.
type SortBy string

const (
	SortByUsername  SortBy = "username"
	SortByEmail     SortBy = "email"
	SortByCreatedAt SortBy = "created_at"
	SortByUpdatedAt SortBy = "updated_at"
)

// Filter narrows a List call. Zero-valued fields do not filter.
type Filter struct {
	AuthMethod string
	Group      string
	Disabled   *bool
}

// ListOptions control filtering, ordering, and pagination of List.
// Defaults: sort by created_at ascending, no offset, no limit.
type ListOptions struct {
	Filter    Filter
	SortBy    SortBy
	SortOrder SortOrder
	Offset    int
	Limit     int
}

// Repository is the account storage contract. Find methods return
// (nil, nil) when no account matches; errors are reserved for
// infrastructure failures. Update returns a NotFound error for an absent
// id and always advances UpdatedAt to strictly after the previous value.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByAuthIdentity matches both fields exactly; partial matches do
	// not resolve.
	FindByAuthIdentity(ctx context.Context, method, externalID string) (*Account, error)

	// FindOrCreate resolves the account for an external identity,
	// creating it on first login and refreshing the profile on every
	// subsequent one. Safe under arbitrary concurrency for the same
	// (method, externalID): all callers observe the same id.
	FindOrCreate(ctx context.Context, method, externalID string, profile Profile) (*Account, error)

	// Create inserts a new account. An empty ID is filled in: derived
	// when the account carries an external identity, random otherwise.
	// Returns AlreadyExists when the id is taken.
	Create(ctx context.Context, a *Account) (*Account, error)

	Update(ctx context.Context, id string, changes Changes) (*Account, error)
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, opts ListOptions) ([]*Account, error)

	// Clear removes every account. Test and administrative surface.
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int64, error)
}
