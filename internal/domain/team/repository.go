package team

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	List(ctx context.Context) ([]Team, error)
	GetByFlag(ctx context.Context, flag string) (Team, bool, error)
	GetOrCreate(ctx context.Context, flag string) (Team, error)

	Membership(ctx context.Context, flag string) (Membership, error)

	// UpdateMembership applies the requested roster and backup sets as one
	// transaction: members missing from the requested sets are cleared,
	// requested members are set, and the captain flag is re-resolved.
	// A nil captain clears the current captain. Returns
	// ErrConflictingMembership when the storage constraint rejects the
	// requested sets; any failure leaves the previous state untouched.
	UpdateMembership(ctx context.Context, flag string, rosterIDs, backupIDs []int64, captainID *int64) (Membership, error)
}
