package auth

import "context"

// IdentityStore is the sole persistence dependency of the session
// subsystem. Implementations must enforce atomic uniqueness on email and
// federated id: a concurrent duplicate Create fails with
// ErrIdentityExists rather than overwriting.
type IdentityStore interface {
	// Create persists a new account. ErrIdentityExists on duplicate email
	// or federated id.
	Create(ctx context.Context, account *Account) error

	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByFederatedID(ctx context.Context, federatedID string) (*Account, error)

	// Save persists mutated role, credentials and federated linkage.
	Save(ctx context.Context, account *Account) error

	// SetRefreshToken unconditionally overwrites the account's refresh
	// token slot. Overwriting is the revocation mechanism for any prior
	// session.
	SetRefreshToken(ctx context.Context, accountID, hash string) error

	// RotateRefreshToken replaces the slot only if it still holds
	// currentHash, as one atomic conditional update. A stale currentHash
	// fails with ErrRevoked so a concurrent refresh loses explicitly
	// instead of succeeding spuriously.
	RotateRefreshToken(ctx context.Context, accountID, currentHash, newHash string) error
}
