package auth

import "errors"

var (
	// ErrIdentityExists signals a duplicate email (or federated id) at
	// account creation.
	ErrIdentityExists = errors.New("auth: identity already exists")
	// ErrInvalidCredentials covers both unknown email and password
	// mismatch; callers must not be able to tell which.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrNoToken means no token was presented at all.
	ErrNoToken = errors.New("auth: no token provided")
	// ErrInvalidToken covers bad signature, malformed structure, expiry
	// and a subject that no longer resolves to an account.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrRevoked marks a refresh token whose signature is valid but whose
	// hash is no longer the account's stored slot.
	ErrRevoked = errors.New("auth: token revoked")
	// ErrForbidden marks a role outside an operation's allow-list.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrNotFound is returned by identity stores for missing records.
	ErrNotFound = errors.New("auth: not found")
	// ErrStoreUnavailable wraps identity store I/O failures; the only
	// class surfaced to clients as a server error.
	ErrStoreUnavailable = errors.New("auth: identity store unavailable")
)
