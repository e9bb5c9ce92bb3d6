package auth

import "time"

// Role is the single authorization level attached to an account.
type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleDepartment Role = "department"
	RoleAdmin      Role = "admin"
)

// ParseRole maps a raw string onto a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleUser, RoleModerator, RoleDepartment, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// Elevated reports whether the role is one of the privileged roles that a
// federated sign-in must never overwrite.
func (r Role) Elevated() bool {
	switch r {
	case RoleModerator, RoleDepartment, RoleAdmin:
		return true
	}
	return false
}

// FullName is the structured display name required at registration.
type FullName struct {
	First string `json:"firstName"`
	Last  string `json:"lastName"`
}

// Account is the durable identity record. Every account carries at least
// one of CredentialHash or FederatedID; RefreshTokenHash holds the hash of
// the single currently-valid refresh token, empty meaning no active
// session.
type Account struct {
	ID               string
	Name             FullName
	Email            string
	CredentialHash   string
	FederatedID      string
	Role             Role
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicAccount is the client-facing view; it never exposes hashes or the
// federated subject.
type PublicAccount struct {
	ID    string   `json:"id"`
	Name  FullName `json:"fullName"`
	Email string   `json:"email"`
	Role  Role     `json:"role"`
}

// Public returns the client-facing view of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// Session is the result of any successful authentication flow: the account
// view plus a freshly minted token pair.
type Session struct {
	Account          PublicAccount
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
