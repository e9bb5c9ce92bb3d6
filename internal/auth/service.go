package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"voiceup.org/internal/ids"
)

// Service orchestrates login, registration, federated sign-in, refresh
// and revocation checks. It is the only component that writes the stored
// refresh-token hash.
type Service struct {
	store     IdentityStore
	tokens    *TokenIssuer
	passwords PasswordHasher

	// Email→role assignments applied at federated sign-in; never demotes
	// an already elevated role.
	roleAssignments map[string]Role
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithRoleAssignments installs the fixed email→role allow-list. Unknown
// role names are rejected at startup.
func WithRoleAssignments(assignments map[string]string) ServiceOption {
	return func(s *Service) error {
		for email, raw := range assignments {
			role, ok := ParseRole(strings.ToLower(strings.TrimSpace(raw)))
			if !ok {
				return fmt.Errorf("auth: unknown role %q for %s", raw, email)
			}
			s.roleAssignments[normalizeEmail(email)] = role
		}
		return nil
	}
}

// NewService constructs the session manager.
func NewService(store IdentityStore, tokens *TokenIssuer, passwords PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{
		store:           store,
		tokens:          tokens,
		passwords:       passwords,
		roleAssignments: make(map[string]Role),
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// RegisterInput is the local-credential registration draft. The role is
// always RoleUser; clients cannot pick their own.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// FederatedProfile is the closed variant for provider-asserted identities.
type FederatedProfile struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// Register creates a local-credential account and starts its first
// session. ErrIdentityExists when the email is taken.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Session, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return Session{}, ErrInvalidCredentials
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return Session{}, ErrIdentityExists
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return Session{}, err
	}
	account := &Account{
		ID:             ids.New(),
		Name:           FullName{First: strings.TrimSpace(input.FirstName), Last: strings.TrimSpace(input.LastName)},
		Email:          email,
		CredentialHash: hash,
		Role:           RoleUser,
	}
	if err := s.store.Create(ctx, account); err != nil {
		return Session{}, err
	}
	return s.startSession(ctx, account)
}

// LoginWithCredential authenticates email+password. Unknown email and
// password mismatch return the same ErrInvalidCredentials.
func (s *Service) LoginWithCredential(ctx context.Context, email, password string) (Session, error) {
	account, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		s.passwords.Verify(password, "")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !s.passwords.Verify(password, account.CredentialHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.startSession(ctx, account)
}

// LoginWithFederatedIdentity resolves a provider-asserted identity,
// linking by federated id first and by email second, creating the account
// when neither matches. The returned bool reports whether an account was
// created. This path always re-issues tokens, equivalent to a fresh
// login.
func (s *Service) LoginWithFederatedIdentity(ctx context.Context, profile FederatedProfile) (Session, bool, error) {
	if strings.TrimSpace(profile.Subject) == "" {
		return Session{}, false, ErrInvalidCredentials
	}
	email := normalizeEmail(profile.Email)
	if email == "" {
		return Session{}, false, ErrInvalidCredentials
	}
	assigned := RoleUser
	if role, ok := s.roleAssignments[email]; ok {
		assigned = role
	}

	account, err := s.store.FindByFederatedID(ctx, profile.Subject)
	if errors.Is(err, ErrNotFound) {
		account, err = s.store.FindByEmail(ctx, email)
	}
	switch {
	case err == nil:
		changed := false
		if account.FederatedID == "" {
			account.FederatedID = profile.Subject
			changed = true
		}
		if !account.Role.Elevated() && account.Role != assigned {
			account.Role = assigned
			changed = true
		}
		if changed {
			if err := s.store.Save(ctx, account); err != nil {
				return Session{}, false, err
			}
		}
		session, err := s.startSession(ctx, account)
		return session, false, err
	case errors.Is(err, ErrNotFound):
		account = &Account{
			ID:          ids.New(),
			Name:        FullName{First: strings.TrimSpace(profile.GivenName), Last: strings.TrimSpace(profile.FamilyName)},
			Email:       email,
			FederatedID: profile.Subject,
			Role:        assigned,
		}
		if err := s.store.Create(ctx, account); err != nil {
			return Session{}, false, err
		}
		session, err := s.startSession(ctx, account)
		return session, true, err
	default:
		return Session{}, false, err
	}
}

// Refresh exchanges a live refresh token for a new pair, rotating the
// stored slot. The presented token must verify and match the slot; a
// token rotated away earlier fails with ErrRevoked even though its
// signature is still valid.
func (s *Service) Refresh(ctx context.Context, presented string) (Session, error) {
	if strings.TrimSpace(presented) == "" {
		return Session{}, ErrNoToken
	}
	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	account, err := s.store.FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}

	presentedHash := hashToken(presented)
	if account.RefreshTokenHash == "" || !tokensEqual(presentedHash, account.RefreshTokenHash) {
		return Session{}, ErrRevoked
	}

	pair, err := s.tokens.Issue(account)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.RotateRefreshToken(ctx, account.ID, presentedHash, hashToken(pair.RefreshToken)); err != nil {
		return Session{}, err
	}
	return sessionFrom(account, pair), nil
}

// Authenticate validates an access token and resolves the account fresh
// from the store so role changes take effect before the token expires.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Account, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrNoToken
	}
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	account, err := s.store.FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// startSession mints a pair and overwrites the refresh slot, superseding
// any previous session.
func (s *Service) startSession(ctx context.Context, account *Account) (Session, error) {
	pair, err := s.tokens.Issue(account)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.SetRefreshToken(ctx, account.ID, hashToken(pair.RefreshToken)); err != nil {
		return Session{}, err
	}
	return sessionFrom(account, pair), nil
}

func sessionFrom(account *Account, pair TokenPair) Session {
	return Session{
		Account:          account.Public(),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
