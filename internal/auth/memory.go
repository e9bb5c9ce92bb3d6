package auth

import (
	"context"
	"sync"
	"time"
)

var _ IdentityStore = (*MemoryStore)(nil)

// MemoryStore is an in-process IdentityStore used for local runs without a
// database and throughout the tests. Uniqueness and the refresh-slot CAS
// hold under the store mutex.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (s *MemoryStore) Create(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return ErrIdentityExists
		}
		if account.FederatedID != "" && existing.FederatedID == account.FederatedID {
			return ErrIdentityExists
		}
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[id]; ok {
		return clone(account), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Email == email {
			return clone(account), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByFederatedID(ctx context.Context, federatedID string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if federatedID == "" {
		return nil, ErrNotFound
	}
	for _, account := range s.accounts {
		if account.FederatedID == federatedID {
			return clone(account), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Save(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[account.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Name = account.Name
	stored.Email = account.Email
	stored.CredentialHash = account.CredentialHash
	stored.FederatedID = account.FederatedID
	stored.Role = account.Role
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetRefreshToken(ctx context.Context, accountID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	stored.RefreshTokenHash = hash
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RotateRefreshToken(ctx context.Context, accountID, currentHash, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[accountID]
	if !ok {
		return ErrRevoked
	}
	if stored.RefreshTokenHash != currentHash {
		return ErrRevoked
	}
	stored.RefreshTokenHash = newHash
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func clone(account *Account) *Account {
	copied := *account
	return &copied
}
