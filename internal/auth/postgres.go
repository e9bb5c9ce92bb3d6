package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ IdentityStore = (*PGStore)(nil)

const uniqueViolation = "23505"

// PGStore implements IdentityStore on PostgreSQL. Uniqueness of email and
// federated id is delegated to database constraints so concurrent
// duplicate creates fail instead of overwriting.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const accountColumns = `id, first_name, last_name, email,
	coalesce(credential_hash, ''), coalesce(federated_id, ''), role,
	coalesce(refresh_token_hash, ''), created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx,
		`insert into accounts(id, first_name, last_name, email, credential_hash, federated_id, role)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		account.ID, account.Name.First, account.Name.Last, account.Email,
		nullIfEmpty(account.CredentialHash), nullIfEmpty(account.FederatedID), string(account.Role),
	)
	if isUniqueViolation(err) {
		return ErrIdentityExists
	}
	return storeErr(err)
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.findBy(ctx, "id", id)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findBy(ctx, "email", email)
}

func (s *PGStore) FindByFederatedID(ctx context.Context, federatedID string) (*Account, error) {
	return s.findBy(ctx, "federated_id", federatedID)
}

func (s *PGStore) findBy(ctx context.Context, column, value string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from accounts where %s = $1`, accountColumns, column), value)
	var (
		account Account
		role    string
	)
	err := row.Scan(&account.ID, &account.Name.First, &account.Name.Last, &account.Email,
		&account.CredentialHash, &account.FederatedID, &role,
		&account.RefreshTokenHash, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	account.Role = Role(role)
	return &account, nil
}

func (s *PGStore) Save(ctx context.Context, account *Account) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts
		 set first_name = $2, last_name = $3, email = $4, credential_hash = $5,
		     federated_id = $6, role = $7, updated_at = now()
		 where id = $1`,
		account.ID, account.Name.First, account.Name.Last, account.Email,
		nullIfEmpty(account.CredentialHash), nullIfEmpty(account.FederatedID), string(account.Role),
	)
	if isUniqueViolation(err) {
		return ErrIdentityExists
	}
	if err != nil {
		return storeErr(err)
	}
	return checkAffected(res)
}

func (s *PGStore) SetRefreshToken(ctx context.Context, accountID, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set refresh_token_hash = $2, updated_at = now() where id = $1`,
		accountID, nullIfEmpty(hash),
	)
	if err != nil {
		return storeErr(err)
	}
	return checkAffected(res)
}

// RotateRefreshToken is the single-slot compare-and-swap: the update only
// lands while the slot still holds currentHash, so the loser of a
// concurrent refresh race gets ErrRevoked instead of silently clobbering
// the winner's slot.
func (s *PGStore) RotateRefreshToken(ctx context.Context, accountID, currentHash, newHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set refresh_token_hash = $3, updated_at = now()
		 where id = $1 and refresh_token_hash = $2`,
		accountID, currentHash, nullIfEmpty(newHash),
	)
	if err != nil {
		return storeErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if affected == 0 {
		return ErrRevoked
	}
	return nil
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
