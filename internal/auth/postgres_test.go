package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func accountRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email",
		"credential_hash", "federated_id", "role",
		"refresh_token_hash", "created_at", "updated_at",
	}).AddRow("acct-1", "Ada", "Lovelace", "a@x.com", "hash", "", "user", "rth", now, now)
}

func TestPGStoreCreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into accounts").
		WithArgs("acct-1", "Ada", "Lovelace", "a@x.com", "hash", nil, "user").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := store.Create(context.Background(), &Account{
		ID:             "acct-1",
		Name:           FullName{First: "Ada", Last: "Lovelace"},
		Email:          "a@x.com",
		CredentialHash: "hash",
		Role:           RoleUser,
	})
	if !errors.Is(err, ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from accounts where email").
		WithArgs("a@x.com").
		WillReturnRows(accountRows())

	account, err := store.FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if account.ID != "acct-1" || account.Role != RoleUser {
		t.Fatalf("unexpected account: %+v", account)
	}
	if account.Name.First != "Ada" || account.RefreshTokenHash != "rth" {
		t.Fatalf("columns scanned incorrectly: %+v", account)
	}
}

func TestPGStoreFindMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from accounts where id").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.FindByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreFindUnavailable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from accounts where id").
		WithArgs("acct-1").
		WillReturnError(errors.New("connection refused"))

	if _, err := store.FindByID(context.Background(), "acct-1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestPGStoreRotateRefreshToken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update accounts set refresh_token_hash").
		WithArgs("acct-1", "old", "new").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.RotateRefreshToken(context.Background(), "acct-1", "old", "new"); err != nil {
		t.Fatalf("RotateRefreshToken: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreRotateStaleHash(t *testing.T) {
	store, mock := newMockStore(t)

	// Zero rows touched means the slot no longer holds the presented hash.
	mock.ExpectExec("update accounts set refresh_token_hash").
		WithArgs("acct-1", "stale", "new").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RotateRefreshToken(context.Background(), "acct-1", "stale", "new")
	if !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestPGStoreSetRefreshToken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update accounts set refresh_token_hash").
		WithArgs("acct-1", "new").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SetRefreshToken(context.Background(), "acct-1", "new"); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}

	mock.ExpectExec("update accounts set refresh_token_hash").
		WithArgs("missing", "new").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.SetRefreshToken(context.Background(), "missing", "new"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
