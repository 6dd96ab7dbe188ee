package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
	"github.com/Algorisys-Technologies/app-portal/internal/store/pg"
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

var userRowColumns = []string{
	"id", "organization_id", "role_id", "email", "password_hash", "is_active",
	"refresh_token_hash", "refresh_token_expires_at", "reset_token_hash", "reset_token_expires_at",
	"created_at", "updated_at",
}

func TestPGFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	exp := testEpoch.Add(time.Hour)
	mock.ExpectQuery("select .* from users where organization_id=\\$1 and email=\\$2").
		WithArgs(int64(7), "admin@acme.test").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(3), int64(7), RoleAdmin, "admin@acme.test", "hash", true,
				"digest", exp, nil, nil, testEpoch, testEpoch))

	u, err := store.Users().FindByEmail(context.Background(), 7, "admin@acme.test")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != 3 || u.OrganizationID != 7 || !u.Active || u.RefreshTokenHash != "digest" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.RefreshExpiresAt == nil || !u.RefreshExpiresAt.Equal(exp) {
		t.Fatalf("unexpected refresh expiry: %v", u.RefreshExpiresAt)
	}
	if u.ResetExpiresAt != nil || u.ResetTokenHash != "" {
		t.Fatalf("expected empty reset state: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select .* from users").
		WithArgs(int64(7), "ghost@acme.test").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := store.Users().FindByEmail(context.Background(), 7, "ghost@acme.test")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPGRotateRefreshTokenIsConditional(t *testing.T) {
	store, mock := newMockStore(t)
	exp := testEpoch.Add(7 * 24 * time.Hour)

	mock.ExpectExec("update users\\s+set refresh_token_hash=\\$3.*where id=\\$1 and refresh_token_hash=\\$2 and refresh_token_expires_at >= \\$5").
		WithArgs(int64(3), "old", "new", exp, testEpoch).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update users\\s+set refresh_token_hash=\\$3").
		WithArgs(int64(3), "old", "newer", exp, testEpoch).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Users().RotateRefreshToken(context.Background(), 3, "old", "new", exp, testEpoch)
	if err != nil || !ok {
		t.Fatalf("expected first rotation to win, got ok=%v err=%v", ok, err)
	}
	ok, err = store.Users().RotateRefreshToken(context.Background(), 3, "old", "newer", exp, testEpoch)
	if err != nil || ok {
		t.Fatalf("expected second rotation to lose, got ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGConsumeResetTokenClearsTokens(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("(?s)update users.*set password_hash=\\$3.*refresh_token_hash=null.*where organization_id=\\$1 and reset_token_hash=\\$2 and reset_token_expires_at >= \\$4").
		WithArgs(int64(7), "digest", "newhash", testEpoch).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Users().ConsumeResetToken(context.Background(), 7, "digest", "newhash", testEpoch)
	if err != nil || !ok {
		t.Fatalf("ConsumeResetToken: ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRegisterCreatesOrganizationAndAdmin(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("insert into organizations").
		WithArgs("Acme", "Ada", "Lovelace", "admin@acme.test", 25, "tools").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), testEpoch, testEpoch))
	mock.ExpectQuery("insert into users").
		WithArgs(int64(7), RoleAdmin, "admin@acme.test", "hash", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), testEpoch, testEpoch))
	mock.ExpectCommit()

	org := Organization{Name: "Acme", FirstName: "Ada", LastName: "Lovelace", Email: "admin@acme.test", Size: 25, Usage: "tools"}
	admin := User{RoleID: RoleAdmin, Email: "admin@acme.test", PasswordHash: "hash", Active: true}
	if err := store.Organizations().Register(context.Background(), &org, &admin); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if org.ID != 7 || admin.ID != 3 || admin.OrganizationID != 7 {
		t.Fatalf("ids not populated: org=%+v admin=%+v", org, admin)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRegisterMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("insert into organizations").
		WillReturnError(&pgconn.PgError{Code: pg.CodeUniqueViolation})
	mock.ExpectRollback()

	org := Organization{Name: "Acme"}
	admin := User{}
	err := store.Organizations().Register(context.Background(), &org, &admin)
	if !errors.Is(err, ErrAlreadyRegistered) || !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
