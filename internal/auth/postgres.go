package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
	"github.com/Algorisys-Technologies/app-portal/internal/store/pg"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Organizations() OrganizationStore { return &orgStore{db: s.db} }
func (s *PGStore) Users() UserStore                 { return &userStore{db: s.db} }

// Organization store -------------------------------------------------------
type orgStore struct{ db *sql.DB }

func (s *orgStore) Register(ctx context.Context, org *Organization, admin *User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		insert into organizations (name, first_name, last_name, email, org_size, usage)
		values ($1, $2, $3, $4, $5, $6)
		returning id, created_at, updated_at
	`, org.Name, org.FirstName, org.LastName, org.Email, org.Size, org.Usage)
	if err := row.Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return mapWriteError(err)
	}

	admin.OrganizationID = org.ID
	row = tx.QueryRowContext(ctx, `
		insert into users (organization_id, role_id, email, password_hash, is_active)
		values ($1, $2, $3, $4, $5)
		returning id, created_at, updated_at
	`, admin.OrganizationID, admin.RoleID, admin.Email, admin.PasswordHash, admin.Active)
	if err := row.Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return tx.Commit()
}

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

const userColumns = `id, organization_id, role_id, email, password_hash, is_active,
	refresh_token_hash, refresh_token_expires_at, reset_token_hash, reset_token_expires_at,
	created_at, updated_at`

func (s *userStore) FindByEmail(ctx context.Context, orgID int64, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 and email=$2`, orgID, email)
	return scanUser(row)
}

func (s *userStore) FindByRefreshDigest(ctx context.Context, digest string, now time.Time) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where refresh_token_hash=$1 and refresh_token_expires_at >= $2`,
		digest, now)
	return scanUser(row)
}

func (s *userStore) SetRefreshToken(ctx context.Context, userID int64, digest string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set refresh_token_hash=$2, refresh_token_expires_at=$3, updated_at=now() where id=$1`,
		userID, digest, expiresAt)
	return err
}

func (s *userStore) RotateRefreshToken(ctx context.Context, userID int64, oldDigest, newDigest string, expiresAt, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update users
		set refresh_token_hash=$3, refresh_token_expires_at=$4, updated_at=now()
		where id=$1 and refresh_token_hash=$2 and refresh_token_expires_at >= $5
	`, userID, oldDigest, newDigest, expiresAt, now)
	if err != nil {
		return false, err
	}
	return singleRow(res)
}

func (s *userStore) ClearRefreshToken(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`update users set refresh_token_hash=null, refresh_token_expires_at=null, updated_at=now() where id=$1`,
		userID)
	return err
}

func (s *userStore) SetResetToken(ctx context.Context, userID int64, digest string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set reset_token_hash=$2, reset_token_expires_at=$3, updated_at=now() where id=$1`,
		userID, digest, expiresAt)
	return err
}

func (s *userStore) ConsumeResetToken(ctx context.Context, orgID int64, digest, passwordHash string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update users
		set password_hash=$3,
			reset_token_hash=null, reset_token_expires_at=null,
			refresh_token_hash=null, refresh_token_expires_at=null,
			updated_at=now()
		where organization_id=$1 and reset_token_hash=$2 and reset_token_expires_at >= $4
	`, orgID, digest, passwordHash, now)
	if err != nil {
		return false, err
	}
	return singleRow(res)
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u            User
		refreshHash  sql.NullString
		refreshUntil sql.NullTime
		resetHash    sql.NullString
		resetUntil   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.OrganizationID, &u.RoleID, &u.Email, &u.PasswordHash, &u.Active,
		&refreshHash, &refreshUntil, &resetHash, &resetUntil, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	u.RefreshTokenHash = refreshHash.String
	if refreshUntil.Valid {
		t := refreshUntil.Time
		u.RefreshExpiresAt = &t
	}
	u.ResetTokenHash = resetHash.String
	if resetUntil.Valid {
		t := resetUntil.Time
		u.ResetExpiresAt = &t
	}
	return &u, nil
}

func singleRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func mapWriteError(err error) error {
	if pg.IsUniqueViolation(err) {
		return ErrAlreadyRegistered
	}
	return err
}
