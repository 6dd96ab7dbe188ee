package license

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindActive(ctx context.Context, orgID, appID int64, now time.Time) (License, error) {
	var l License
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, application_id, start_date, end_date
		from licenses
		where organization_id=$1 and application_id=$2 and start_date <= $3 and end_date >= $3
		order by end_date desc
		limit 1
	`, orgID, appID, now).Scan(&l.ID, &l.OrganizationID, &l.ApplicationID, &l.StartDate, &l.EndDate)
	if errors.Is(err, sql.ErrNoRows) {
		return License{}, apperr.ErrNotFound
	}
	if err != nil {
		return License{}, err
	}
	return l, nil
}
