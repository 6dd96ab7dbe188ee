package apps

import (
	"context"
	"database/sql"
	"errors"

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

const appColumns = `id, organization_id, name, description, url, image_url, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanApp(row scanner) (Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.Description, &a.URL, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, apperr.ErrNotFound
	}
	return a, err
}

func (s *PGStore) List(ctx context.Context, orgID int64) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+appColumns+` from applications where organization_id=$1 order by created_at desc, id desc`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, orgID, id int64) (Application, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+appColumns+` from applications where organization_id=$1 and id=$2`, orgID, id)
	return scanApp(row)
}

func (s *PGStore) Create(ctx context.Context, app *Application) error {
	row := s.db.QueryRowContext(ctx, `
		insert into applications (organization_id, name, description, url)
		values ($1, $2, $3, $4)
		returning `+appColumns,
		app.OrganizationID, app.Name, app.Description, app.URL)
	created, err := scanApp(row)
	if pg.IsForeignKeyViolation(err) {
		return ErrUnknownOrg
	}
	if err != nil {
		return err
	}
	*app = created
	return nil
}

func (s *PGStore) Update(ctx context.Context, app *Application) error {
	row := s.db.QueryRowContext(ctx, `
		update applications
		set name=$3, description=$4, url=$5, updated_at=now()
		where organization_id=$1 and id=$2
		returning `+appColumns,
		app.OrganizationID, app.ID, app.Name, app.Description, app.URL)
	updated, err := scanApp(row)
	if err != nil {
		return err
	}
	*app = updated
	return nil
}

func (s *PGStore) Delete(ctx context.Context, orgID, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from applications where organization_id=$1 and id=$2`, orgID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *PGStore) SetImage(ctx context.Context, orgID, id int64, imageURL string) (Application, error) {
	row := s.db.QueryRowContext(ctx, `
		update applications
		set image_url=$3, updated_at=now()
		where organization_id=$1 and id=$2
		returning `+appColumns,
		orgID, id, imageURL)
	return scanApp(row)
}
