package apps

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

var appRowColumns = []string{"id", "organization_id", "name", "description", "url", "image_url", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGListOrdersNewestFirst(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from applications where organization_id=\\$1 order by created_at desc").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(appRowColumns).
			AddRow(int64(2), int64(1), "Wiki", "", "https://wiki.test", "", now, now).
			AddRow(int64(1), int64(1), "CRM", "customers", "https://crm.test", "logo.png", now.Add(-time.Hour), now))

	list, err := store.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != 2 || list[1].ImageURL != "logo.png" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateReturnsRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("insert into applications").
		WithArgs(int64(1), "CRM", "customers", "https://crm.test").
		WillReturnRows(sqlmock.NewRows(appRowColumns).
			AddRow(int64(4), int64(1), "CRM", "customers", "https://crm.test", "", now, now))

	app := Application{OrganizationID: 1, Name: "CRM", Description: "customers", URL: "https://crm.test"}
	if err := store.Create(context.Background(), &app); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if app.ID != 4 || !app.CreatedAt.Equal(now) {
		t.Fatalf("unexpected application: %+v", app)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateUnknownOrganization(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into applications").
		WillReturnError(&pgconn.PgError{Code: pg.CodeForeignKeyViolation})

	app := Application{OrganizationID: 99, Name: "CRM", URL: "https://crm.test"}
	err := store.Create(context.Background(), &app)
	if !errors.Is(err, ErrUnknownOrg) {
		t.Fatalf("expected ErrUnknownOrg, got %v", err)
	}
	if apperr.HTTPStatus(err) != 401 {
		t.Fatalf("expected 401 mapping, got %d", apperr.HTTPStatus(err))
	}
}

func TestPGUpdateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("update applications\\s+set name=\\$3").
		WithArgs(int64(1), int64(9), "CRM", "", "https://crm.test").
		WillReturnRows(sqlmock.NewRows(appRowColumns))

	app := Application{ID: 9, OrganizationID: 1, Name: "CRM", URL: "https://crm.test"}
	if err := store.Update(context.Background(), &app); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGDelete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from applications where organization_id=\\$1 and id=\\$2").
		WithArgs(int64(1), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from applications").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), 1, 4); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(context.Background(), 1, 5); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSetImage(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("update applications\\s+set image_url=\\$3").
		WithArgs(int64(1), int64(4), "logo.png").
		WillReturnRows(sqlmock.NewRows(appRowColumns).
			AddRow(int64(4), int64(1), "CRM", "", "https://crm.test", "logo.png", now, now))

	app, err := store.SetImage(context.Background(), 1, 4, "logo.png")
	if err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if app.ImageURL != "logo.png" {
		t.Fatalf("unexpected image: %q", app.ImageURL)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
