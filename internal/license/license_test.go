package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

var (
	start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC)
)

func newService(t *testing.T, now time.Time) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.Add(License{OrganizationID: 1, ApplicationID: 10, StartDate: start, EndDate: end})
	svc, err := NewService(store, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestCheckLicenseWindow(t *testing.T) {
	cases := []struct {
		name  string
		now   time.Time
		org   int64
		app   int64
		valid bool
	}{
		{"inside window", start.Add(30 * 24 * time.Hour), 1, 10, true},
		{"at start", start, 1, 10, true},
		{"at end", end, 1, 10, true},
		{"before start", start.Add(-time.Second), 1, 10, false},
		{"after end", end.Add(time.Second), 1, 10, false},
		{"other app", start.Add(time.Hour), 1, 11, false},
		{"other org", start.Add(time.Hour), 2, 10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newService(t, tc.now)
			res, err := svc.CheckLicense(context.Background(), tc.org, tc.app)
			if err != nil {
				t.Fatalf("CheckLicense: %v", err)
			}
			if res.Valid != tc.valid {
				t.Fatalf("valid=%v, want %v", res.Valid, tc.valid)
			}
			if tc.valid && (res.License == nil || res.License.ApplicationID != tc.app) {
				t.Fatalf("expected license in result: %+v", res)
			}
			if !tc.valid && res.License != nil {
				t.Fatalf("unexpected license in invalid result: %+v", res.License)
			}
		})
	}
}

func TestCheckLicenseInputErrors(t *testing.T) {
	svc, _ := newService(t, start)
	if _, err := svc.CheckLicense(context.Background(), 1, 0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := svc.CheckLicense(context.Background(), 0, 10); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestParseAppID(t *testing.T) {
	for _, raw := range []string{"", "abc", "0", "-4", "1.5"} {
		if _, err := ParseAppID(raw); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("ParseAppID(%q): expected invalid argument, got %v", raw, err)
		}
	}
	id, err := ParseAppID(" 42 ")
	if err != nil || id != 42 {
		t.Fatalf("ParseAppID: id=%d err=%v", id, err)
	}
}

type failingStore struct{ err error }

func (f failingStore) FindActive(context.Context, int64, int64, time.Time) (License, error) {
	return License{}, f.err
}

func TestCheckLicenseStoreFailure(t *testing.T) {
	svc, err := NewService(failingStore{err: errors.New("db down")})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	_, err = svc.CheckLicense(context.Background(), 1, 10)
	if !errors.Is(err, apperr.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestPGFindActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)
	now := start.Add(time.Hour)

	mock.ExpectQuery("select id, organization_id, application_id, start_date, end_date from licenses").
		WithArgs(int64(1), int64(10), now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "application_id", "start_date", "end_date"}).
			AddRow(int64(5), int64(1), int64(10), start, end))
	mock.ExpectQuery("from licenses").
		WithArgs(int64(1), int64(11), now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "application_id", "start_date", "end_date"}))

	lic, err := store.FindActive(context.Background(), 1, 10, now)
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if lic.ID != 5 || !lic.EndDate.Equal(end) {
		t.Fatalf("unexpected license: %+v", lic)
	}
	if _, err := store.FindActive(context.Background(), 1, 11, now); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
