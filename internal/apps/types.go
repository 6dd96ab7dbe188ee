package apps

import (
	"context"
	"time"
)

// Application is a catalog entry owned by one organization.
type Application struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"org_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	ImageURL       string    `json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Input holds the caller-editable fields of an Application.
type Input struct {
	Name        string
	Description string
	URL         string
}

// Store persists applications. Every lookup is scoped by organization; a row
// of another organization is reported as apperr.ErrNotFound.
type Store interface {
	List(ctx context.Context, orgID int64) ([]Application, error)
	Get(ctx context.Context, orgID, id int64) (Application, error)
	Create(ctx context.Context, app *Application) error
	Update(ctx context.Context, app *Application) error
	Delete(ctx context.Context, orgID, id int64) error
	SetImage(ctx context.Context, orgID, id int64, imageURL string) (Application, error)
}
