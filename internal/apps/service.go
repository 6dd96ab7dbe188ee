// Package apps manages the applications an organization publishes in its
// portal, including their images.
package apps

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

const (
	maxNameLen        = 255
	maxDescriptionLen = 2000
	maxURLLen         = 2048
)

// Service implements organization-scoped application CRUD.
type Service struct {
	store  Store
	images *ImageStore
}

func NewService(store Store, images *ImageStore) (*Service, error) {
	if store == nil {
		return nil, errors.New("apps: store is required")
	}
	if images == nil {
		return nil, errors.New("apps: image store is required")
	}
	return &Service{store: store, images: images}, nil
}

// List returns the organization's applications, newest first.
func (s *Service) List(ctx context.Context, orgID int64) ([]Application, error) {
	if orgID <= 0 {
		return nil, apperr.ErrUnauthenticated
	}
	items, err := s.store.List(ctx, orgID)
	if err != nil {
		return nil, apperr.Internal("list applications", err)
	}
	if items == nil {
		items = []Application{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Application, error) {
	if err := checkIDs(orgID, id); err != nil {
		return Application{}, err
	}
	app, err := s.store.Get(ctx, orgID, id)
	if err != nil {
		return Application{}, storeError("get application", err)
	}
	return app, nil
}

func (s *Service) Create(ctx context.Context, orgID int64, in Input) (Application, error) {
	if orgID <= 0 {
		return Application{}, apperr.ErrUnauthenticated
	}
	in, err := validateInput(in)
	if err != nil {
		return Application{}, err
	}
	app := Application{
		OrganizationID: orgID,
		Name:           in.Name,
		Description:    in.Description,
		URL:            in.URL,
	}
	if err := s.store.Create(ctx, &app); err != nil {
		return Application{}, storeError("create application", err)
	}
	return app, nil
}

func (s *Service) Update(ctx context.Context, orgID, id int64, in Input) (Application, error) {
	if err := checkIDs(orgID, id); err != nil {
		return Application{}, err
	}
	in, err := validateInput(in)
	if err != nil {
		return Application{}, err
	}
	app := Application{
		ID:             id,
		OrganizationID: orgID,
		Name:           in.Name,
		Description:    in.Description,
		URL:            in.URL,
	}
	if err := s.store.Update(ctx, &app); err != nil {
		return Application{}, storeError("update application", err)
	}
	return app, nil
}

// Delete removes the application and its stored images.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	if err := checkIDs(orgID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, orgID, id); err != nil {
		return storeError("delete application", err)
	}
	if err := s.images.RemoveAll(id); err != nil {
		return apperr.Internal("remove application images", err)
	}
	return nil
}

// AttachImage stores r as the application's image and records its file name.
// The previous image is removed only once the new name is recorded.
func (s *Service) AttachImage(ctx context.Context, orgID, id int64, filename string, r io.Reader) (Application, error) {
	current, err := s.Get(ctx, orgID, id)
	if err != nil {
		return Application{}, err
	}
	name, err := s.images.Save(id, filename, r)
	if err != nil {
		return Application{}, err
	}
	app, err := s.store.SetImage(ctx, orgID, id, name)
	if err != nil {
		_ = s.images.Remove(id, name)
		return Application{}, storeError("set application image", err)
	}
	if current.ImageURL != "" {
		_ = s.images.Remove(id, current.ImageURL)
	}
	return app, nil
}

// ImagePath returns the on-disk location of the application's current image.
func (s *Service) ImagePath(ctx context.Context, orgID, id int64) (string, error) {
	app, err := s.Get(ctx, orgID, id)
	if err != nil {
		return "", err
	}
	if app.ImageURL == "" {
		return "", ErrImageNotFound
	}
	return s.images.Path(id, app.ImageURL), nil
}

func checkIDs(orgID, id int64) error {
	if orgID <= 0 {
		return apperr.ErrUnauthenticated
	}
	if id <= 0 {
		return apperr.Invalid("application id must be a positive integer")
	}
	return nil
}

func storeError(op string, err error) error {
	if errors.Is(err, ErrUnknownOrg) {
		return err
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrNotFound
	}
	return apperr.Internal(op, err)
}

func validateInput(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.URL = strings.TrimSpace(in.URL)

	switch {
	case in.Name == "":
		return Input{}, apperr.Invalid("name is required")
	case utf8.RuneCountInString(in.Name) > maxNameLen:
		return Input{}, apperr.Invalid("name must be at most %d characters", maxNameLen)
	case utf8.RuneCountInString(in.Description) > maxDescriptionLen:
		return Input{}, apperr.Invalid("description must be at most %d characters", maxDescriptionLen)
	case in.URL == "":
		return Input{}, apperr.Invalid("url is required")
	case len(in.URL) > maxURLLen:
		return Input{}, apperr.Invalid("url must be at most %d bytes", maxURLLen)
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Input{}, apperr.Invalid("url must be an absolute http or https URL")
	}
	return in, nil
}
