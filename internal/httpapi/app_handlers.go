package httpapi

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
	"github.com/Algorisys-Technologies/app-portal/internal/apps"
	"github.com/Algorisys-Technologies/app-portal/internal/audit"
	"github.com/Algorisys-Technologies/app-portal/internal/auth"
)

// multipartOverhead is the room left for multipart headers and boundaries on
// top of the image size limit.
const multipartOverhead = 64 << 10

type appRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type listAppsResponse struct {
	Items []apps.Application `json:"items"`
}

func (req appRequest) input() apps.Input {
	return apps.Input{Name: req.Name, Description: req.Description, URL: req.URL}
}

func (a *API) handleListApps(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	items, err := a.apps.List(r.Context(), id.OrgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listAppsResponse{Items: items})
}

func (a *API) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req appRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	app, err := a.apps.Create(r.Context(), id.OrgID, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventAppCreated, map[string]any{
		"app_id": app.ID,
		"name":   app.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/apps/%d", app.ID))
	writeJSON(w, http.StatusCreated, app)
}

func (a *API) handleGetApp(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	appID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	app, err := a.apps.Get(r.Context(), id.OrgID, appID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *API) handleUpdateApp(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	appID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req appRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	app, err := a.apps.Update(r.Context(), id.OrgID, appID, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventAppUpdated, map[string]any{
		"app_id": app.ID,
	})
	writeJSON(w, http.StatusOK, app)
}

func (a *API) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	appID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := a.apps.Delete(r.Context(), id.OrgID, appID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventAppDeleted, map[string]any{
		"app_id": appID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadImage streams the multipart part named "file" into the image store.
func (a *API) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	appID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	mr, err := r.MultipartReader()
	if err != nil {
		writeServiceError(w, r, apperr.Invalid("multipart/form-data body is required"))
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeServiceError(w, r, apperr.Invalid("form field \"file\" is required"))
			return
		}
		if err != nil {
			writeServiceError(w, r, bodyError("multipart", err))
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		app, err := a.apps.AttachImage(r.Context(), id.OrgID, appID, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), audit.EventAppImageAttached, map[string]any{
			"app_id": app.ID,
			"image":  app.ImageURL,
		})
		writeJSON(w, http.StatusOK, app)
		return
	}
}

func (a *API) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	appID, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	path, err := a.apps.ImagePath(r.Context(), id.OrgID, appID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeServiceError(w, r, apps.ErrImageNotFound)
			return
		}
		writeServiceError(w, r, apperr.Internal("stat image", err))
		return
	}
	http.ServeFile(w, r, path)
}
