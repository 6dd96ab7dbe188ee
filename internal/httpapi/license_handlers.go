package httpapi

import (
	"net/http"

	"github.com/Algorisys-Technologies/app-portal/internal/auth"
	"github.com/Algorisys-Technologies/app-portal/internal/license"
	"github.com/Algorisys-Technologies/app-portal/internal/obs"
)

type licenseResponse struct {
	Valid   bool             `json:"valid"`
	Message string           `json:"message"`
	License *license.License `json:"license,omitempty"`
}

func (a *API) handleLicenseValidate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "missing identity")
		return
	}
	appID, err := license.ParseAppID(r.URL.Query().Get("app_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := a.licenses.CheckLicense(r.Context(), id.OrgID, appID)
	if err != nil {
		obs.LicenseCheck("error")
		writeServiceError(w, r, err)
		return
	}

	resp := licenseResponse{Valid: res.Valid, License: res.License}
	if res.Valid {
		resp.Message = "license is valid"
		obs.LicenseCheck("valid")
	} else {
		resp.Message = "no valid license found"
		obs.LicenseCheck("invalid")
	}
	writeJSON(w, http.StatusOK, resp)
}
