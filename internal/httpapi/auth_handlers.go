package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
	"github.com/Algorisys-Technologies/app-portal/internal/audit"
	"github.com/Algorisys-Technologies/app-portal/internal/auth"
	"github.com/Algorisys-Technologies/app-portal/internal/obs"
)

type registerRequest struct {
	OrgName   string `json:"org_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	OrgSize   *int   `json:"org_size"`
	Usage     string `json:"usage"`
}

type registerResponse struct {
	Message string `json:"message"`
	OrgID   int64  `json:"org_id"`
}

// orgID accepts org_id as a JSON number or as a numeric string, since
// browser form clients post the field value as a string.
type orgID int64

var orgIDType = reflect.TypeOf(int64(0))

func (o *orgID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*o = 0
			return nil
		}
		data = []byte(s)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "string " + strconv.Quote(string(data)), Type: orgIDType}
	}
	*o = orgID(v)
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OrgID    orgID  `json:"org_id"`
}

type tokenPairResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetTokenRequest struct {
	Email string `json:"email"`
	OrgID orgID  `json:"org_id"`
}

type resetTokenResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

type resetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
	OrgID       orgID  `json:"org_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newTokenPairResponse(p auth.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessExpiresAt,
		RefreshTokenExpiresAt: p.RefreshExpiresAt,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.OrgSize == nil {
		writeServiceError(w, r, apperr.Invalid("org_size is required"))
		return
	}
	org, err := a.auth.Register(r.Context(), auth.Registration{
		OrgName:   req.OrgName,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		OrgSize:   *req.OrgSize,
		Usage:     req.Usage,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventOrgRegistered, map[string]any{
		"org_id":   org.ID,
		"org_name": org.Name,
	})
	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "organization registered",
		OrgID:   org.ID,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	pair, err := a.auth.Login(r.Context(), req.Email, req.Password, int64(req.OrgID))
	if err != nil {
		if !errors.Is(err, apperr.ErrInternal) && !errors.Is(err, apperr.ErrInvalidArgument) {
			obs.AuthEvent("login", "failure")
			_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{
				"org_id": int64(req.OrgID),
				"reason": apperr.PublicMessage(err),
			})
		}
		writeServiceError(w, r, err)
		return
	}
	obs.AuthEvent("login", "success")
	_ = audit.LogEvent(r.Context(), audit.EventLoginSucceeded, map[string]any{
		"org_id": int64(req.OrgID),
	})
	writeJSON(w, http.StatusOK, newTokenPairResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "missing bearer token")
		return
	}
	if _, err := a.auth.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	obs.AuthEvent("logout", "success")
	_ = audit.LogEvent(r.Context(), audit.EventLogout, nil)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	pair, id, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshRejected) {
			obs.AuthEvent("refresh", "failure")
			_ = audit.LogEvent(r.Context(), audit.EventRefreshRejected, nil)
		}
		writeServiceError(w, r, err)
		return
	}
	obs.AuthEvent("refresh", "success")
	ctx := auth.ContextWithIdentity(r.Context(), id)
	_ = audit.LogEvent(ctx, audit.EventTokenRefreshed, nil)
	writeJSON(w, http.StatusOK, newTokenPairResponse(pair))
}

func (a *API) handleResetToken(w http.ResponseWriter, r *http.Request) {
	var req resetTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := a.auth.RequestPasswordReset(r.Context(), req.Email, int64(req.OrgID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	obs.AuthEvent("reset_request", "success")
	_ = audit.LogEvent(r.Context(), audit.EventResetRequested, map[string]any{
		"org_id": int64(req.OrgID),
	})
	writeJSON(w, http.StatusOK, resetTokenResponse{
		Message:    "reset token generated",
		ResetToken: token,
	})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := a.auth.ResetPassword(r.Context(), req.ResetToken, req.NewPassword, int64(req.OrgID)); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			obs.AuthEvent("reset", "failure")
		}
		writeServiceError(w, r, err)
		return
	}
	obs.AuthEvent("reset", "success")
	_ = audit.LogEvent(r.Context(), audit.EventResetCompleted, map[string]any{
		"org_id": int64(req.OrgID),
	})
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}
