package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apps"
	"github.com/Algorisys-Technologies/app-portal/internal/auth"
	"github.com/Algorisys-Technologies/app-portal/internal/license"
	"github.com/Algorisys-Technologies/app-portal/internal/obs"
)

const serviceName = "app-portal"

// ReadyCheck is a simple readiness check (for example a database ping).
type ReadyCheck struct {
	DB *sql.DB
}

func (rp ReadyCheck) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// AuthService is the session lifecycle used by the auth endpoints.
type AuthService interface {
	Register(ctx context.Context, reg auth.Registration) (auth.Organization, error)
	Login(ctx context.Context, email, password string, orgID int64) (auth.TokenPair, error)
	Logout(ctx context.Context, accessToken string) (auth.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, auth.Identity, error)
	RequestPasswordReset(ctx context.Context, email string, orgID int64) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string, orgID int64) error
	Authenticate(ctx context.Context, accessToken string) (auth.Identity, error)
}

// LicenseService answers license checks.
type LicenseService interface {
	CheckLicense(ctx context.Context, orgID, appID int64) (license.Result, error)
}

// AppService manages an organization's applications.
type AppService interface {
	List(ctx context.Context, orgID int64) ([]apps.Application, error)
	Get(ctx context.Context, orgID, id int64) (apps.Application, error)
	Create(ctx context.Context, orgID int64, in apps.Input) (apps.Application, error)
	Update(ctx context.Context, orgID, id int64, in apps.Input) (apps.Application, error)
	Delete(ctx context.Context, orgID, id int64) error
	AttachImage(ctx context.Context, orgID, id int64, filename string, r io.Reader) (apps.Application, error)
	ImagePath(ctx context.Context, orgID, id int64) (string, error)
}

// Options carries the HTTP tunables.
type Options struct {
	Version           string
	Ready             readinessChecker
	MaxBodyBytes      int64
	UploadMaxBytes    int64
	RateBurst         int
	RatePerSec        int
	CORSOrigins       []string
	TrustProxyHeaders bool
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyCheck readinessChecker
	version    string

	auth     AuthService
	licenses LicenseService
	apps     AppService

	maxBody     int64
	uploadMax   int64
	corsOrigins []string
	limiter     *RateLimiter
}

func New(opts Options, authSvc AuthService, licenses LicenseService, applications AppService) *API {
	if opts.Ready == nil {
		opts.Ready = ReadyCheck{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = 5 << 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	a := &API{
		mux:         http.NewServeMux(),
		readyCheck:  opts.Ready,
		version:     opts.Version,
		auth:        authSvc,
		licenses:    licenses,
		apps:        applications,
		maxBody:     opts.MaxBodyBytes,
		uploadMax:   opts.UploadMaxBytes,
		corsOrigins: opts.CORSOrigins,
		limiter:     NewRateLimiter(opts.RateBurst, opts.RatePerSec, opts.TrustProxyHeaders),
	}
	a.routes()
	return a
}

func (a *API) routes() {
	// health/ready/metrics
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	// session lifecycle; unauthenticated endpoints are rate limited per client
	a.mux.Handle("POST /api/register", a.public(a.handleRegister))
	a.mux.Handle("POST /api/login", a.public(a.handleLogin))
	a.mux.Handle("POST /api/token/refresh", a.public(a.handleRefresh))
	a.mux.Handle("POST /api/resetToken", a.public(a.handleResetToken))
	a.mux.Handle("POST /api/resetPassword", a.public(a.handleResetPassword))
	a.mux.Handle("POST /api/logout", a.withAuth(a.handleLogout))

	a.mux.Handle("GET /api/license/validate", a.withAuth(a.handleLicenseValidate))

	// application management (admins only)
	a.mux.Handle("GET /api/apps", a.withAdmin(a.handleListApps))
	a.mux.Handle("POST /api/apps", MaxBodyBytes(a.withAdmin(a.handleCreateApp), a.maxBody))
	a.mux.Handle("GET /api/apps/{id}", a.withAdmin(a.handleGetApp))
	a.mux.Handle("PUT /api/apps/{id}", MaxBodyBytes(a.withAdmin(a.handleUpdateApp), a.maxBody))
	a.mux.Handle("DELETE /api/apps/{id}", a.withAdmin(a.handleDeleteApp))
	a.mux.Handle("POST /api/apps/{id}/image", MaxBodyBytes(a.withAdmin(a.handleUploadImage), a.uploadMax+multipartOverhead))
	// any member of the organization may fetch application images
	a.mux.Handle("GET /api/apps/{id}/image", a.withAuth(a.handleGetImage))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
}

// public wraps an unauthenticated JSON endpoint.
func (a *API) public(h http.HandlerFunc) http.Handler {
	return a.limiter.Middleware(MaxBodyBytes(h, a.maxBody))
}

// Handler returns the http.Handler for the server with the middleware chain applied.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// Close stops background work owned by the API.
func (a *API) Close() {
	a.limiter.Stop()
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyCheck.Check(r.Context()); err != nil {
		obs.SetReady(false)
		obs.Error("readiness_failed", err, map[string]any{"request_id": RequestIDFromContext(r.Context())})
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
