// Package audit writes security-relevant events as JSON lines next to the
// request log.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/auth"
	"github.com/Algorisys-Technologies/app-portal/internal/obs"
)

// Event names emitted by the API.
const (
	EventLoginSucceeded   = "auth.login.succeeded"
	EventLoginFailed      = "auth.login.failed"
	EventLogout           = "auth.logout"
	EventTokenRefreshed   = "auth.token.refreshed"
	EventRefreshRejected  = "auth.token.rejected"
	EventResetRequested   = "auth.reset.requested"
	EventResetCompleted   = "auth.reset.completed"
	EventOrgRegistered    = "org.registered"
	EventAppCreated       = "app.created"
	EventAppUpdated       = "app.updated"
	EventAppDeleted       = "app.deleted"
	EventAppImageAttached = "app.image.attached"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and caller context.
// Identity fields come from the context; handlers that act before a bearer
// token exists (login, refresh) pass them in fields instead.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		entry["user_id"] = id.UserID
		entry["org_id"] = id.OrgID
	}
	copyFields := make(map[string]any, len(fields))
	maps.Copy(copyFields, fields)
	entry["fields"] = copyFields

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
