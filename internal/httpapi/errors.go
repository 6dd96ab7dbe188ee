package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
	"github.com/Algorisys-Technologies/app-portal/internal/obs"
)

// decodeJSON reads exactly one JSON object. The body size is bounded by the
// MaxBodyBytes middleware on the route.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is required")
		}
		return bodyError("JSON", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return apperr.Invalid("unexpected data after JSON body")
		}
		return bodyError("JSON", err)
	}
	return nil
}

// bodyError turns a decode failure into a client error without echoing Go
// type names back.
func bodyError(kind string, err error) error {
	var (
		tooLarge  *http.MaxBytesError
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &tooLarge):
		return apperr.ErrTooLarge
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.Invalid("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &typeErr), errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Invalid("malformed %s body", kind)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return apperr.Invalid("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
	}
	return apperr.Invalid("malformed %s body", kind)
}

// writeServiceError maps a service error to its status code. Causes of
// internal errors are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, apperr.ErrTooLarge.Error())
		return
	}
	code := apperr.HTTPStatus(err)
	switch code {
	case http.StatusInternalServerError:
		obs.Error("request_failed", err, map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		})
	case http.StatusUnauthorized:
		unauthorized(w, r, apperr.PublicMessage(err))
		return
	}
	writeError(w, r, code, apperr.PublicMessage(err))
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("application id must be a positive integer")
	}
	return id, nil
}
