package handle

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ride-dispatch/internal/dispatch-service/core/myerrors"
)

// jsonResponse writes the given data as a JSON-encoded HTTP response.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// JsonError writes an error response as JSON with the specified HTTP status code.
func JsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

// JsonServiceError maps the service error taxonomy onto HTTP status codes.
func JsonServiceError(w http.ResponseWriter, err error) {
	JsonError(w, StatusForKind(myerrors.KindOf(err)), err)
}

func StatusForKind(k myerrors.Kind) int {
	switch k {
	case myerrors.KindValidation:
		return http.StatusBadRequest
	case myerrors.KindNotFound:
		return http.StatusNotFound
	case myerrors.KindInvalidTransition:
		return http.StatusConflict
	case myerrors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses a numeric path segment such as {ride_id}.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, myerrors.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// authedUserID reads the id the auth middleware resolved from the token.
func authedUserID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-UserId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, myerrors.Forbidden("missing authenticated user")
	}
	return id, nil
}

func authedRole(r *http.Request) string {
	return r.Header.Get("X-Role")
}

// queryInt reads an optional integer query parameter, falling back on def.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
