package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"herodex.org/internal/obs"
)

// fieldError is one entry of a validation failure response.
type fieldError struct {
	Field string `json:"field,omitempty"`
	Msg   string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMsgError emits the {ok:false, msg:...} error shape.
func writeMsgError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"ok":  false,
		"msg": msg,
	})
}

// writeFieldErrors emits the {ok:false, errors:[{field,msg}...]} shape used by
// the validation layer.
func writeFieldErrors(w http.ResponseWriter, code int, errs []fieldError) {
	writeJSON(w, code, map[string]any{
		"ok":     false,
		"errors": errs,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeMsgError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func internalError(w http.ResponseWriter, err error) {
	if err != nil {
		obs.LogRequest(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "request failed",
			"error": err.Error(),
		})
	}
	writeMsgError(w, http.StatusInternalServerError, "internal error")
}

// parseIntParam parses a non-negative integer query parameter, returning def
// when the parameter is absent.
func parseIntParam(raw string, def int) (int, bool) {
	if strings.TrimSpace(raw) == "" {
		return def, true
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0, false
	}
	return val, true
}
