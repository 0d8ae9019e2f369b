package httpapi

import (
	"errors"
	"net/http"
	"time"

	"herodex.org/internal/auth"
	"herodex.org/internal/obs"
)

// tokenHeader carries the session token on protected routes.
const tokenHeader = "x-token"

var publicPaths = map[string]bool{
	"/":            true,
	"/healthz":     true,
	"/readyz":      true,
	"/metrics":     true,
	"/api/v1/auth": true,
}

// withAuth is the authentication gate. It runs on every non-public route:
// no token at all and an unverifiable token are both terminal 401s, and the
// specific verification failure is only ever logged, never returned.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get(tokenHeader)
		if token == "" {
			writeMsgError(w, http.StatusUnauthorized, "There's not token by the request")
			return
		}

		identity, err := a.codec.Verify(token)
		if err != nil {
			reason := "invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				reason = "expired"
			}
			obs.LogRequest(map[string]any{
				"ts":         time.Now().UTC().Format(time.RFC3339Nano),
				"level":      "warn",
				"msg":        "token rejected",
				"reason":     reason,
				"path":       r.URL.Path,
				"request_id": RequestIDFromContext(r.Context()),
			})
			writeMsgError(w, http.StatusUnauthorized, "Token is not valid")
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
