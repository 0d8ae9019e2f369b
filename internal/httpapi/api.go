package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"herodex.org/internal/auth"
	"herodex.org/internal/hero"
	"herodex.org/internal/images"
	"herodex.org/internal/obs"
	"herodex.org/internal/user"
)

// ReadyProbe checks readiness (for example, a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	codec      *auth.Codec
	heroes     hero.Store
	users      user.Store
	images     images.Storage
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
	bcryptCost int
}

func New(codec *auth.Codec, heroes hero.Store, users user.Store, imgs images.Storage, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		codec:      codec,
		heroes:     heroes,
		users:      users,
		images:     imgs,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/api/v1/auth", a.handleAuth)
	a.mux.HandleFunc("/api/v1/auth/renew", a.handleAuthRenew)

	// heroes
	a.mux.HandleFunc("/api/v1/heroes", a.handleHeroesCollection)
	a.mux.HandleFunc("/api/v1/heroes/", a.handleHeroResource)

	// users
	a.mux.HandleFunc("/api/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/api/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/", a.Root)

	return a
}

// SetBcryptCost overrides the cost used when hashing new user passwords.
// Zero keeps the library default.
func (a *API) SetBcryptCost(cost int) {
	a.bcryptCost = cost
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 10<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeMsgError(w, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"name":    "herodex-api",
		"version": a.version,
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "herodex-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
