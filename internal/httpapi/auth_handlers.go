package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"herodex.org/internal/audit"
	"herodex.org/internal/auth"
	"herodex.org/internal/user"
)

type loginResponse struct {
	OK    bool   `json:"ok"`
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// handleAuth exchanges email/password credentials for a signed token.
func (a *API) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	f, err := parseForm(r)
	if err != nil {
		writeMsgError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules := []rule{
		bodyNotEmpty("Body cannot be empty!"),
		field("email", required("Email is required!"), emailShaped("Email is not valid!")),
		field("password", required("Password is required!"), minLen(8, "Password must be at least 8 characters long!")),
	}
	fieldErrs, err := runRules(r.Context(), f, rules)
	if err != nil {
		internalError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, fieldErrs)
		return
	}

	email, _ := f.str("email")
	password, _ := f.str("password")

	u, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeMsgError(w, http.StatusBadRequest, fmt.Sprintf("User with email: %q does not exist!", email))
			return
		}
		internalError(w, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		writeMsgError(w, http.StatusBadRequest, "Password invalid!")
		return
	}

	token, _, err := a.codec.Issue(u.ID, u.FullName())
	if err != nil {
		internalError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{"uid": u.ID})
	writeJSON(w, http.StatusOK, loginResponse{OK: true, UID: u.ID, Name: u.FullName(), Token: token})
}

// handleAuthRenew issues a fresh token for the already-authenticated caller.
func (a *API) handleAuthRenew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMsgError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	token, _, err := a.codec.Issue(id.UID, id.Name)
	if err != nil {
		internalError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.renewed", map[string]any{"uid": id.UID})
	writeJSON(w, http.StatusOK, loginResponse{OK: true, UID: id.UID, Name: id.Name, Token: token})
}
