package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"herodex.org/internal/audit"
	"herodex.org/internal/auth"
	"herodex.org/internal/ids"
	"herodex.org/internal/images"
	"herodex.org/internal/user"
)

// emailAvailable rejects an email already used by a record other than
// excludeID.
func (a *API) emailAvailable(excludeID string) check {
	return func(ctx context.Context, f *form, field string) (*fieldError, error) {
		email, ok := f.str(field)
		if !ok || strings.TrimSpace(email) == "" {
			return nil, nil
		}
		existing, err := a.users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if existing.ID == excludeID {
			return nil, nil
		}
		return &fieldError{Msg: fmt.Sprintf("User with email %q already exists!", email)}, nil
	}
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseIntParam(q.Get("limit"), user.DefaultLimit)
	if !ok {
		writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "limit", Msg: "Limit must be a non-negative integer"}})
		return
	}
	skip, ok := parseIntParam(q.Get("skip"), 0)
	if !ok {
		writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "skip", Msg: "Skip must be a non-negative integer"}})
		return
	}

	page := user.Page{
		Limit:   limit,
		Skip:    skip,
		OrderBy: q.Get("orderBy"),
		Desc:    q.Get("sort") == "desc",
	}

	// page and total are independent queries, fetched concurrently
	var (
		items []user.User
		total int
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = a.users.List(ctx, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = a.users.Count(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, err)
		return
	}
	if items == nil {
		items = []user.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"items": items,
		"total": total,
	})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		writeMsgError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules := []rule{
		bodyNotEmpty("Body cannot be empty!"),
		field("firstName", required("First name is required!")),
		field("lastName", required("Last name is required!")),
		field("email", required("Email is required!"), emailShaped("Email is not valid!"), a.emailAvailable("")),
		field("password", required("Password is required!"), minLen(8, "Password must be at least 8 characters long!")),
		field("role", oneOf("Role must be either admin or regular!", user.RoleAdmin, user.RoleRegular)),
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

	password, _ := f.str("password")
	hash, err := auth.HashPassword(password, a.bcryptCost)
	if err != nil {
		internalError(w, err)
		return
	}

	u := &user.User{PasswordHash: hash}
	u.FirstName, _ = f.str("firstName")
	u.LastName, _ = f.str("lastName")
	u.Email, _ = f.str("email")
	u.Role, _ = f.str("role")

	if f.file != nil {
		key, err := images.Key("users", f.file.Name)
		if err != nil {
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "image", Msg: err.Error()}})
			return
		}
		if err := a.images.Upload(r.Context(), key, bytes.NewReader(f.file.Data), f.file.ContentType); err != nil {
			internalError(w, err)
			return
		}
		u.Image = key
	}

	if err := a.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{
				{Field: "email", Msg: fmt.Sprintf("User with email %q already exists!", u.Email)},
			})
			return
		}
		internalError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.created", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "item": u})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	if id == "" || strings.Contains(id, "/") {
		writeMsgError(w, http.StatusNotFound, "resource not found")
		return
	}
	if !ids.Valid(id) {
		writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "id", Msg: "Provided id is not a valid identifier"}})
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPatch:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) findUserOr404(w http.ResponseWriter, r *http.Request, id string) *user.User {
	u, err := a.users.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeMsgError(w, http.StatusNotFound, fmt.Sprintf("User with %q does not exist!", id))
			return nil
		}
		internalError(w, err)
		return nil
	}
	return u
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	u := a.findUserOr404(w, r, id)
	if u == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": u})
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	u := a.findUserOr404(w, r, id)
	if u == nil {
		return
	}

	f, err := parseForm(r)
	if err != nil {
		writeMsgError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules := []rule{
		bodyNotEmpty("Body cannot be empty!"),
		field("firstName", notEmptyIfPresent("First name cannot be empty!")),
		field("lastName", notEmptyIfPresent("Last name cannot be empty!")),
		field("email", notEmptyIfPresent("Email cannot be empty!"), emailShaped("Email is not valid!"), a.emailAvailable(u.ID)),
		field("password", notEmptyIfPresent("Password cannot be empty!"), minLen(8, "Password must be at least 8 characters long!")),
		field("role", oneOf("Role must be either admin or regular!", user.RoleAdmin, user.RoleRegular)),
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

	if v, ok := f.str("firstName"); ok {
		u.FirstName = v
	}
	if v, ok := f.str("lastName"); ok {
		u.LastName = v
	}
	if v, ok := f.str("email"); ok {
		u.Email = v
	}
	if v, ok := f.str("role"); ok {
		u.Role = v
	}
	if v, ok := f.str("password"); ok {
		hash, err := auth.HashPassword(v, a.bcryptCost)
		if err != nil {
			internalError(w, err)
			return
		}
		u.PasswordHash = hash
	}

	oldImage := ""
	if f.file != nil {
		key, err := images.Key("users", f.file.Name)
		if err != nil {
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "image", Msg: err.Error()}})
			return
		}
		if err := a.images.Upload(r.Context(), key, bytes.NewReader(f.file.Data), f.file.ContentType); err != nil {
			internalError(w, err)
			return
		}
		oldImage = u.Image
		u.Image = key
	}

	if err := a.users.Update(r.Context(), u); err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{
				{Field: "email", Msg: fmt.Sprintf("User with email %q already exists!", u.Email)},
			})
		case errors.Is(err, user.ErrNotFound):
			writeMsgError(w, http.StatusNotFound, fmt.Sprintf("User with %q does not exist!", id))
		default:
			internalError(w, err)
		}
		return
	}

	if oldImage != "" && oldImage != u.Image {
		_ = a.images.Delete(r.Context(), oldImage)
	}

	_ = audit.LogEvent(r.Context(), "user.updated", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": u})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	u := a.findUserOr404(w, r, id)
	if u == nil {
		return
	}

	if err := a.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeMsgError(w, http.StatusNotFound, fmt.Sprintf("User with %q does not exist!", id))
			return
		}
		internalError(w, err)
		return
	}
	if u.Image != "" {
		_ = a.images.Delete(r.Context(), u.Image)
	}

	_ = audit.LogEvent(r.Context(), "user.deleted", map[string]any{"user_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "msg": "User has been deleted successfully"})
}
