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
	"herodex.org/internal/hero"
	"herodex.org/internal/ids"
	"herodex.org/internal/images"
)

// heroNameAvailable rejects a heroName already used by a record other than
// excludeID. The store's unique index still backstops the race window.
func (a *API) heroNameAvailable(excludeID string) check {
	return func(ctx context.Context, f *form, field string) (*fieldError, error) {
		name, ok := f.str(field)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, nil
		}
		existing, err := a.heroes.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, hero.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if existing.ID == excludeID {
			return nil, nil
		}
		return &fieldError{Msg: fmt.Sprintf("Hero %q already exists!", name)}, nil
	}
}

func (a *API) handleHeroesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listHeroes(w, r)
	case http.MethodPost:
		a.createHero(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listHeroes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseIntParam(q.Get("limit"), hero.DefaultLimit)
	if !ok {
		writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "limit", Msg: "Limit must be a non-negative integer"}})
		return
	}
	skip, ok := parseIntParam(q.Get("skip"), 0)
	if !ok {
		writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "skip", Msg: "Skip must be a non-negative integer"}})
		return
	}

	page := hero.Page{
		Limit:   limit,
		Skip:    skip,
		OrderBy: q.Get("orderBy"),
		Desc:    q.Get("sort") == "desc",
	}

	// page and total are independent queries, fetched concurrently
	var (
		items []hero.Hero
		total int
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = a.heroes.List(ctx, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = a.heroes.Count(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, err)
		return
	}
	if items == nil {
		items = []hero.Hero{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"items": items,
		"total": total,
	})
}

func (a *API) createHero(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		writeMsgError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules := []rule{
		bodyNotEmpty("Body cannot be empty!"),
		field("heroName", required("Hero name is required!"), a.heroNameAvailable("")),
		field("realName", required("Hero real name is required!")),
		field("studio", required("Studio is required!")),
		field("gender", required("Gender is required!")),
		field("nationality", isString("Nationality must be a string")),
		field("powers", isString("Powers must be a string")),
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

	h := &hero.Hero{}
	h.HeroName, _ = f.str("heroName")
	h.RealName, _ = f.str("realName")
	h.Studio, _ = f.str("studio")
	h.Gender, _ = f.str("gender")
	h.Nationality, _ = f.str("nationality")
	h.Powers, _ = f.str("powers")

	if f.file != nil {
		key, err := images.Key("heroes", f.file.Name)
		if err != nil {
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "image", Msg: err.Error()}})
			return
		}
		if err := a.images.Upload(r.Context(), key, bytes.NewReader(f.file.Data), f.file.ContentType); err != nil {
			internalError(w, err)
			return
		}
		h.Image = key
	}

	if err := a.heroes.Create(r.Context(), h); err != nil {
		if errors.Is(err, hero.ErrNameTaken) {
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{
				{Field: "heroName", Msg: fmt.Sprintf("Hero %q already exists!", h.HeroName)},
			})
			return
		}
		internalError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "hero.created", map[string]any{"hero_id": h.ID})
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "item": h})
}

func (a *API) handleHeroResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/heroes/")
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
		a.getHero(w, r, id)
	case http.MethodPatch:
		a.updateHero(w, r, id)
	case http.MethodDelete:
		a.deleteHero(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) findHeroOr404(w http.ResponseWriter, r *http.Request, id string) *hero.Hero {
	h, err := a.heroes.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, hero.ErrNotFound) {
			writeMsgError(w, http.StatusNotFound, fmt.Sprintf("Hero with %q does not exist!", id))
			return nil
		}
		internalError(w, err)
		return nil
	}
	return h
}

func (a *API) getHero(w http.ResponseWriter, r *http.Request, id string) {
	h := a.findHeroOr404(w, r, id)
	if h == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": h})
}

func (a *API) updateHero(w http.ResponseWriter, r *http.Request, id string) {
	h := a.findHeroOr404(w, r, id)
	if h == nil {
		return
	}

	f, err := parseForm(r)
	if err != nil {
		writeMsgError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules := []rule{
		bodyNotEmpty("Body cannot be empty!"),
		field("heroName", notEmptyIfPresent("Hero name cannot be empty!"), a.heroNameAvailable(h.ID)),
		field("realName", notEmptyIfPresent("Hero real name cannot be empty!")),
		field("studio", notEmptyIfPresent("Studio cannot be empty!")),
		field("gender", notEmptyIfPresent("Gender cannot be empty!")),
		field("nationality", isString("Nationality must be a string")),
		field("powers", isString("Powers must be a string")),
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

	if v, ok := f.str("heroName"); ok {
		h.HeroName = v
	}
	if v, ok := f.str("realName"); ok {
		h.RealName = v
	}
	if v, ok := f.str("studio"); ok {
		h.Studio = v
	}
	if v, ok := f.str("gender"); ok {
		h.Gender = v
	}
	if v, ok := f.str("nationality"); ok {
		h.Nationality = v
	}
	if v, ok := f.str("powers"); ok {
		h.Powers = v
	}

	oldImage := ""
	if f.file != nil {
		key, err := images.Key("heroes", f.file.Name)
		if err != nil {
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{{Field: "image", Msg: err.Error()}})
			return
		}
		if err := a.images.Upload(r.Context(), key, bytes.NewReader(f.file.Data), f.file.ContentType); err != nil {
			internalError(w, err)
			return
		}
		oldImage = h.Image
		h.Image = key
	}

	if err := a.heroes.Update(r.Context(), h); err != nil {
		switch {
		case errors.Is(err, hero.ErrNameTaken):
			writeFieldErrors(w, http.StatusBadRequest, []fieldError{
				{Field: "heroName", Msg: fmt.Sprintf("Hero %q already exists!", h.HeroName)},
			})
		case errors.Is(err, hero.ErrNotFound):
			writeMsgError(w, http.StatusNotFound, fmt.Sprintf("Hero with %q does not exist!", id))
		default:
			internalError(w, err)
		}
		return
	}

	// the record now points at the new image; the old object is orphaned at
	// worst, so its removal is best effort
	if oldImage != "" && oldImage != h.Image {
		_ = a.images.Delete(r.Context(), oldImage)
	}

	_ = audit.LogEvent(r.Context(), "hero.updated", map[string]any{"hero_id": h.ID})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": h})
}

func (a *API) deleteHero(w http.ResponseWriter, r *http.Request, id string) {
	h := a.findHeroOr404(w, r, id)
	if h == nil {
		return
	}

	if err := a.heroes.Delete(r.Context(), id); err != nil {
		if errors.Is(err, hero.ErrNotFound) {
			writeMsgError(w, http.StatusNotFound, fmt.Sprintf("Hero with %q does not exist!", id))
			return
		}
		internalError(w, err)
		return
	}
	if h.Image != "" {
		_ = a.images.Delete(r.Context(), h.Image)
	}

	_ = audit.LogEvent(r.Context(), "hero.deleted", map[string]any{"hero_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "msg": "Hero has been deleted successfully"})
}
