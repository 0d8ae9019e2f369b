package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"herodex.org/internal/hero"
	"herodex.org/internal/ids"
)

func itemsOf(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	raw, ok := body["items"].([]any)
	if !ok {
		t.Fatalf("no items array in %v", body)
	}
	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			t.Fatalf("unexpected item %v", r)
		}
		items = append(items, m)
	}
	return items
}

func TestListHeroes(t *testing.T) {
	e := newTestEnv(t)
	seedHeroes(t, e)

	resp, body := e.do(http.MethodGet, "/api/v1/heroes", e.token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["total"] != float64(6) {
		t.Fatalf("total = %v", body["total"])
	}
	if got := len(itemsOf(t, body)); got != 6 {
		t.Fatalf("items = %d", got)
	}
}

func TestListHeroesSortDesc(t *testing.T) {
	e := newTestEnv(t)
	seedHeroes(t, e)

	_, body := e.do(http.MethodGet, "/api/v1/heroes?orderBy=heroName&sort=desc", e.token, nil, "")
	items := itemsOf(t, body)
	if len(items) == 0 || items[0]["heroName"] != "Wonder Woman" {
		t.Fatalf("first item = %v", items)
	}
}

func TestListHeroesLimitAndSkip(t *testing.T) {
	e := newTestEnv(t)
	seedHeroes(t, e)

	_, body := e.do(http.MethodGet, "/api/v1/heroes?orderBy=heroName&limit=4", e.token, nil, "")
	if got := len(itemsOf(t, body)); got != 4 {
		t.Fatalf("limit 4 returned %d items", got)
	}
	// total reflects the whole collection, not the page
	if body["total"] != float64(6) {
		t.Fatalf("total = %v", body["total"])
	}

	_, body = e.do(http.MethodGet, "/api/v1/heroes?orderBy=heroName&skip=2", e.token, nil, "")
	items := itemsOf(t, body)
	if len(items) == 0 || items[0]["heroName"] != "Ironman" {
		t.Fatalf("skip 2 first item = %v", items[0])
	}
}

type failingCountStore struct {
	*hero.MemoryStore
}

func (failingCountStore) Count(context.Context) (int, error) {
	return 0, errors.New("count unavailable")
}

func TestListHeroesCountFailure(t *testing.T) {
	e := newTestEnv(t)
	e.api.heroes = failingCountStore{e.heroes}
	seedHeroes(t, e)

	// either of the two concurrent queries failing fails the listing
	resp, body := e.do(http.MethodGet, "/api/v1/heroes", e.token, nil, "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["ok"] != false {
		t.Fatalf("ok = %v", body["ok"])
	}
}

func TestListHeroesZeroLimitIsUnbounded(t *testing.T) {
	e := newTestEnv(t)
	seedHeroes(t, e)
	for _, name := range []string{"Flash", "Aquaman", "Green Lantern", "Hawkeye", "Thor", "Hulk"} {
		h := hero.Hero{HeroName: name, RealName: name, Studio: "DC", Gender: "male"}
		if err := e.heroes.Create(context.Background(), &h); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	// an explicit zero limit returns the whole collection, past the default
	// page size
	_, body := e.do(http.MethodGet, "/api/v1/heroes?limit=0", e.token, nil, "")
	if got := len(itemsOf(t, body)); got != 12 {
		t.Fatalf("limit=0 returned %d items, want 12", got)
	}

	// an absent limit still pages at the default
	_, body = e.do(http.MethodGet, "/api/v1/heroes", e.token, nil, "")
	if got := len(itemsOf(t, body)); got != 10 {
		t.Fatalf("default limit returned %d items, want 10", got)
	}
}

func TestListHeroesBadParams(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(http.MethodGet, "/api/v1/heroes?limit=abc", e.token, nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("limit=abc status = %d", resp.StatusCode)
	}
	resp, _ = e.do(http.MethodGet, "/api/v1/heroes?skip=-1", e.token, nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("skip=-1 status = %d", resp.StatusCode)
	}
}

func TestCreateHero(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPost, "/api/v1/heroes", map[string]any{
		"heroName": "Flash",
		"realName": "Barry Allen",
		"studio":   "DC",
		"gender":   "male",
		"powers":   "speed",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	item, ok := body["item"].(map[string]any)
	if !ok {
		t.Fatalf("no item in %v", body)
	}
	id, _ := item["id"].(string)
	if !ids.Valid(id) {
		t.Fatalf("item id %q is not a valid identifier", id)
	}
	if item["heroName"] != "Flash" || item["powers"] != "speed" {
		t.Fatalf("item = %v", item)
	}
}

func TestCreateHeroValidation(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPost, "/api/v1/heroes", map[string]any{"heroName": "Flash"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := errMsgFor(t, body, "realName"); got != "Hero real name is required!" {
		t.Fatalf("realName msg = %q", got)
	}
	if got := errMsgFor(t, body, "studio"); got != "Studio is required!" {
		t.Fatalf("studio msg = %q", got)
	}
	if got := errMsgFor(t, body, "gender"); got != "Gender is required!" {
		t.Fatalf("gender msg = %q", got)
	}
}

func TestCreateHeroDuplicateName(t *testing.T) {
	e := newTestEnv(t)
	seedHeroes(t, e)

	resp, body := e.doJSON(http.MethodPost, "/api/v1/heroes", map[string]any{
		"heroName": "Batman",
		"realName": "Somebody Else",
		"studio":   "DC",
		"gender":   "male",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := fmt.Sprintf("Hero %q already exists!", "Batman")
	if got := errMsgFor(t, body, "heroName"); got != want {
		t.Fatalf("msg = %q, want %q", got, want)
	}

	_, listBody := e.do(http.MethodGet, "/api/v1/heroes", e.token, nil, "")
	if listBody["total"] != float64(6) {
		t.Fatalf("duplicate create changed total: %v", listBody["total"])
	}
}

func TestCreateHeroWithImage(t *testing.T) {
	e := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"heroName": "Storm",
		"realName": "Ororo Munroe",
		"studio":   "Marvel",
		"gender":   "female",
	}, "storm portrait.PNG", []byte("fake png bytes"))

	resp, decoded := e.do(http.MethodPost, "/api/v1/heroes", e.token, body, ct)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, decoded)
	}
	item := decoded["item"].(map[string]any)
	key, _ := item["image"].(string)
	if key == "" {
		t.Fatal("created hero has no image key")
	}
	if !e.images.Has(key) {
		t.Fatalf("object %q not uploaded", key)
	}
}

func TestCreateHeroBadImageExtension(t *testing.T) {
	e := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"heroName": "Storm",
		"realName": "Ororo Munroe",
		"studio":   "Marvel",
		"gender":   "female",
	}, "payload.exe", []byte("nope"))

	resp, decoded := e.do(http.MethodPost, "/api/v1/heroes", e.token, body, ct)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body %v", resp.StatusCode, decoded)
	}
	if e.images.Len() != 0 {
		t.Fatal("rejected upload left an object behind")
	}
}

func TestGetHero(t *testing.T) {
	e := newTestEnv(t)
	seeded := seedHeroes(t, e)

	resp, body := e.do(http.MethodGet, "/api/v1/heroes/"+seeded[0].ID, e.token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	item := body["item"].(map[string]any)
	if item["heroName"] != "Spiderman" {
		t.Fatalf("item = %v", item)
	}
}

func TestGetHeroBadID(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(http.MethodGet, "/api/v1/heroes/not-an-id", e.token, nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := errMsgFor(t, body, "id"); got != "Provided id is not a valid identifier" {
		t.Fatalf("msg = %q", got)
	}
}

func TestGetHeroNotFound(t *testing.T) {
	e := newTestEnv(t)

	missing := ids.New()
	resp, body := e.do(http.MethodGet, "/api/v1/heroes/"+missing, e.token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := fmt.Sprintf("Hero with %q does not exist!", missing)
	if body["msg"] != want {
		t.Fatalf("msg = %q, want %q", body["msg"], want)
	}
}

func TestUpdateHero(t *testing.T) {
	e := newTestEnv(t)
	seeded := seedHeroes(t, e)

	resp, body := e.doJSON(http.MethodPatch, "/api/v1/heroes/"+seeded[1].ID, map[string]any{
		"studio": "DC Comics",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	item := body["item"].(map[string]any)
	if item["studio"] != "DC Comics" {
		t.Fatalf("studio = %v", item["studio"])
	}
	// untouched fields survive a partial update
	if item["heroName"] != "Batman" || item["realName"] != "Bruce Wayne" {
		t.Fatalf("item = %v", item)
	}
}

func TestUpdateHeroEmptyBody(t *testing.T) {
	e := newTestEnv(t)
	seeded := seedHeroes(t, e)

	resp, body := e.doJSON(http.MethodPatch, "/api/v1/heroes/"+seeded[0].ID, map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := firstErrMsg(t, body); got != "Body cannot be empty!" {
		t.Fatalf("msg = %q", got)
	}
}

func TestUpdateHeroBlankField(t *testing.T) {
	e := newTestEnv(t)
	seeded := seedHeroes(t, e)

	resp, body := e.doJSON(http.MethodPatch, "/api/v1/heroes/"+seeded[0].ID, map[string]any{
		"gender": "  ",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := errMsgFor(t, body, "gender"); got != "Gender cannot be empty!" {
		t.Fatalf("msg = %q", got)
	}
}

func TestUpdateHeroNameConflict(t *testing.T) {
	e := newTestEnv(t)
	seeded := seedHeroes(t, e)

	// renaming onto your own current name is a no-op, not a conflict
	resp, _ := e.doJSON(http.MethodPatch, "/api/v1/heroes/"+seeded[0].ID, map[string]any{
		"heroName": "Spiderman",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename to own name: status = %d", resp.StatusCode)
	}

	resp, body := e.doJSON(http.MethodPatch, "/api/v1/heroes/"+seeded[0].ID, map[string]any{
		"heroName": "Batman",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := fmt.Sprintf("Hero %q already exists!", "Batman")
	if got := errMsgFor(t, body, "heroName"); got != want {
		t.Fatalf("msg = %q", got)
	}
}

func TestUpdateHeroReplacesImage(t *testing.T) {
	e := newTestEnv(t)

	createBody, ct := multipartBody(t, map[string]string{
		"heroName": "Storm",
		"realName": "Ororo Munroe",
		"studio":   "Marvel",
		"gender":   "female",
	}, "first.png", []byte("one"))
	_, created := e.do(http.MethodPost, "/api/v1/heroes", e.token, createBody, ct)
	id := created["item"].(map[string]any)["id"].(string)
	oldKey := created["item"].(map[string]any)["image"].(string)

	patchBody, ct := multipartBody(t, nil, "second.png", []byte("two"))
	resp, updated := e.do(http.MethodPatch, "/api/v1/heroes/"+id, e.token, patchBody, ct)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, updated)
	}
	newKey := updated["item"].(map[string]any)["image"].(string)
	if newKey == oldKey {
		t.Fatal("image key did not change")
	}
	if !e.images.Has(newKey) {
		t.Fatalf("new object %q missing", newKey)
	}
	if e.images.Has(oldKey) {
		t.Fatalf("old object %q not removed", oldKey)
	}
}

func TestDeleteHero(t *testing.T) {
	e := newTestEnv(t)
	seeded := seedHeroes(t, e)

	resp, body := e.do(http.MethodDelete, "/api/v1/heroes/"+seeded[2].ID, e.token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["msg"] != "Hero has been deleted successfully" {
		t.Fatalf("msg = %q", body["msg"])
	}

	resp, _ = e.do(http.MethodGet, "/api/v1/heroes/"+seeded[2].ID, e.token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted hero still readable: %d", resp.StatusCode)
	}
}

func TestDeleteHeroRemovesImage(t *testing.T) {
	e := newTestEnv(t)

	body, ct := multipartBody(t, map[string]string{
		"heroName": "Storm",
		"realName": "Ororo Munroe",
		"studio":   "Marvel",
		"gender":   "female",
	}, "portrait.png", []byte("img"))
	_, created := e.do(http.MethodPost, "/api/v1/heroes", e.token, body, ct)
	item := created["item"].(map[string]any)
	id := item["id"].(string)
	key := item["image"].(string)

	resp, _ := e.do(http.MethodDelete, "/api/v1/heroes/"+id, e.token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if e.images.Has(key) {
		t.Fatalf("object %q not removed with its hero", key)
	}
}
