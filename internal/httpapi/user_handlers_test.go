package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"herodex.org/internal/auth"
	"herodex.org/internal/ids"
	"herodex.org/internal/user"
)

func TestCreateUser(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPost, "/api/v1/users", map[string]any{
		"firstName": "Grace",
		"lastName":  "Okafor",
		"email":     "grace@example.com",
		"password":  "correct-horse",
		"role":      "regular",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	item := body["item"].(map[string]any)
	if !ids.Valid(item["id"].(string)) {
		t.Fatalf("id = %v", item["id"])
	}
	if item["email"] != "grace@example.com" || item["role"] != "regular" {
		t.Fatalf("item = %v", item)
	}
	if _, leaked := item["passwordHash"]; leaked {
		t.Fatal("password hash leaked in response")
	}
	if _, leaked := item["password"]; leaked {
		t.Fatal("password leaked in response")
	}

	// the stored hash verifies against the submitted password
	u, err := e.users.FindByEmail(context.Background(), "grace@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if !auth.CheckPassword(u.PasswordHash, "correct-horse") {
		t.Fatal("stored hash does not match submitted password")
	}
}

func TestCreateUserDefaultsRole(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPost, "/api/v1/users", map[string]any{
		"firstName": "Grace",
		"lastName":  "Okafor",
		"email":     "grace@example.com",
		"password":  "correct-horse",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if role := body["item"].(map[string]any)["role"]; role != user.RoleRegular {
		t.Fatalf("role = %v", role)
	}
}

func TestCreateUserValidation(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPost, "/api/v1/users", map[string]any{
		"firstName": "Grace",
		"lastName":  "Okafor",
		"email":     "not-an-email",
		"password":  "short",
		"role":      "owner",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := errMsgFor(t, body, "email"); got != "Email is not valid!" {
		t.Fatalf("email msg = %q", got)
	}
	if got := errMsgFor(t, body, "password"); got != "Password must be at least 8 characters long!" {
		t.Fatalf("password msg = %q", got)
	}
	if got := errMsgFor(t, body, "role"); got != "Role must be either admin or regular!" {
		t.Fatalf("role msg = %q", got)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPost, "/api/v1/users", map[string]any{
		"firstName": "Another",
		"lastName":  "Ada",
		"email":     e.admin.Email,
		"password":  "some-password",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := fmt.Sprintf("User with email %q already exists!", e.admin.Email)
	if got := errMsgFor(t, body, "email"); got != want {
		t.Fatalf("msg = %q, want %q", got, want)
	}
}

func TestListUsers(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(http.MethodGet, "/api/v1/users", e.token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["total"] != float64(1) {
		t.Fatalf("total = %v", body["total"])
	}
	items := itemsOf(t, body)
	if len(items) != 1 || items[0]["email"] != e.admin.Email {
		t.Fatalf("items = %v", items)
	}
}

func TestGetUserNotFound(t *testing.T) {
	e := newTestEnv(t)

	missing := ids.New()
	resp, body := e.do(http.MethodGet, "/api/v1/users/"+missing, e.token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := fmt.Sprintf("User with %q does not exist!", missing)
	if body["msg"] != want {
		t.Fatalf("msg = %q", body["msg"])
	}
}

func TestUpdateUser(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPatch, "/api/v1/users/"+e.admin.ID, map[string]any{
		"lastName": "Lovelace",
		"password": "new-password-9",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["item"].(map[string]any)["lastName"] != "Lovelace" {
		t.Fatalf("item = %v", body["item"])
	}

	u, err := e.users.Find(context.Background(), e.admin.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !auth.CheckPassword(u.PasswordHash, "new-password-9") {
		t.Fatal("password change did not take")
	}
	if auth.CheckPassword(u.PasswordHash, testPassword) {
		t.Fatal("old password still verifies")
	}
}

func TestUpdateUserKeepsOwnEmail(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(http.MethodPatch, "/api/v1/users/"+e.admin.ID, map[string]any{
		"email": e.admin.Email,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
}

func TestDeleteUser(t *testing.T) {
	e := newTestEnv(t)

	_, created := e.doJSON(http.MethodPost, "/api/v1/users", map[string]any{
		"firstName": "Grace",
		"lastName":  "Okafor",
		"email":     "grace@example.com",
		"password":  "correct-horse",
	})
	id := created["item"].(map[string]any)["id"].(string)

	resp, body := e.do(http.MethodDelete, "/api/v1/users/"+id, e.token, nil, "")
	if resp.StatusCode != http.StatusOK || body["msg"] != "User has been deleted successfully" {
		t.Fatalf("got %d %v", resp.StatusCode, body)
	}

	resp, _ = e.do(http.MethodGet, "/api/v1/users/"+id, e.token, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted user still readable: %d", resp.StatusCode)
	}
}
