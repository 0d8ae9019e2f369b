package user

import (
	"context"
	"errors"
	"time"
)

// Roles form a closed enumeration.
const (
	RoleAdmin   = "admin"
	RoleRegular = "regular"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleRegular
}

// User is a principal able to authenticate against the API. Email is the
// natural key. PasswordHash is the bcrypt verifier and never leaves the
// process in a response body.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName is the display name embedded into issued tokens.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

var (
	ErrNotFound   = errors.New("user: not found")
	ErrEmailTaken = errors.New("user: email already exists")
)

// DefaultLimit bounds a listing page when the client does not ask for one.
const DefaultLimit = 10

// Page describes pagination and ordering of a listing. Limit 0 means
// unbounded; the HTTP layer supplies DefaultLimit when the client sends no
// limit at all.
type Page struct {
	Limit   int
	Skip    int
	OrderBy string
	Desc    bool
}

var sortColumns = map[string]string{
	"id":        "id",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func (p Page) normalized() Page {
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	if _, ok := sortColumns[p.OrderBy]; !ok {
		p.OrderBy = "id"
	}
	return p
}

// Store describes persistence operations for users.
type Store interface {
	List(ctx context.Context, page Page) ([]User, error)
	Count(ctx context.Context) (int, error)
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}
