package hero

import (
	"context"
	"errors"
	"time"
)

// Hero is a stored catalogue entry. HeroName is the natural key and is unique
// across the collection; the store enforces this with a unique index in
// addition to the validation-layer pre-check.
type Hero struct {
	ID          string    `json:"id"`
	HeroName    string    `json:"heroName"`
	RealName    string    `json:"realName"`
	Studio      string    `json:"studio"`
	Gender      string    `json:"gender"`
	Nationality string    `json:"nationality,omitempty"`
	Powers      string    `json:"powers,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var (
	ErrNotFound  = errors.New("hero: not found")
	ErrNameTaken = errors.New("hero: hero name already exists")
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

// sortColumns maps exposed field names to store columns. Unknown OrderBy
// values fall back to the primary key.
var sortColumns = map[string]string{
	"id":          "id",
	"heroName":    "hero_name",
	"realName":    "real_name",
	"studio":      "studio",
	"gender":      "gender",
	"nationality": "nationality",
	"powers":      "powers",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
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

// Store describes persistence operations for heroes.
type Store interface {
	List(ctx context.Context, page Page) ([]Hero, error)
	Count(ctx context.Context) (int, error)
	Find(ctx context.Context, id string) (*Hero, error)
	FindByName(ctx context.Context, heroName string) (*Hero, error)
	Create(ctx context.Context, h *Hero) error
	Update(ctx context.Context, h *Hero) error
	Delete(ctx context.Context, id string) error
}
