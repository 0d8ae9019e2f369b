package hero

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"herodex.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const heroColumns = `id, hero_name, real_name, studio, gender, nationality, powers, image, created_at, updated_at`

func (s *PGStore) List(ctx context.Context, page Page) ([]Hero, error) {
	page = page.normalized()
	direction := "asc"
	if page.Desc {
		direction = "desc"
	}
	// Column name comes from the sortColumns whitelist, never from the client.
	var query string
	var args []any
	if page.Limit > 0 {
		query = fmt.Sprintf(`select %s from heroes order by %s %s limit $1 offset $2`,
			heroColumns, sortColumns[page.OrderBy], direction)
		args = []any{page.Limit, page.Skip}
	} else {
		query = fmt.Sprintf(`select %s from heroes order by %s %s offset $1`,
			heroColumns, sortColumns[page.OrderBy], direction)
		args = []any{page.Skip}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	heroes := make([]Hero, 0, page.Limit)
	for rows.Next() {
		var h Hero
		if err := scanHero(rows.Scan, &h); err != nil {
			return nil, err
		}
		heroes = append(heroes, h)
	}
	return heroes, rows.Err()
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `select count(*) from heroes`).Scan(&total)
	return total, err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Hero, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from heroes where id = $1`, heroColumns), id)
	return oneHero(row)
}

func (s *PGStore) FindByName(ctx context.Context, heroName string) (*Hero, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from heroes where hero_name = $1`, heroColumns), heroName)
	return oneHero(row)
}

func (s *PGStore) Create(ctx context.Context, h *Hero) error {
	if h.ID == "" {
		h.ID = ids.New()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into heroes(id, hero_name, real_name, studio, gender, nationality, powers, image, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		h.ID, h.HeroName, h.RealName, h.Studio, h.Gender, h.Nationality, h.Powers, h.Image, h.CreatedAt, h.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

func (s *PGStore) Update(ctx context.Context, h *Hero) error {
	h.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		update heroes
		set hero_name=$2, real_name=$3, studio=$4, gender=$5, nationality=$6, powers=$7, image=$8, updated_at=$9
		where id=$1`,
		h.ID, h.HeroName, h.RealName, h.Studio, h.Gender, h.Nationality, h.Powers, h.Image, h.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from heroes where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func oneHero(row *sql.Row) (*Hero, error) {
	var h Hero
	if err := scanHero(row.Scan, &h); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func scanHero(scan func(dest ...any) error, h *Hero) error {
	return scan(&h.ID, &h.HeroName, &h.RealName, &h.Studio, &h.Gender,
		&h.Nationality, &h.Powers, &h.Image, &h.CreatedAt, &h.UpdatedAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
