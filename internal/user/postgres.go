package user

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

const userColumns = `id, first_name, last_name, email, role, password_hash, image, created_at, updated_at`

func (s *PGStore) List(ctx context.Context, page Page) ([]User, error) {
	page = page.normalized()
	direction := "asc"
	if page.Desc {
		direction = "desc"
	}
	var query string
	var args []any
	if page.Limit > 0 {
		query = fmt.Sprintf(`select %s from users order by %s %s limit $1 offset $2`,
			userColumns, sortColumns[page.OrderBy], direction)
		args = []any{page.Limit, page.Skip}
	} else {
		query = fmt.Sprintf(`select %s from users order by %s %s offset $1`,
			userColumns, sortColumns[page.OrderBy], direction)
		args = []any{page.Skip}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0, page.Limit)
	for rows.Next() {
		var u User
		if err := scanUser(rows.Scan, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total)
	return total, err
}

func (s *PGStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from users where id = $1`, userColumns), id)
	return oneUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from users where email = $1`, userColumns), email)
	return oneUser(row)
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Role == "" {
		u.Role = RoleRegular
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, first_name, last_name, email, role, password_hash, image, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.Role, u.PasswordHash, u.Image, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *PGStore) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		update users
		set first_name=$2, last_name=$3, email=$4, role=$5, password_hash=$6, image=$7, updated_at=$8
		where id=$1`,
		u.ID, u.FirstName, u.LastName, u.Email, u.Role, u.PasswordHash, u.Image, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
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
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
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

func oneUser(row *sql.Row) (*User, error) {
	var u User
	if err := scanUser(row.Scan, &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanUser(scan func(dest ...any) error, u *User) error {
	return scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role,
		&u.PasswordHash, &u.Image, &u.CreatedAt, &u.UpdatedAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
