package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	repository "go-duet/internal/repository/port"
)

// PgUserDirectory reads user records from the dm.app_user table.
type PgUserDirectory struct {
	pool *pgxpool.Pool
}

func NewPgUserDirectory(pool *pgxpool.Pool) *PgUserDirectory {
	return &PgUserDirectory{pool: pool}
}

var _ repository.UserDirectory = (*PgUserDirectory)(nil)

func (d *PgUserDirectory) FindByID(ctx context.Context, id string) (*repository.User, error) {
	if d == nil || d.pool == nil {
		return nil, errors.New("PgUserDirectory: nil pool")
	}
	var u repository.User
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, display_name, email, avatar_url
		FROM dm.app_user
		WHERE id = $1::uuid
	`, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
