package repository

import (
	"context"
	"errors"
)

// User is the directory record of one account. Identity is owned by an
// external service; the core only reads it.
type User struct {
	ID          string
	DisplayName *string
	Email       *string
	AvatarURL   *string
}

// ErrUserNotFound is returned when no directory record exists for the id.
var ErrUserNotFound = errors.New("user directory: user not found")

// UserDirectory is the read-only lookup contract for user records.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*User, error)
}
