// internal/database/user.go
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/models"
)

// ErrInvalidCredentials is returned by AuthenticateUser for an unknown email or
// a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CreateUser hashes the user's password and inserts the row.
func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	if user.Password != "" {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}
	if user.Level == 0 {
		user.Level = 1
	}

	q := `INSERT INTO users (id, email, password, username, is_ephemeral, experience, level)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)
	      RETURNING created_at`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			user.ID, nullString(strings.ToLower(user.Email)), user.Password, user.Username,
			user.IsEphemeral, user.Experience, user.Level,
		).Scan(&user.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, COALESCE(email, ''), password, username, is_ephemeral, experience, level, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.IsEphemeral, &u.Experience, &u.Level, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(DB.QueryRow(ctx, q, strings.ToLower(email)))
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(DB.QueryRow(ctx, q, id))
}

// AuthenticateUser checks the credentials and returns the user with a signed token.
func AuthenticateUser(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.Password)
	if err != nil || !match {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.CreateJWT(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return user, token, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}
