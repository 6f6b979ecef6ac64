package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

const userColumns = `id, COALESCE(nombre, '') AS nombre, COALESCE(rut, '') AS rut, email, COALESCE(password, '') AS password, COALESCE(role::text, '') AS role, roles, last_login, created_at`

// UserRepository provides database access for library users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address, ignoring case.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	const query = `UPDATE usuarios SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// ListPlaintextPasswords returns users whose stored password is not a bcrypt hash.
func (r *UserRepository) ListPlaintextPasswords(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE password IS NOT NULL AND password <> '' AND password NOT LIKE '$2%' ORDER BY id`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list plaintext passwords: %w", err)
	}
	return users, nil
}

// UpdatePassword replaces the stored credential.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, password string) error {
	const query = `UPDATE usuarios SET password = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, password); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
