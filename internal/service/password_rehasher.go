package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

type plaintextPasswordStore interface {
	ListPlaintextPasswords(ctx context.Context) ([]models.User, error)
	UpdatePassword(ctx context.Context, id int64, password string) error
}

// RehashResult summarizes a password migration run.
type RehashResult struct {
	Found   int
	Updated int
	Skipped int
}

// PasswordRehasher replaces stored plaintext passwords with bcrypt hashes so
// plaintext comparison can be switched off.
type PasswordRehasher struct {
	store  plaintextPasswordStore
	hash   func(string) (string, error)
	logger *zap.Logger
}

// NewPasswordRehasher constructs a rehasher over store.
func NewPasswordRehasher(store plaintextPasswordStore, logger *zap.Logger) *PasswordRehasher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordRehasher{store: store, hash: HashPassword, logger: logger}
}

// Run hashes every plaintext password. With dryRun nothing is written.
func (r *PasswordRehasher) Run(ctx context.Context, dryRun bool) (RehashResult, error) {
	users, err := r.store.ListPlaintextPasswords(ctx)
	if err != nil {
		return RehashResult{}, fmt.Errorf("list plaintext passwords: %w", err)
	}

	result := RehashResult{Found: len(users)}
	for _, user := range users {
		if user.Password == "" || IsPasswordHash(user.Password) {
			result.Skipped++
			continue
		}
		if dryRun {
			continue
		}
		hashed, err := r.hash(user.Password)
		if err != nil {
			return result, fmt.Errorf("hash password for user %d: %w", user.ID, err)
		}
		if err := r.store.UpdatePassword(ctx, user.ID, hashed); err != nil {
			return result, fmt.Errorf("update password for user %d: %w", user.ID, err)
		}
		result.Updated++
		r.logger.Info("password rehashed", zap.Int64("user_id", user.ID))
	}
	return result, nil
}
