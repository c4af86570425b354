// Package identity owns user registration and credential verification. It is
// deliberately thin: the interesting money flows hang off the user id this
// package hands out.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/storage"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLen = 8

type Service struct {
	store  storage.Store
	logger *slog.Logger
}

func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register creates a user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password string) (ledger.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return ledger.User{}, fmt.Errorf("invalid email address")
	}
	if len(password) < minPasswordLen {
		return ledger.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ledger.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := ledger.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			return ledger.User{}, ErrEmailTaken
		}
		return ledger.User{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate verifies an email/password pair. Failures are collapsed into a
// single error so callers cannot probe which emails exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (ledger.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return ledger.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return ledger.User{}, ErrInvalidCredentials
	}
	return user, nil
}
