package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"treasury/internal/core"
)

var (
	ErrUserExists     = errors.New("user already exists")
	ErrBadCredentials = errors.New("invalid credentials")
)

// CreateUser adds a user to the users document with a bcrypt password hash.
func (s *LedgerService) CreateUser(ctx context.Context, username, password, role string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("username and password are required: %w", core.ErrEmptyName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return fmt.Errorf("user %q: %w", username, ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.users[username] = core.User{
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.saveUsers(); err != nil {
		delete(s.users, username)
		return err
	}

	s.publish(ctx, DocUsers, "add")
	return nil
}

// Authenticate checks a username/password pair.
func (s *LedgerService) Authenticate(username, password string) bool {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces a user's password after verifying the old one.
func (s *LedgerService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is required: %w", ErrBadCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if bcrypt.CompareHashAndPassword([]byte(prev.PasswordHash), []byte(oldPassword)) != nil {
		return ErrBadCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := prev
	user.PasswordHash = string(hash)
	s.users[username] = user
	if err := s.saveUsers(); err != nil {
		s.users[username] = prev
		return err
	}

	s.publish(ctx, DocUsers, "update")
	return nil
}

// EnsureAdminUser creates the bootstrap admin account when the users document
// is empty, so a fresh deployment is reachable. The password should be
// rotated immediately.
func (s *LedgerService) EnsureAdminUser(ctx context.Context, password string) error {
	s.mu.RLock()
	existing := len(s.users)
	s.mu.RUnlock()
	if existing > 0 {
		return nil
	}

	if password == "" {
		password = "admin123"
	}
	if err := s.CreateUser(ctx, "admin", password, "admin"); err != nil {
		return err
	}

	slog.Warn("Created default admin user; change its password", "user", "admin")
	return nil
}
