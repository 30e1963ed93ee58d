package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidCredentials covers unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactive is returned for a known user whose account is disabled.
	ErrInactive = errors.New("account inactive")
	// ErrDuplicateUser is returned by Add for a username already present.
	ErrDuplicateUser = errors.New("user already exists")
)

// User is one stored account. Subject is what ends up in the token's user-id claim.
type User struct {
	Username     string
	Subject      string
	PasswordHash string
	Active       bool
}

// Store is an in-memory user table.
type Store struct {
	hasher *Hasher

	mu    sync.RWMutex
	users map[string]User
	// dummy is verified against for unknown usernames so both paths cost one argon2 run.
	dummy string
}

// NewStore returns an empty store hashing with hasher.
func NewStore(hasher *Hasher) (*Store, error) {
	dummy, err := hasher.Hash("tokenkit-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Store{
		hasher: hasher,
		users:  make(map[string]User),
		dummy:  dummy,
	}, nil
}

// Add hashes password and stores the user.
func (s *Store) Add(username, subject, password string, active bool) error {
	if username == "" || subject == "" {
		return errors.New("username and subject are required")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, username)
	}
	s.users[username] = User{
		Username:     username,
		Subject:      subject,
		PasswordHash: hash,
		Active:       active,
	}
	return nil
}

// SetActive flips the active flag. It reports whether the user exists.
func (s *Store) SetActive(username string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return false
	}
	u.Active = active
	s.users[username] = u
	return true
}

// Verify checks username and password and returns the user's subject.
func (s *Store) Verify(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		_, _ = s.hasher.Verify(password, s.dummy)
		return "", ErrInvalidCredentials
	}
	match, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return "", err
	}
	if !match {
		return "", ErrInvalidCredentials
	}
	if !u.Active {
		return "", ErrInactive
	}
	return u.Subject, nil
}
