package credentials

import (
	"context"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(newFastHasher(t))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	if err := s.Add("alice", "user-1", "alice-password", true); err != nil {
		t.Fatalf("add alice: %v", err)
	}
	if err := s.Add("bob", "user-2", "bob-password", false); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	return s
}

func TestStoreVerifyReturnsSubject(t *testing.T) {
	s := newTestStore(t)
	subject, err := s.Verify(context.Background(), "alice", "alice-password")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("expected user-1, got %q", subject)
	}
}

func TestStoreVerifyFailures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Verify(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := s.Verify(ctx, "mallory", "alice-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := s.Verify(ctx, "bob", "bob-password"); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestStoreSetActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if !s.SetActive("bob", true) {
		t.Fatal("expected bob to exist")
	}
	if _, err := s.Verify(ctx, "bob", "bob-password"); err != nil {
		t.Fatalf("expected bob to verify once active, got %v", err)
	}
	if s.SetActive("nobody", true) {
		t.Fatal("expected unknown user to report false")
	}
}

func TestStoreAddDuplicate(t *testing.T) {
	s := newTestStore(t)
	if err := s.Add("alice", "user-9", "another-password", true); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestStoreVerifyHonoursContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Verify(ctx, "alice", "alice-password"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
