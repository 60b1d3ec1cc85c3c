package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/refshelf/refshelf-server/internal/domain"
	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "alice")

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got == nil || got.Username != "alice" || got.PasswordHash != u.PasswordHash {
		t.Fatalf("GetUser: got %+v", got)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, u.CreatedAt)
	}

	byName, err := s.GetUserByUsername(ctx, " alice ")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName == nil || byName.ID != u.ID {
		t.Errorf("GetUserByUsername: got %+v", byName)
	}
}

func TestGetUser_Missing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.GetUser(ctx, "user-missing")
	if err != nil || u != nil {
		t.Errorf("GetUser: got %+v, %v", u, err)
	}
	u, err = s.GetUserByUsername(ctx, "nobody")
	if err != nil || u != nil {
		t.Errorf("GetUserByUsername: got %+v, %v", u, err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "alice")

	err := s.CreateUser(context.Background(), &domain.User{
		ID:           "user-2",
		Username:     "  alice",
		PasswordHash: "x",
	})
	if !errors.Is(err, domainerrors.ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}
}
