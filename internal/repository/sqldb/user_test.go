package sqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/model"
)

func TestCreateUser_And_GetByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{Name: "Alice", Email: "  Alice@Example.com ", PasswordHash: "hash"}
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == "" {
		t.Fatal("CreateUser() did not set user.ID")
	}

	found, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", found.Name)
	}
	if found.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized alice@example.com", found.Email)
	}
	if found.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want hash", found.PasswordHash)
	}
	if found.GitHubID != nil {
		t.Errorf("GitHubID = %v, want nil", *found.GitHubID)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	found, err := db.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != alice.ID {
		t.Errorf("ID = %q, want %q", found.ID, alice.ID)
	}

	if _, err := db.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByEmail(ctx, ""); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "alice")

	err := db.CreateUser(ctx, &model.User{Name: "other", Email: "alice@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_EmptyEmailsDoNotCollide(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if err := db.CreateUser(ctx, &model.User{Name: name}); err != nil {
			t.Fatalf("CreateUser(%s) error = %v", name, err)
		}
	}
}

func TestUpsertGitHubUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ghID := int64(4242)

	first := &model.User{Name: "octo", Email: "octo@github.com", GitHubID: &ghID, AvatarURL: "https://a/1"}
	if err := db.UpsertGitHubUser(ctx, first); err != nil {
		t.Fatalf("UpsertGitHubUser() create error = %v", err)
	}
	if first.ID == "" {
		t.Fatal("UpsertGitHubUser() did not assign an ID")
	}

	again := &model.User{Name: "octocat", Email: "octo@github.com", GitHubID: &ghID, AvatarURL: "https://a/2"}
	if err := db.UpsertGitHubUser(ctx, again); err != nil {
		t.Fatalf("UpsertGitHubUser() update error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("second login got ID %q, want existing %q", again.ID, first.ID)
	}
	if again.Name != "octocat" || again.AvatarURL != "https://a/2" {
		t.Errorf("profile not refreshed: %+v", again)
	}
	if again.GitHubID == nil || *again.GitHubID != ghID {
		t.Errorf("GitHubID = %v, want %d", again.GitHubID, ghID)
	}
	if !again.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", first.CreatedAt, again.CreatedAt)
	}
}

func TestUpsertGitHubUser_RequiresGitHubID(t *testing.T) {
	db := newTestDB(t)

	err := db.UpsertGitHubUser(context.Background(), &model.User{Name: "x"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpsertGitHubUser() error = %v, want ErrValidation", err)
	}
}
