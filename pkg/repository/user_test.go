package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

func newUserRepo(t *testing.T) (*fileUserRepository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewFileUserRepository(dir)
	require.NoError(t, err)
	return repo, dir
}

func testUser(id, username, email string) domain.User {
	return domain.User{
		ID:        id,
		Username:  username,
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func TestSaveUser_RoundTripSurvivesRestart(t *testing.T) {
	repo, dir := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveUser(ctx, testUser("u1", "alice", "alice@example.com")))
	require.FileExists(t, filepath.Join(dir, "users.json"))

	reopened, err := NewFileUserRepository(dir)
	require.NoError(t, err)

	user, err := reopened.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.True(t, user.IsActive)
}

func TestGetUserByID_Unknown(t *testing.T) {
	repo, _ := newUserRepo(t)

	_, err := repo.GetUserByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestFindUserByLogin_CaseInsensitive(t *testing.T) {
	repo, _ := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveUser(ctx, testUser("u1", "Alice", "Alice@Example.com")))

	for _, login := range []string{"alice", "ALICE", "alice@example.com", "Alice@Example.COM"} {
		user, err := repo.FindUserByLogin(ctx, login)
		require.NoError(t, err, "login %q", login)
		require.Equal(t, "u1", user.ID)
	}

	_, err := repo.FindUserByLogin(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTaken_ExcludesGivenUser(t *testing.T) {
	repo, _ := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveUser(ctx, testUser("u1", "alice", "alice@example.com")))
	require.NoError(t, repo.SaveUser(ctx, testUser("u2", "bob", "bob@example.com")))

	taken, err := repo.UsernameTaken(ctx, "ALICE", "")
	require.NoError(t, err)
	require.True(t, taken)

	// A user keeping their own username is not a conflict.
	taken, err = repo.UsernameTaken(ctx, "alice", "u1")
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = repo.EmailTaken(ctx, "bob@example.com", "u1")
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.EmailTaken(ctx, "carol@example.com", "")
	require.NoError(t, err)
	require.False(t, taken)
}

func TestSessions_RoundTrip(t *testing.T) {
	repo, _ := newUserRepo(t)
	ctx := context.Background()

	session := domain.Session{
		Token:     "tok-1",
		UserID:    "u1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.SaveSession(ctx, session))

	got, err := repo.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)

	_, err = repo.GetSession(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestDeleteSession_Idempotent(t *testing.T) {
	repo, _ := newUserRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, domain.Session{Token: "tok-1", UserID: "u1"}))

	require.NoError(t, repo.DeleteSession(ctx, "tok-1"))
	_, err := repo.GetSession(ctx, "tok-1")
	require.ErrorIs(t, err, domain.ErrSessionExpired)

	require.NoError(t, repo.DeleteSession(ctx, "tok-1"))
	require.NoError(t, repo.DeleteSession(ctx, "never-existed"))
}
