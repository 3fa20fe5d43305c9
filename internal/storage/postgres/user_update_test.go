package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-photo-sharing/internal/storage"
)

func TestBuildUserUpdate_OnlySetFields(t *testing.T) {
	t.Parallel()

	hash := "new-hash"
	active := false

	query, args := buildUserUpdate(42, storage.UserUpdate{PasswordHash: &hash, IsActive: &active})

	require.Contains(t, query, "updated_at = now()")
	require.Contains(t, query, "password_hash = $1")
	require.Contains(t, query, "is_active = $2")
	require.Contains(t, query, "WHERE id = $3")
	require.NotContains(t, query, "email =")
	require.Equal(t, []any{"new-hash", false, int64(42)}, args)
}

func TestBuildUserUpdate_AllFieldsInOrder(t *testing.T) {
	t.Parallel()

	email, username, name, hash, url := "a@b.c", "alice", "Alice", "h", "https://img/a.png"
	active, verified := true, true

	query, args := buildUserUpdate(1, storage.UserUpdate{
		Email:           &email,
		Username:        &username,
		FullName:        &name,
		PasswordHash:    &hash,
		IsActive:        &active,
		IsVerified:      &verified,
		ProfileImageURL: &url,
	})

	require.Contains(t, query, "profile_image_url = $7")
	require.Contains(t, query, "WHERE id = $8")
	require.Len(t, args, 8)
}
