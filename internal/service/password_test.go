package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/storage"
)

func TestChangePassword_RevokesAllSessions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := f.user(t)
	res := f.login(t, u)
	ctx := context.Background()

	const next = "new-password-2"

	f.users.EXPECT().UpdateUser(gomock.Any(), testUserID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, upd storage.UserUpdate) (*models.User, error) {
			require.NotNil(t, upd.PasswordHash)
			require.True(t, f.hasher.Verify(next, *upd.PasswordHash))
			return u, nil
		})

	require.NoError(t, f.svc.ChangePassword(ctx, testUserID, testPassword, next))

	_, err := f.svc.tokens.Verify(res.AccessToken)
	require.NoError(t, err)

	_, err = f.svc.CurrentUser(ctx, res.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	_, err = f.svc.Refresh(ctx, res.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := f.user(t)
	res := f.login(t, u)

	err := f.svc.ChangePassword(context.Background(), testUserID, "not-my-password", "new-password-2")
	require.ErrorIs(t, err, ErrIncorrectCurrentPassword)

	_, err = f.svc.CurrentUser(context.Background(), res.AccessToken)
	require.NoError(t, err)
}

func TestChangePassword_WeakNewPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	u := f.user(t)
	f.users.EXPECT().UserByID(gomock.Any(), testUserID).Return(u, nil)

	err := f.svc.ChangePassword(context.Background(), testUserID, testPassword, "short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.users.EXPECT().UserByID(gomock.Any(), int64(7)).Return(nil, storage.ErrNotFound)

	err := f.svc.ChangePassword(context.Background(), 7, testPassword, "new-password-2")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	f.users.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) (*models.User, error) {
			require.Equal(t, "carol@example.com", u.Email)
			require.Equal(t, "carol", u.Username)
			require.True(t, u.IsActive)
			require.True(t, f.hasher.Verify("carol-password", u.PasswordHash))

			saved := *u
			saved.ID = 9
			return &saved, nil
		})

	u, err := f.svc.CreateUser(context.Background(), "Carol@Example.com", "carol", "Carol C", "carol-password")
	require.NoError(t, err)
	require.Equal(t, int64(9), u.ID)
}

func TestCreateUser_Rejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, "bad", "carol", "", "carol-password")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.svc.CreateUser(ctx, "carol@example.com", "  ", "", "carol-password")
	require.ErrorIs(t, err, ErrInvalidUsername)

	_, err = f.svc.CreateUser(ctx, "carol@example.com", "carol", "", "short")
	require.ErrorIs(t, err, ErrWeakPassword)

	f.users.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil, storage.ErrAlreadyExists)
	_, err = f.svc.CreateUser(ctx, "carol@example.com", "carol", "", "carol-password")
	require.ErrorIs(t, err, ErrUserExists)
}
