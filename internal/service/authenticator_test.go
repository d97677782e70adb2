package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/storage"
	"github.com/pribylovaa/video-hub/mocks"
)

func TestResolveSubject(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockAccountStorage(ctrl)
	codec, clk := newCodec()
	auth := NewAuthenticator(st, codec)
	ctx := context.Background()

	acc := account("alice")
	access, err := codec.IssueAccess(acc.ID)
	require.NoError(t, err)
	refresh, err := codec.IssueRefresh(acc.ID)
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := auth.ResolveSubject(ctx, "")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ResolveSubject(ctx, "abc.def.ghi")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("refresh_is_not_access", func(t *testing.T) {
		_, err := auth.ResolveSubject(ctx, refresh.Token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("ok", func(t *testing.T) {
		st.EXPECT().ProfileByID(gomock.Any(), acc.ID).Return(acc, nil)

		got, err := auth.ResolveSubject(ctx, access.Token)
		require.NoError(t, err)
		require.Equal(t, acc.ID, got.ID)
	})

	t.Run("account_deleted", func(t *testing.T) {
		st.EXPECT().ProfileByID(gomock.Any(), acc.ID).Return(nil, storage.ErrNotFound)

		_, err := auth.ResolveSubject(ctx, access.Token)
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		clk.Advance(15 * time.Minute)

		_, err := auth.ResolveSubject(ctx, access.Token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestAuthorizeMutation(t *testing.T) {
	t.Parallel()

	owner := account("alice")
	other := account("bob")
	v := &models.Video{ID: "v1", OwnerID: owner.ID}

	require.NoError(t, AuthorizeMutation(owner, v))
	require.ErrorIs(t, AuthorizeMutation(other, v), ErrPermissionDenied)
	require.ErrorIs(t, AuthorizeMutation(nil, v), ErrPermissionDenied)
	require.ErrorIs(t, AuthorizeMutation(owner, nil), ErrPermissionDenied)
	require.ErrorIs(t, AuthorizeMutation(&models.Account{}, &models.Video{OwnerID: uuid.Nil}), ErrPermissionDenied)
}
