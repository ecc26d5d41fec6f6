package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

func TestCachedUserRepoGetUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backing := new(mocks.UserRepositoryMock)
	backing.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", FullName: "Ann"}, nil).Once()

	repo := repositories.NewCachedUserRepo(ctx, backing, time.Minute)

	for i := 0; i < 3; i++ {
		user, err := repo.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", user.FullName)
	}
	backing.AssertExpectations(t)
}

func TestCachedUserRepoDoesNotCacheMisses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backing := new(mocks.UserRepositoryMock)
	backing.On("GetUser", mock.Anything, "ghost").Return(models.User{}, repositories.ErrUserNotFound).Twice()

	repo := repositories.NewCachedUserRepo(ctx, backing, time.Minute)

	_, err := repo.GetUser(ctx, "ghost")
	require.ErrorIs(t, err, repositories.ErrUserNotFound)
	_, err = repo.GetUser(ctx, "ghost")
	require.ErrorIs(t, err, repositories.ErrUserNotFound)
	backing.AssertExpectations(t)
}

func TestCachedUserRepoCreatePrimesCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backing := new(mocks.UserRepositoryMock)
	backing.On("CreateUser", mock.Anything, models.User{FullName: "Ann"}).Return(models.User{ID: "u9", FullName: "Ann"}, nil).Once()

	repo := repositories.NewCachedUserRepo(ctx, backing, time.Minute)
	created, err := repo.CreateUser(ctx, models.User{FullName: "Ann"})
	require.NoError(t, err)

	got, err := repo.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	backing.AssertExpectations(t)
}
