package services

import (
	"context"
	"testing"
	"time"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/storage/memstore"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWTSecret = []byte("unit-test-secret")

func newUserService() *UserService {
	return NewUserService(memstore.New(), testJWTSecret, time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	users := newUserService()
	ctx := context.Background()

	registered, token, err := users.Register(ctx, "alice", "Alice@Test.io", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", registered.Username)
	assert.Equal(t, "alice@test.io", registered.Email)
	assert.NotEqual(t, "s3cret-pass", registered.PasswordHash)

	// Login is case-insensitive on the email.
	loggedIn, token, err := users.Login(ctx, "ALICE@test.io", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, loggedIn.ID)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return testJWTSecret, nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(registered.ID), claims["user_id"])
	assert.Equal(t, "alice", claims["username"])
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	users := newUserService()
	ctx := context.Background()

	_, _, err := users.Register(ctx, "alice", "alice@test.io", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = users.Register(ctx, "alice", "other@test.io", "s3cret-pass")
	assert.ErrorIs(t, err, models.ErrUserExists)

	_, _, err = users.Register(ctx, "other", "alice@test.io", "s3cret-pass")
	assert.ErrorIs(t, err, models.ErrUserExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := newUserService()
	ctx := context.Background()

	_, _, err := users.Register(ctx, "alice", "alice@test.io", "s3cret-pass")
	require.NoError(t, err)

	// Wrong password and unknown email fail identically.
	_, _, err = users.Login(ctx, "alice@test.io", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = users.Login(ctx, "nobody@test.io", "s3cret-pass")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestSearchExcludesCaller(t *testing.T) {
	store := memstore.New()
	users := NewUserService(store, testJWTSecret, time.Hour)
	ctx := context.Background()

	_, _, err := users.Register(ctx, "alice", "alice@test.io", "pw-one-longer")
	require.NoError(t, err)
	_, _, err = users.Register(ctx, "alicia", "alicia@test.io", "pw-two-longer")
	require.NoError(t, err)
	_, _, err = users.Register(ctx, "bob", "bob@test.io", "pw-three-longer")
	require.NoError(t, err)

	found, err := users.Search(ctx, "ali", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alicia", found[0].Username)

	found, err = users.Search(ctx, "   ", 1)
	require.NoError(t, err)
	assert.Empty(t, found)
}
