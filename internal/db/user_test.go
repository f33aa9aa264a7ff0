package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/luxury-rentals/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func newTestUser() *models.User {
	return &models.User{
		Email:        "Test@Example.com ",
		PasswordHash: "hashedpassword",
		FullName:     "Test User",
		Role:         models.RoleCustomer,
		Provider:     models.ProviderEmail,
	}
}

func TestMongoUserCollection_InsertUser(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := newTestUser()
	err := store.Users.InsertUser(ctx, user)
	assert.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	// Verify user was inserted
	var foundUser models.User
	err = store.Users.Collection.FindOne(ctx, bson.M{"_id": user.ID}).Decode(&foundUser)
	assert.NoError(t, err)
	assert.Equal(t, "test@example.com", foundUser.Email)
	assert.Equal(t, user.Role, foundUser.Role)
	assert.True(t, foundUser.IsActive)
	assert.NotZero(t, foundUser.CreatedAt)
	assert.NotZero(t, foundUser.UpdatedAt)

	// Emails are unique regardless of case
	dup := newTestUser()
	dup.Email = "TEST@example.com"
	assert.ErrorIs(t, store.Users.InsertUser(ctx, dup), ErrDuplicate)
}

func TestMongoUserCollection_FindUser(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, store.Users.InsertUser(ctx, user))

	byID, err := store.Users.FindUserByID(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := store.Users.FindUserByEmail(ctx, "TEST@EXAMPLE.COM")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = store.Users.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Users.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoUserCollection_UpdateUser(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, store.Users.InsertUser(ctx, user))

	user.FullName = "Updated User"
	user.Role = models.RoleAdmin
	require.NoError(t, store.Users.UpdateUser(ctx, user))

	found, err := store.Users.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated User", found.FullName)
	assert.Equal(t, models.RoleAdmin, found.Role)

	require.NoError(t, store.Users.SetPasswordHash(ctx, user.ID, "newhash"))
	found, err = store.Users.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", found.PasswordHash)

	missing := newTestUser()
	missing.ID = "missing"
	assert.ErrorIs(t, store.Users.UpdateUser(ctx, missing), ErrNotFound)
}

func TestMongoUserCollection_UpdateLastLogin(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, store.Users.InsertUser(ctx, user))
	assert.Nil(t, user.LastLogin)

	require.NoError(t, store.Users.UpdateLastLogin(ctx, user.ID))
	found, err := store.Users.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.WithinDuration(t, time.Now(), *found.LastLogin, time.Minute)
}

func TestMongoUserCollection_ResetToken(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, store.Users.InsertUser(ctx, user))

	now := time.Now().UTC()
	require.NoError(t, store.Users.SetResetToken(ctx, user.ID, "token-hash", now.Add(time.Hour)))

	_, err := store.Users.ConsumeResetToken(ctx, "token-hash", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	owner, err := store.Users.ConsumeResetToken(ctx, "token-hash", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner.ID)
	assert.Empty(t, owner.ResetTokenHash)

	// Single use
	_, err = store.Users.ConsumeResetToken(ctx, "token-hash", now)
	assert.ErrorIs(t, err, ErrNotFound)
}
