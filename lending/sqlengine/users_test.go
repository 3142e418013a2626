package sqlengine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshare/lending/lending"
	. "github.com/bookshare/lending/testutil/helper"
	"github.com/bookshare/lending/testutil/helper/storewrapper"
)

func Test_Users_Create_ThenGet(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).GetStore()
	fixture := FixtureUser("Olga")

	// act
	created, createErr := store.Stores().Users.Create(ctx, fixture)
	loaded, getErr := store.Stores().Users.Get(ctx, fixture.ID)

	// assert
	require.NoError(t, createErr)
	require.NoError(t, getErr)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, fixture.Name, loaded.Name)
	assert.Equal(t, fixture.Email, loaded.Email)
	assert.Equal(t, fixture.PasswordHash, loaded.PasswordHash)
	assert.True(t, created.CreatedAt.Equal(loaded.CreatedAt))
}

func Test_Users_Create_WithTakenEmail_IsConflict(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := storewrapper.CreateWrapperWithTestConfig(t).GetStore()
	existing := GivenUser(t, ctx, store, "Olga")
	duplicate := FixtureUser("Olga")
	duplicate.Email = existing.Email

	// act
	_, err := store.Stores().Users.Create(ctx, duplicate)

	// assert
	assert.ErrorIs(t, err, lending.ErrConflict)
	assert.False(t, strings.Contains(err.Error(), duplicate.PasswordHash))
}

func Test_Users_Get_UnknownUser_IsNotFound(t *testing.T) {
	// arrange
	store := storewrapper.CreateWrapperWithTestConfig(t).GetStore()

	// act
	_, err := store.Stores().Users.Get(context.Background(), GivenUniqueID(t))

	// assert
	assert.ErrorIs(t, err, lending.ErrNotFound)
}
