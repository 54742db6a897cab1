package services

import (
	"context"
	"fmt"
	"testing"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/storage/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFriendFixture(t *testing.T) (*FriendService, *memstore.Store, *fakeBroadcaster) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := store.CreateUser(ctx, &models.User{
			Username: name,
			Email:    fmt.Sprintf("%s@test.io", name),
		})
		require.NoError(t, err)
	}

	sender := &fakeBroadcaster{}
	return NewFriendService(store, sender), store, sender
}

func TestFriendRequestLifecycle(t *testing.T) {
	friends, store, sender := newFriendFixture(t)
	ctx := context.Background()

	request, err := friends.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, request.UserID)
	assert.Equal(t, 1, request.FromID)
	assert.Equal(t, "pending", request.Status)
	require.Len(t, sender.byEvent("friend-request"), 1)

	// The target sees it in their inbox; the sender does not.
	inbox, err := friends.ListRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.NotNil(t, inbox[0].From)
	assert.Equal(t, "alice", inbox[0].From.Username)

	inbox, err = friends.ListRequests(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	friend, err := friends.AcceptRequest(ctx, request.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "alice", friend.Username)
	require.Len(t, sender.byEvent("friend-request-accepted"), 1)

	// Friendship is mutual and the request is consumed.
	mutual, err := store.AreFriends(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, mutual)
	mutual, err = store.AreFriends(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, mutual)

	inbox, err = friends.ListRequests(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func TestFriendRequestRejectsDuplicates(t *testing.T) {
	friends, _, _ := newFriendFixture(t)
	ctx := context.Background()

	_, err := friends.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	_, err = friends.SendRequest(ctx, 1, 2)
	assert.ErrorIs(t, err, models.ErrDuplicateRequest)
}

func TestFriendRequestRejectsSelf(t *testing.T) {
	friends, _, _ := newFriendFixture(t)

	_, err := friends.SendRequest(context.Background(), 1, 1)
	assert.ErrorIs(t, err, models.ErrSelfRequest)
}

func TestFriendRequestRejectsExistingFriends(t *testing.T) {
	friends, store, _ := newFriendFixture(t)
	ctx := context.Background()

	require.NoError(t, store.AddFriendEdge(ctx, 1, 2))

	_, err := friends.SendRequest(ctx, 1, 2)
	assert.ErrorIs(t, err, models.ErrAlreadyFriends)
}

func TestFriendRequestRejectsUnknownTarget(t *testing.T) {
	friends, _, _ := newFriendFixture(t)

	_, err := friends.SendRequest(context.Background(), 1, 99)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestAcceptRequestOnlyByTarget(t *testing.T) {
	friends, store, _ := newFriendFixture(t)
	ctx := context.Background()

	request, err := friends.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// Neither the sender nor a bystander can accept it.
	_, err = friends.AcceptRequest(ctx, request.ID, 1)
	assert.ErrorIs(t, err, models.ErrRequestNotFound)
	_, err = friends.AcceptRequest(ctx, request.ID, 3)
	assert.ErrorIs(t, err, models.ErrRequestNotFound)

	mutual, err := store.AreFriends(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, mutual)
}

func TestDeclineRequestLeavesNoFriendship(t *testing.T) {
	friends, store, sender := newFriendFixture(t)
	ctx := context.Background()

	request, err := friends.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, friends.DeclineRequest(ctx, request.ID, 2))

	mutual, err := store.AreFriends(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, mutual)

	// Declining is silent towards the requester.
	assert.Empty(t, sender.byEvent("friend-request-accepted"))

	// The consumed request can be re-sent.
	_, err = friends.SendRequest(ctx, 1, 2)
	assert.NoError(t, err)
}

func TestRemoveFriendBothDirections(t *testing.T) {
	friends, store, sender := newFriendFixture(t)
	ctx := context.Background()

	require.NoError(t, store.AddFriendEdge(ctx, 1, 2))

	require.NoError(t, friends.RemoveFriend(ctx, 1, 2))

	mutual, err := store.AreFriends(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, mutual)
	require.Len(t, sender.byEvent("friend-removed"), 1)

	err = friends.RemoveFriend(ctx, 1, 2)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}
