package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/storage/memstore"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentUserEvent struct {
	userIDs []int
	event   string
	data    map[string]any
}

type fakeUserSender struct {
	mu   sync.Mutex
	sent []sentUserEvent
}

func (f *fakeUserSender) ToUsers(userIDs []int, exceptUserID int, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentUserEvent{userIDs, event, data.(map[string]any)})
}

func (f *fakeUserSender) statusChanges() []sentUserEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentUserEvent
	for _, e := range f.sent {
		if e.event == EventUserStatusChanged {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeUserSender) lastStatus() (sentUserEvent, bool) {
	changes := f.statusChanges()
	if len(changes) == 0 {
		return sentUserEvent{}, false
	}
	return changes[len(changes)-1], true
}

const (
	testAwayTimeout  = 5 * time.Minute
	testOfflineGrace = 2 * time.Second
)

func newPresenceFixture(t *testing.T) (*Presence, *memstore.Store, *fakeUserSender, *clockwork.FakeClock) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	aliceID, err := store.CreateUser(ctx, &models.User{Username: "alice", Email: "alice@test.io"})
	require.NoError(t, err)
	bobID, err := store.CreateUser(ctx, &models.User{Username: "bob", Email: "bob@test.io"})
	require.NoError(t, err)
	require.Equal(t, 1, aliceID)
	require.Equal(t, 2, bobID)

	require.NoError(t, store.AddFriendEdge(ctx, aliceID, bobID))

	sender := &fakeUserSender{}
	clock := clockwork.NewFakeClock()
	presence := NewPresence(store, sender, nil, clock, testAwayTimeout, testOfflineGrace, 5*time.Minute)
	return presence, store, sender, clock
}

func TestPresenceConnectBroadcastsToFriends(t *testing.T) {
	presence, store, sender, _ := newPresenceFixture(t)

	presence.Connected(1, "c1")

	changes := sender.statusChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, []int{2}, changes[0].userIDs)
	assert.Equal(t, 1, changes[0].data["user_id"])
	assert.Equal(t, true, changes[0].data["is_online"])
	assert.True(t, presence.IsOnline(1))

	user, err := store.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, user.IsOnline)
}

func TestPresenceAutoAway(t *testing.T) {
	presence, store, sender, clock := newPresenceFixture(t)

	presence.Connected(1, "c1")
	clock.Advance(testAwayTimeout)

	require.Eventually(t, func() bool {
		last, ok := sender.lastStatus()
		return ok && last.data["is_online"] == false
	}, time.Second, 10*time.Millisecond)

	user, err := store.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, user.IsOnline)
}

func TestPresenceActivityDefersAway(t *testing.T) {
	presence, _, sender, clock := newPresenceFixture(t)

	presence.Connected(1, "c1")
	clock.Advance(testAwayTimeout / 2)
	presence.Activity(1)
	clock.Advance(testAwayTimeout / 2)

	// Half the window remains after the renewal.
	last, ok := sender.lastStatus()
	require.True(t, ok)
	assert.Equal(t, true, last.data["is_online"])

	clock.Advance(testAwayTimeout / 2)
	require.Eventually(t, func() bool {
		last, ok := sender.lastStatus()
		return ok && last.data["is_online"] == false
	}, time.Second, 10*time.Millisecond)
}

func TestPresenceActivityAfterAwayGoesBackOnline(t *testing.T) {
	presence, _, sender, clock := newPresenceFixture(t)

	presence.Connected(1, "c1")
	clock.Advance(testAwayTimeout)
	require.Eventually(t, func() bool {
		last, ok := sender.lastStatus()
		return ok && last.data["is_online"] == false
	}, time.Second, 10*time.Millisecond)

	presence.Activity(1)
	last, ok := sender.lastStatus()
	require.True(t, ok)
	assert.Equal(t, true, last.data["is_online"])
}

func TestPresenceOfflineAfterGrace(t *testing.T) {
	presence, store, sender, clock := newPresenceFixture(t)

	presence.Connected(1, "c1")
	presence.Disconnected(1, "c1")

	// No offline broadcast during the grace window.
	last, ok := sender.lastStatus()
	require.True(t, ok)
	assert.Equal(t, true, last.data["is_online"])

	clock.Advance(testOfflineGrace)
	require.Eventually(t, func() bool {
		last, ok := sender.lastStatus()
		return ok && last.data["is_online"] == false
	}, time.Second, 10*time.Millisecond)

	user, err := store.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, user.IsOnline)
}

func TestPresenceReconnectWithinGraceStaysOnline(t *testing.T) {
	presence, _, sender, clock := newPresenceFixture(t)

	presence.Connected(1, "c1")
	presence.Disconnected(1, "c1")
	presence.Connected(1, "c2")

	clock.Advance(testOfflineGrace * 2)

	for _, change := range sender.statusChanges() {
		assert.Equal(t, true, change.data["is_online"])
	}
	assert.True(t, presence.IsOnline(1))
}

func TestPresenceStaleDisconnectIgnored(t *testing.T) {
	presence, _, _, clock := newPresenceFixture(t)

	presence.Connected(1, "c1")
	presence.Connected(1, "c2")

	// The close of the superseded connection must not take the user offline.
	presence.Disconnected(1, "c1")
	clock.Advance(testOfflineGrace * 2)

	assert.True(t, presence.IsOnline(1))
}

func TestPresenceNoFriendsNoBroadcast(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, err := store.CreateUser(ctx, &models.User{Username: "loner", Email: "loner@test.io"})
	require.NoError(t, err)

	sender := &fakeUserSender{}
	presence := NewPresence(store, sender, nil, clockwork.NewFakeClock(), testAwayTimeout, testOfflineGrace, time.Minute)

	presence.Connected(1, "c1")

	assert.Empty(t, sender.statusChanges())
	assert.True(t, presence.IsOnline(1))
}
