package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentChatEvent struct {
	chatID int
	except int
	event  string
	data   map[string]any
}

type fakeChatSender struct {
	mu   sync.Mutex
	sent []sentChatEvent
}

func (f *fakeChatSender) ToChat(chatID, exceptUserID int, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentChatEvent{chatID, exceptUserID, event, data.(map[string]any)})
}

func (f *fakeChatSender) events() []sentChatEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentChatEvent, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeChatSender) countByEvent(event string) int {
	n := 0
	for _, e := range f.events() {
		if e.event == event {
			n++
		}
	}
	return n
}

const testTypingTimeout = 3 * time.Second

func TestTypingStartBroadcastsOnce(t *testing.T) {
	sender := &fakeChatSender{}
	clock := clockwork.NewFakeClock()
	tracker := NewTypingTracker(sender, clock, testTypingTimeout)

	tracker.Start(10, 1, "alice")

	events := sender.events()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserTyping, events[0].event)
	assert.Equal(t, 10, events[0].chatID)
	assert.Equal(t, 1, events[0].except)
	assert.Equal(t, "alice", events[0].data["username"])
	assert.True(t, tracker.IsTyping(10, 1))
}

func TestTypingExpiresAfterQuietPeriod(t *testing.T) {
	sender := &fakeChatSender{}
	clock := clockwork.NewFakeClock()
	tracker := NewTypingTracker(sender, clock, testTypingTimeout)

	tracker.Start(10, 1, "alice")
	clock.Advance(testTypingTimeout)

	require.Eventually(t, func() bool {
		return sender.countByEvent(EventUserStoppedTyping) == 1
	}, time.Second, 10*time.Millisecond)
	assert.False(t, tracker.IsTyping(10, 1))
}

func TestTypingRenewalDoesNotRebroadcast(t *testing.T) {
	sender := &fakeChatSender{}
	clock := clockwork.NewFakeClock()
	tracker := NewTypingTracker(sender, clock, testTypingTimeout)

	tracker.Start(10, 1, "alice")
	clock.Advance(testTypingTimeout / 2)
	tracker.Start(10, 1, "alice")

	assert.Equal(t, 1, sender.countByEvent(EventUserTyping))

	// The renewal rearmed the full quiet period, so the original deadline
	// passes without an expiry.
	clock.Advance(testTypingTimeout / 2)
	assert.Equal(t, 0, sender.countByEvent(EventUserStoppedTyping))
	assert.True(t, tracker.IsTyping(10, 1))

	clock.Advance(testTypingTimeout / 2)
	require.Eventually(t, func() bool {
		return sender.countByEvent(EventUserStoppedTyping) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTypingStopBroadcastsImmediately(t *testing.T) {
	sender := &fakeChatSender{}
	clock := clockwork.NewFakeClock()
	tracker := NewTypingTracker(sender, clock, testTypingTimeout)

	tracker.Start(10, 1, "alice")
	tracker.Stop(10, 1)

	assert.Equal(t, 1, sender.countByEvent(EventUserStoppedTyping))
	assert.False(t, tracker.IsTyping(10, 1))

	// A second stop is a no-op.
	tracker.Stop(10, 1)
	assert.Equal(t, 1, sender.countByEvent(EventUserStoppedTyping))

	// The dead timer never fires.
	clock.Advance(testTypingTimeout)
	assert.Equal(t, 1, sender.countByEvent(EventUserStoppedTyping))
}

func TestTypingClearUserCoversAllChats(t *testing.T) {
	sender := &fakeChatSender{}
	clock := clockwork.NewFakeClock()
	tracker := NewTypingTracker(sender, clock, testTypingTimeout)

	tracker.Start(10, 1, "alice")
	tracker.Start(20, 1, "alice")
	tracker.Start(10, 2, "bob")

	tracker.ClearUser(1)

	assert.Equal(t, 2, sender.countByEvent(EventUserStoppedTyping))
	assert.False(t, tracker.IsTyping(10, 1))
	assert.False(t, tracker.IsTyping(20, 1))
	assert.True(t, tracker.IsTyping(10, 2))
}
