package realtime

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// chatSender is the slice of the hub the typing tracker needs.
type chatSender interface {
	ToChat(chatID, exceptUserID int, event string, data any)
}

type typingKey struct {
	chatID int
	userID int
}

// TypingTracker keeps the per-chat set of currently-typing users. Entries
// self-expire after a quiet period unless renewed; nothing is persisted, so
// a restart correctly clears all typing state.
type TypingTracker struct {
	mu      sync.Mutex
	sender  chatSender
	clock   clockwork.Clock
	timeout time.Duration
	timers  map[typingKey]clockwork.Timer
	names   map[typingKey]string
}

func NewTypingTracker(sender chatSender, clock clockwork.Clock, timeout time.Duration) *TypingTracker {
	return &TypingTracker{
		sender:  sender,
		clock:   clock,
		timeout: timeout,
		timers:  make(map[typingKey]clockwork.Timer),
		names:   make(map[typingKey]string),
	}
}

// Start marks the user as typing in the chat and (re)arms the expiry timer.
// Repeated calls within the quiet period renew the timer without
// re-broadcasting.
func (t *TypingTracker) Start(chatID, userID int, username string) {
	t.mu.Lock()
	key := typingKey{chatID, userID}
	timer, renewing := t.timers[key]
	if renewing {
		timer.Reset(t.timeout)
		t.mu.Unlock()
		return
	}

	t.names[key] = username
	t.timers[key] = t.clock.AfterFunc(t.timeout, func() {
		t.expire(key)
	})
	t.mu.Unlock()

	t.sender.ToChat(chatID, userID, EventUserTyping, map[string]any{
		"user_id":  userID,
		"username": username,
		"chat_id":  chatID,
	})
}

// Stop removes the user from the chat's typing set immediately, used when
// the user sends a message or clears their input.
func (t *TypingTracker) Stop(chatID, userID int) {
	key := typingKey{chatID, userID}

	t.mu.Lock()
	timer, ok := t.timers[key]
	if ok {
		timer.Stop()
		delete(t.timers, key)
		delete(t.names, key)
	}
	t.mu.Unlock()

	if ok {
		t.broadcastStopped(key)
	}
}

// ClearUser drops every typing entry the user holds, with the usual stop
// broadcasts. Called on disconnect so timers never fire into rooms the user
// already left.
func (t *TypingTracker) ClearUser(userID int) {
	t.mu.Lock()
	var cleared []typingKey
	for key, timer := range t.timers {
		if key.userID != userID {
			continue
		}
		timer.Stop()
		delete(t.timers, key)
		delete(t.names, key)
		cleared = append(cleared, key)
	}
	t.mu.Unlock()

	for _, key := range cleared {
		t.broadcastStopped(key)
	}
}

// IsTyping reports whether the user currently counts as typing in the chat.
func (t *TypingTracker) IsTyping(chatID, userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[typingKey{chatID, userID}]
	return ok
}

func (t *TypingTracker) expire(key typingKey) {
	t.mu.Lock()
	if _, ok := t.timers[key]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)
	delete(t.names, key)
	t.mu.Unlock()

	t.broadcastStopped(key)
}

func (t *TypingTracker) broadcastStopped(key typingKey) {
	t.sender.ToChat(key.chatID, key.userID, EventUserStoppedTyping, map[string]any{
		"user_id": key.userID,
		"chat_id": key.chatID,
	})
}
