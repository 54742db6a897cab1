package realtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ChatWave/server/internal/storage"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// userSender is the slice of the hub the presence registry needs.
type userSender interface {
	ToUsers(userIDs []int, exceptUserID int, event string, data any)
}

type presenceEntry struct {
	connID       string
	lastActivity time.Time
	awayTimer    clockwork.Timer
	graceTimer   clockwork.Timer
}

// Presence tracks the Offline -> Online -> Away -> Offline lifecycle of each
// user. The registry is keyed by userID with last-writer-wins on the
// connection id, so multiple tabs coalesce into one logical presence.
// Transitions are persisted to the user record, mirrored into Redis with a
// TTL for cheap cross-service reads, and broadcast to the user's friend set
// only, bounding fan-out to O(friends).
type Presence struct {
	mu     sync.Mutex
	store  storage.Store
	sender userSender
	redis  *redis.Client
	clock  clockwork.Clock

	awayTimeout  time.Duration
	offlineGrace time.Duration
	redisTTL     time.Duration

	entries map[int]*presenceEntry
}

func NewPresence(store storage.Store, sender userSender, redisClient *redis.Client, clock clockwork.Clock, awayTimeout, offlineGrace, redisTTL time.Duration) *Presence {
	return &Presence{
		store:        store,
		sender:       sender,
		redis:        redisClient,
		clock:        clock,
		awayTimeout:  awayTimeout,
		offlineGrace: offlineGrace,
		redisTTL:     redisTTL,
		entries:      make(map[int]*presenceEntry),
	}
}

// Connected registers a connection for the user and transitions them online.
// A pending offline grace timer from a reconnect race is cancelled.
func (p *Presence) Connected(userID int, connID string) {
	p.mu.Lock()
	entry, known := p.entries[userID]
	if !known {
		entry = &presenceEntry{}
		p.entries[userID] = entry
	}
	if entry.graceTimer != nil {
		entry.graceTimer.Stop()
		entry.graceTimer = nil
	}
	entry.connID = connID
	entry.lastActivity = p.clock.Now()
	p.armAwayTimerLocked(userID, entry)
	p.mu.Unlock()

	p.setStatus(userID, true)
}

// Activity renews the auto-away window. Called on every inbound event from
// the user's connection.
func (p *Presence) Activity(userID int) {
	p.mu.Lock()
	entry, ok := p.entries[userID]
	if !ok {
		p.mu.Unlock()
		return
	}
	wasIdle := p.clock.Now().Sub(entry.lastActivity) >= p.awayTimeout
	entry.lastActivity = p.clock.Now()
	p.armAwayTimerLocked(userID, entry)
	p.mu.Unlock()

	if wasIdle {
		// Coming back from Away counts as a fresh online transition.
		p.setStatus(userID, true)
	}
}

// Disconnected handles a connection close. Only the connection that
// currently owns the registry entry can take the user offline, and even
// then only after a short grace delay to absorb reconnect races.
func (p *Presence) Disconnected(userID int, connID string) {
	p.mu.Lock()
	entry, ok := p.entries[userID]
	if !ok || entry.connID != connID {
		p.mu.Unlock()
		return
	}
	if entry.awayTimer != nil {
		entry.awayTimer.Stop()
		entry.awayTimer = nil
	}
	entry.graceTimer = p.clock.AfterFunc(p.offlineGrace, func() {
		p.finishDisconnect(userID, connID)
	})
	p.mu.Unlock()
}

// IsOnline reports whether the user currently has a live registry entry.
func (p *Presence) IsOnline(userID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[userID]
	return ok && entry.graceTimer == nil
}

func (p *Presence) finishDisconnect(userID int, connID string) {
	p.mu.Lock()
	entry, ok := p.entries[userID]
	if !ok || entry.connID != connID {
		// A newer connection took over during the grace window.
		p.mu.Unlock()
		return
	}
	delete(p.entries, userID)
	p.mu.Unlock()

	p.setStatus(userID, false)
}

func (p *Presence) armAwayTimerLocked(userID int, entry *presenceEntry) {
	if entry.awayTimer != nil {
		entry.awayTimer.Reset(p.awayTimeout)
		return
	}
	entry.awayTimer = p.clock.AfterFunc(p.awayTimeout, func() {
		p.goAway(userID)
	})
}

// goAway fires after the inactivity window with no activity signal. The user
// keeps their registry entry (the connection is still open) but reads as
// offline to everyone else until the next activity signal.
func (p *Presence) goAway(userID int) {
	p.mu.Lock()
	entry, ok := p.entries[userID]
	if !ok {
		p.mu.Unlock()
		return
	}
	if p.clock.Now().Sub(entry.lastActivity) < p.awayTimeout {
		p.armAwayTimerLocked(userID, entry)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.setStatus(userID, false)
}

// setStatus persists the transition, mirrors it into Redis, and notifies the
// user's friends.
func (p *Presence) setStatus(userID int, isOnline bool) {
	ctx := context.Background()
	now := p.clock.Now()

	if err := p.store.SetUserPresence(ctx, userID, isOnline, now); err != nil {
		log.Printf("Error persisting presence for user %d: %v", userID, err)
	}

	if p.redis != nil {
		val := "0"
		if isOnline {
			val = "1"
		}
		key := fmt.Sprintf("user:%d:online", userID)
		if err := p.redis.Set(ctx, key, val, p.redisTTL).Err(); err != nil {
			log.Printf("Error mirroring presence to redis for user %d: %v", userID, err)
		}
	}

	friendIDs, err := p.store.FriendIDs(ctx, userID)
	if err != nil {
		log.Printf("Error fetching friends of user %d for status broadcast: %v", userID, err)
		return
	}
	if len(friendIDs) == 0 {
		return
	}

	p.sender.ToUsers(friendIDs, 0, EventUserStatusChanged, map[string]any{
		"user_id":   userID,
		"is_online": isOnline,
		"last_seen": now,
	})
}
