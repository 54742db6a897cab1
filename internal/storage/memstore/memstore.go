// Package memstore holds an in-memory storage.Store used by tests of the
// chat core, standing in for Postgres the way sqlite :memory: would.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ChatWave/server/internal/models"
)

type Store struct {
	mu sync.RWMutex

	users    map[int]*models.User
	friends  map[int]map[int]bool
	requests map[int]*models.FriendRequest
	chats    map[int]*models.Chat
	members  map[int]map[int]time.Time
	messages map[int]*models.Message

	nextUserID    int
	nextRequestID int
	nextChatID    int
	nextMessageID int
}

func New() *Store {
	return &Store{
		users:    make(map[int]*models.User),
		friends:  make(map[int]map[int]bool),
		requests: make(map[int]*models.FriendRequest),
		chats:    make(map[int]*models.Chat),
		members:  make(map[int]map[int]time.Time),
		messages: make(map[int]*models.Message),
	}
}

// User operations

func (s *Store) CreateUser(_ context.Context, user *models.User) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	user.ID = s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	u := *user
	s.users[user.ID] = &u
	return user.ID, nil
}

func (s *Store) GetUserByID(_ context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *Store) UserExists(_ context.Context, username, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SearchUsers(_ context.Context, search string, excludeID int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(search)
	var users []models.User
	for _, u := range s.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) SetUserPresence(_ context.Context, userID int, isOnline bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.IsOnline = isOnline
	u.LastSeen = lastSeen
	return nil
}

// Friend graph operations

func (s *Store) FriendIDs(_ context.Context, userID int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int
	for id := range s.friends[userID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *Store) ListFriends(ctx context.Context, userID int) ([]models.User, error) {
	ids, _ := s.FriendIDs(ctx, userID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *Store) AreFriends(_ context.Context, userID, otherID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.friends[userID][otherID], nil
}

func (s *Store) AddFriendEdge(_ context.Context, userID, otherID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.friends[userID] == nil {
		s.friends[userID] = make(map[int]bool)
	}
	if s.friends[otherID] == nil {
		s.friends[otherID] = make(map[int]bool)
	}
	s.friends[userID][otherID] = true
	s.friends[otherID][userID] = true
	return nil
}

func (s *Store) RemoveFriendEdge(_ context.Context, userID, otherID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.friends[userID], otherID)
	delete(s.friends[otherID], userID)
	return nil
}

func (s *Store) CreateFriendRequest(_ context.Context, toID, fromID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRequestID++
	s.requests[s.nextRequestID] = &models.FriendRequest{
		ID:        s.nextRequestID,
		UserID:    toID,
		FromID:    fromID,
		Status:    "pending",
		CreatedAt: time.Now(),
	}
	return s.nextRequestID, nil
}

func (s *Store) PendingRequestExists(_ context.Context, toID, fromID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.requests {
		if req.UserID == toID && req.FromID == fromID && req.Status == "pending" {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetFriendRequest(_ context.Context, requestID int) (*models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, models.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (s *Store) DeleteFriendRequest(_ context.Context, requestID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.requests, requestID)
	return nil
}

func (s *Store) ListFriendRequests(_ context.Context, userID int) ([]models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var requests []models.FriendRequest
	for _, req := range s.requests {
		if req.UserID != userID || req.Status != "pending" {
			continue
		}
		copied := *req
		if from, ok := s.users[req.FromID]; ok {
			f := *from
			copied.From = &f
		}
		requests = append(requests, copied)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return requests, nil
}

// Chat operations

func (s *Store) CreateChat(_ context.Context, chat *models.Chat, participantIDs []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChatID++
	chat.ID = s.nextChatID
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	copied := *chat
	copied.Participants = nil
	copied.LastMessage = nil
	s.chats[chat.ID] = &copied

	s.members[chat.ID] = make(map[int]time.Time)
	for i, id := range participantIDs {
		// Preserve join order for deterministic participant listings.
		s.members[chat.ID][id] = now.Add(time.Duration(i) * time.Microsecond)
	}
	return chat.ID, nil
}

func (s *Store) GetChatByID(_ context.Context, chatID int) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatLocked(chatID)
}

func (s *Store) chatLocked(chatID int) (*models.Chat, error) {
	c, ok := s.chats[chatID]
	if !ok {
		return nil, models.ErrChatNotFound
	}
	copied := *c
	copied.Participants = s.participantsLocked(chatID)
	return &copied, nil
}

func (s *Store) participantsLocked(chatID int) []models.User {
	ids := s.participantIDsLocked(chatID)
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users
}

func (s *Store) participantIDsLocked(chatID int) []int {
	type member struct {
		id     int
		joined time.Time
	}
	var ms []member
	for id, joined := range s.members[chatID] {
		ms = append(ms, member{id, joined})
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].joined.Before(ms[j].joined) })

	ids := make([]int, len(ms))
	for i, m := range ms {
		ids[i] = m.id
	}
	return ids
}

func (s *Store) FindDirectChat(_ context.Context, userID, otherID int) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, c := range s.chats {
		if c.IsGroup {
			continue
		}
		if s.members[id][userID] != (time.Time{}) && s.members[id][otherID] != (time.Time{}) {
			return s.chatLocked(id)
		}
	}
	return nil, models.ErrChatNotFound
}

func (s *Store) ChatsByUser(_ context.Context, userID int) ([]models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chats []models.Chat
	for id := range s.chats {
		if _, ok := s.members[id][userID]; !ok {
			continue
		}
		c, err := s.chatLocked(id)
		if err != nil {
			return nil, err
		}
		if c.LastMessageID != nil {
			if m, ok := s.messages[*c.LastMessageID]; ok {
				copied := *m
				c.LastMessage = &copied
			}
		}
		chats = append(chats, *c)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt.After(chats[j].UpdatedAt) })
	return chats, nil
}

func (s *Store) IsParticipant(_ context.Context, chatID, userID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.members[chatID][userID]
	return ok, nil
}

func (s *Store) ParticipantIDs(_ context.Context, chatID int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantIDsLocked(chatID), nil
}

func (s *Store) AddParticipants(_ context.Context, chatID int, userIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return models.ErrChatNotFound
	}
	if s.members[chatID] == nil {
		s.members[chatID] = make(map[int]time.Time)
	}
	now := time.Now()
	for i, id := range userIDs {
		if _, ok := s.members[chatID][id]; !ok {
			s.members[chatID][id] = now.Add(time.Duration(i) * time.Microsecond)
		}
	}
	return nil
}

func (s *Store) RemoveParticipant(_ context.Context, chatID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members[chatID], userID)
	return nil
}

func (s *Store) SetChatAdmin(_ context.Context, chatID, adminID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return models.ErrChatNotFound
	}
	id := adminID
	c.AdminID = &id
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UpdateChatInfo(_ context.Context, chatID int, name, groupAvatar *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return models.ErrChatNotFound
	}
	if name != nil {
		c.Name = *name
	}
	if groupAvatar != nil {
		c.GroupAvatar = *groupAvatar
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Store) SetChatLastMessage(_ context.Context, chatID int, messageID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return models.ErrChatNotFound
	}
	c.LastMessageID = messageID
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteChat(_ context.Context, chatID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chats, chatID)
	delete(s.members, chatID)
	for id, m := range s.messages {
		if m.ChatID == chatID {
			delete(s.messages, id)
		}
	}
	return nil
}

// Message operations

func (s *Store) CreateMessage(_ context.Context, msg *models.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMessageID++
	msg.ID = s.nextMessageID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	copied := *msg
	copied.ReadBy = append([]models.ReadReceipt(nil), msg.ReadBy...)
	s.messages[msg.ID] = &copied
	return msg.ID, nil
}

func (s *Store) GetMessageByID(_ context.Context, messageID int) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, models.ErrMessageNotFound
	}
	copied := *m
	copied.ReadBy = append([]models.ReadReceipt(nil), m.ReadBy...)
	copied.Reactions = append([]models.Reaction(nil), m.Reactions...)
	return &copied, nil
}

func (s *Store) MessagesByChat(_ context.Context, chatID, offset, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.chatMessagesLocked(chatID)
	// Newest first, as the Postgres store returns them.
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := make([]models.Message, end-offset)
	copy(page, all[offset:end])
	return page, nil
}

func (s *Store) CountMessages(_ context.Context, chatID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chatMessagesLocked(chatID)), nil
}

func (s *Store) MarkMessagesRead(_ context.Context, chatID, userID int, readAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for _, m := range s.messages {
		if m.ChatID != chatID || m.ReadByUser(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, models.ReadReceipt{UserID: userID, ReadAt: readAt})
		marked++
	}
	return marked, nil
}

func (s *Store) UpdateMessageContent(_ context.Context, messageID int, content string, editedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return models.ErrMessageNotFound
	}
	m.Content = content
	at := editedAt
	m.EditedAt = &at
	return nil
}

func (s *Store) DeleteMessage(_ context.Context, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, messageID)
	return nil
}

func (s *Store) AddReaction(_ context.Context, messageID, userID int, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return models.ErrMessageNotFound
	}
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return nil
		}
	}
	m.Reactions = append(m.Reactions, models.Reaction{
		UserID:    userID,
		Emoji:     emoji,
		ReactedAt: time.Now(),
	})
	return nil
}

func (s *Store) RemoveReaction(_ context.Context, messageID, userID int, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return models.ErrMessageNotFound
	}
	kept := m.Reactions[:0]
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			continue
		}
		kept = append(kept, r)
	}
	m.Reactions = kept
	return nil
}

func (s *Store) ReactionsByMessage(_ context.Context, messageID int) ([]models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, models.ErrMessageNotFound
	}
	return append([]models.Reaction(nil), m.Reactions...), nil
}

func (s *Store) LatestMessageID(_ context.Context, chatID int) (*int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := 0
	for _, m := range s.messages {
		if m.ChatID == chatID && m.ID > latest {
			latest = m.ID
		}
	}
	if latest == 0 {
		return nil, nil
	}
	return &latest, nil
}

func (s *Store) chatMessagesLocked(chatID int) []models.Message {
	var msgs []models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			copied := *m
			copied.ReadBy = append([]models.ReadReceipt(nil), m.ReadBy...)
			copied.Reactions = append([]models.Reaction(nil), m.Reactions...)
			msgs = append(msgs, copied)
		}
	}
	return msgs
}
