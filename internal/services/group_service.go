package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/realtime"
	"ChatWave/server/internal/storage"
)

// GroupService handles membership and metadata of group chats. It leans on
// the chat service for the system messages that narrate membership changes.
type GroupService struct {
	store       storage.Store
	broadcaster Broadcaster
	chats       *ChatService
}

func NewGroupService(store storage.Store, broadcaster Broadcaster, chats *ChatService) *GroupService {
	return &GroupService{
		store:       store,
		broadcaster: broadcaster,
		chats:       chats,
	}
}

// AddMembers lets the group admin add users. IDs that are already members
// are skipped; if everyone is already in, the call fails.
func (gs *GroupService) AddMembers(ctx context.Context, chatID, adminID int, userIDs []int) (*models.Chat, error) {
	if _, err := gs.requireAdmin(ctx, chatID, adminID); err != nil {
		return nil, err
	}

	var added []int
	var names []string
	for _, id := range userIDs {
		isMember, err := gs.store.IsParticipant(ctx, chatID, id)
		if err != nil {
			return nil, err
		}
		if isMember {
			continue
		}
		user, err := gs.store.GetUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		added = append(added, id)
		names = append(names, user.Username)
	}
	if len(added) == 0 {
		return nil, models.ErrAlreadyMember
	}

	if err := gs.store.AddParticipants(ctx, chatID, added); err != nil {
		log.Printf("Error adding members to chat %d: %v", chatID, err)
		return nil, err
	}

	updated, err := gs.store.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	gs.broadcaster.ToUsers(added, 0, realtime.EventNewChat, updated)
	gs.fanOut(ctx, chatID, 0, realtime.EventGroupMembersAdded, map[string]any{
		"chat_id":  chatID,
		"user_ids": added,
	})
	gs.chats.SendSystemMessage(ctx, chatID, adminID, fmt.Sprintf("%s joined the group", strings.Join(names, ", ")))

	log.Printf("Added %d member(s) to chat %d", len(added), chatID)
	return updated, nil
}

// RemoveMember lets the group admin remove a member. The admin cannot
// remove themselves; leaving is the way out.
func (gs *GroupService) RemoveMember(ctx context.Context, chatID, adminID, userID int) error {
	chat, err := gs.requireAdmin(ctx, chatID, adminID)
	if err != nil {
		return err
	}
	if userID == adminID {
		return models.ErrRemoveAdmin
	}

	isMember, err := gs.store.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return models.ErrNotParticipant
	}

	removed, err := gs.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := gs.store.RemoveParticipant(ctx, chatID, userID); err != nil {
		log.Printf("Error removing member %d from chat %d: %v", userID, chatID, err)
		return err
	}

	gs.broadcaster.ToUser(userID, realtime.EventRemovedFromGroup, map[string]any{
		"chat_id":   chatID,
		"chat_name": chat.Name,
	})
	gs.fanOut(ctx, chatID, 0, realtime.EventGroupMemberRemoved, map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	})
	gs.chats.SendSystemMessage(ctx, chatID, adminID, fmt.Sprintf("%s was removed from the group", removed.Username))

	return nil
}

// Leave removes the caller from the group. When the admin leaves, the
// longest-standing remaining member inherits the role; when the last member
// leaves, the chat and its history are deleted.
func (gs *GroupService) Leave(ctx context.Context, chatID, userID int) error {
	chat, err := gs.store.GetChatByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		return models.ErrNotGroup
	}

	isMember, err := gs.store.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return models.ErrNotParticipant
	}

	leaver, err := gs.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := gs.store.RemoveParticipant(ctx, chatID, userID); err != nil {
		log.Printf("Error removing member %d from chat %d: %v", userID, chatID, err)
		return err
	}

	remaining, err := gs.store.ParticipantIDs(ctx, chatID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		log.Printf("Last member left chat %d, deleting it", chatID)
		return gs.store.DeleteChat(ctx, chatID)
	}

	if chat.AdminID != nil && *chat.AdminID == userID {
		// ParticipantIDs preserves join order, so the first remaining
		// member is the longest-standing one.
		newAdmin := remaining[0]
		if err := gs.store.SetChatAdmin(ctx, chatID, newAdmin); err != nil {
			log.Printf("Error transferring admin of chat %d to %d: %v", chatID, newAdmin, err)
			return err
		}
		log.Printf("Admin of chat %d transferred to user %d", chatID, newAdmin)
	}

	gs.fanOut(ctx, chatID, 0, realtime.EventUserLeftGroup, map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	})
	gs.chats.SendSystemMessage(ctx, chatID, userID, fmt.Sprintf("%s left the group", leaver.Username))

	return nil
}

// UpdateInfo lets the group admin rename the group or change its avatar.
func (gs *GroupService) UpdateInfo(ctx context.Context, chatID, adminID int, name, groupAvatar *string) (*models.Chat, error) {
	if _, err := gs.requireAdmin(ctx, chatID, adminID); err != nil {
		return nil, err
	}

	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, models.ErrGroupNameRequired
	}

	if err := gs.store.UpdateChatInfo(ctx, chatID, name, groupAvatar); err != nil {
		log.Printf("Error updating info of chat %d: %v", chatID, err)
		return nil, err
	}

	updated, err := gs.store.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	gs.fanOut(ctx, chatID, adminID, realtime.EventGroupInfoUpdated, updated)
	return updated, nil
}

func (gs *GroupService) requireAdmin(ctx context.Context, chatID, userID int) (*models.Chat, error) {
	chat, err := gs.store.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, models.ErrNotGroup
	}
	if chat.AdminID == nil || *chat.AdminID != userID {
		return nil, models.ErrNotAdmin
	}
	return chat, nil
}

func (gs *GroupService) fanOut(ctx context.Context, chatID, exceptUserID int, event string, data any) {
	participantIDs, err := gs.store.ParticipantIDs(ctx, chatID)
	if err != nil {
		log.Printf("Error fetching participants of chat %d for %s: %v", chatID, event, err)
		return
	}
	gs.broadcaster.ToUsers(participantIDs, exceptUserID, event, data)
}
