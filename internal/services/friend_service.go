package services

import (
	"context"
	"log"

	"ChatWave/server/internal/models"
	"ChatWave/server/internal/realtime"
	"ChatWave/server/internal/storage"
)

type FriendService struct {
	store       storage.Store
	broadcaster Broadcaster
}

func NewFriendService(store storage.Store, broadcaster Broadcaster) *FriendService {
	return &FriendService{
		store:       store,
		broadcaster: broadcaster,
	}
}

// SendRequest creates a pending friend request from fromID to toID and
// notifies the target. Self-requests, duplicates, and requests between
// existing friends are rejected.
func (fs *FriendService) SendRequest(ctx context.Context, fromID, toID int) (*models.FriendRequest, error) {
	if fromID == toID {
		return nil, models.ErrSelfRequest
	}

	if _, err := fs.store.GetUserByID(ctx, toID); err != nil {
		return nil, err
	}

	alreadyFriends, err := fs.store.AreFriends(ctx, fromID, toID)
	if err != nil {
		log.Printf("Error checking friendship %d/%d: %v", fromID, toID, err)
		return nil, err
	}
	if alreadyFriends {
		return nil, models.ErrAlreadyFriends
	}

	pending, err := fs.store.PendingRequestExists(ctx, toID, fromID)
	if err != nil {
		log.Printf("Error checking pending request %d->%d: %v", fromID, toID, err)
		return nil, err
	}
	if pending {
		return nil, models.ErrDuplicateRequest
	}

	requestID, err := fs.store.CreateFriendRequest(ctx, toID, fromID)
	if err != nil {
		log.Printf("Error creating friend request %d->%d: %v", fromID, toID, err)
		return nil, err
	}

	request, err := fs.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	fs.broadcaster.ToUser(toID, realtime.EventFriendRequest, request)

	log.Printf("Friend request %d sent: %d -> %d", requestID, fromID, toID)
	return request, nil
}

// AcceptRequest turns a pending request addressed to userID into a mutual
// friendship and notifies the requester. The request row is consumed.
func (fs *FriendService) AcceptRequest(ctx context.Context, requestID, userID int) (*models.User, error) {
	request, err := fs.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.UserID != userID {
		return nil, models.ErrRequestNotFound
	}

	if err := fs.store.AddFriendEdge(ctx, userID, request.FromID); err != nil {
		log.Printf("Error adding friend edge %d<->%d: %v", userID, request.FromID, err)
		return nil, err
	}

	if err := fs.store.DeleteFriendRequest(ctx, requestID); err != nil {
		log.Printf("Error deleting friend request %d: %v", requestID, err)
	}

	accepter, err := fs.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fs.broadcaster.ToUser(request.FromID, realtime.EventFriendAccepted, accepter)

	friend, err := fs.store.GetUserByID(ctx, request.FromID)
	if err != nil {
		return nil, err
	}

	log.Printf("Friend request %d accepted: %d <-> %d", requestID, userID, request.FromID)
	return friend, nil
}

// DeclineRequest removes a pending request addressed to userID without
// creating a friendship. The requester is not notified.
func (fs *FriendService) DeclineRequest(ctx context.Context, requestID, userID int) error {
	request, err := fs.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.UserID != userID {
		return models.ErrRequestNotFound
	}

	return fs.store.DeleteFriendRequest(ctx, requestID)
}

// RemoveFriend deletes the friendship in both directions. Existing chats
// are untouched.
func (fs *FriendService) RemoveFriend(ctx context.Context, userID, friendID int) error {
	alreadyFriends, err := fs.store.AreFriends(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if !alreadyFriends {
		return models.ErrUserNotFound
	}

	if err := fs.store.RemoveFriendEdge(ctx, userID, friendID); err != nil {
		log.Printf("Error removing friend edge %d<->%d: %v", userID, friendID, err)
		return err
	}

	fs.broadcaster.ToUser(friendID, realtime.EventFriendRemoved, map[string]any{
		"user_id": userID,
	})
	return nil
}

func (fs *FriendService) ListFriends(ctx context.Context, userID int) ([]models.User, error) {
	return fs.store.ListFriends(ctx, userID)
}

func (fs *FriendService) ListRequests(ctx context.Context, userID int) ([]models.FriendRequest, error) {
	return fs.store.ListFriendRequests(ctx, userID)
}
