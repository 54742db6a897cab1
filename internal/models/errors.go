package models

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrRequestNotFound = errors.New("friend request not found")

	ErrNotParticipant = errors.New("user is not a participant")
	ErrNotAdmin       = errors.New("only the group admin may do this")
	ErrNotSender      = errors.New("only the sender may modify a message")

	ErrAlreadyFriends   = errors.New("already friends")
	ErrDuplicateRequest = errors.New("friend request already sent")
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrUserExists       = errors.New("user with this email or username already exists")

	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmptyContent      = errors.New("message content is required")
	ErrGroupNameRequired = errors.New("group name is required")
	ErrNotGroup          = errors.New("chat is not a group")
	ErrAlreadyMember     = errors.New("all users are already group members")
	ErrRemoveAdmin       = errors.New("cannot remove the group admin")
)
