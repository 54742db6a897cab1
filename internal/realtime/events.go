package realtime

// Server -> client events.
const (
	EventConnected           = "connected"
	EventNewMessage          = "new-message"
	EventMessageEdited       = "message-edited"
	EventMessageDeleted      = "message-deleted"
	EventMessagesRead        = "messages-read"
	EventMessageReaction     = "message-reaction"
	EventMessageDelivered    = "message-delivery-confirmed"
	EventFileShared          = "file-shared"
	EventNewChat             = "new-chat"
	EventUserTyping          = "user-typing"
	EventUserStoppedTyping   = "user-stopped-typing"
	EventTypingDirect        = "user-typing-direct"
	EventStoppedTypingDirect = "user-stopped-typing-direct"
	EventUserStatusChanged   = "user-status-changed"
	EventUserJoinedChat      = "user-joined-chat"
	EventUserLeftChat        = "user-left-chat"
	EventGroupMembersAdded   = "group-members-added"
	EventGroupMemberRemoved  = "group-member-removed"
	EventRemovedFromGroup    = "removed-from-group"
	EventUserLeftGroup       = "user-left-group"
	EventGroupInfoUpdated    = "group-info-updated"
	EventFriendRequest       = "friend-request"
	EventFriendAccepted      = "friend-request-accepted"
	EventFriendRemoved       = "friend-removed"
	EventIncomingCall        = "incoming-call"
	EventCallAnswered        = "call-answered"
	EventCallRejected        = "call-rejected"
	EventICECandidate        = "ice-candidate"
)

// Client -> server events.
const (
	actionJoinChat         = "join-chat"
	actionLeaveChat        = "leave-chat"
	actionStartTyping      = "start-typing"
	actionStopTyping       = "stop-typing"
	actionTypingDirect     = "typing-direct"
	actionStopTypingDirect = "stop-typing-direct"
	actionActivity         = "activity"
	actionMessageDelivered = "message-delivered"
	actionFileShared       = "file-shared"
	actionCallUser         = "call-user"
	actionAnswerCall       = "answer-call"
	actionRejectCall       = "reject-call"
	actionICECandidate     = "ice-candidate"
)

// envelope is the wire frame for every server -> client event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// clientEvent is the wire frame for every client -> server event. Fields
// beyond Event are optional and depend on the event kind.
type clientEvent struct {
	Event        string `json:"event"`
	ChatID       int    `json:"chat_id,omitempty"`
	TargetUserID int    `json:"target_user_id,omitempty"`
	MessageID    int    `json:"message_id,omitempty"`
	Payload      any    `json:"payload,omitempty"`
}
