package services

// Broadcaster is the realtime fan-out surface the services speak to. The
// websocket hub satisfies it; tests substitute a recorder. A zero target set
// is always a no-op, so services never need to check connectivity first.
type Broadcaster interface {
	ToUser(userID int, event string, data any)
	ToUsers(userIDs []int, exceptUserID int, event string, data any)
	ToChat(chatID, exceptUserID int, event string, data any)
}
