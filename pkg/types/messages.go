package types

import "time"

// Client -> Server
const (
	EventJoinQueue        = "joinQueue"
	EventLeaveQueue       = "leaveQueue"
	EventJoinLobby        = "joinLobby"
	EventToggleReady      = "toggleReady"
	EventSendLobbyMessage = "sendLobbyMessage"
)

// Server -> Client
const (
	EventQueueUpdate       = "queueUpdate"
	EventLobbyCreated      = "lobbyCreated"
	EventLobbyState        = "lobbyState"
	EventLobbyChatHistory  = "lobbyChatHistory"
	EventLobbyNotification = "lobbyNotification"
	EventLobbyMessage      = "lobbyMessage"
	EventLobbyEvicted      = "lobbyEvicted"
	EventStartGame         = "startGame"
	EventErrorMessage      = "errorMessage"
)

// JoinQueue:
//   userId: string
//   username: string
//   game: string (empty -> server default)
type JoinQueuePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Game     string `json:"game"`
}

type JoinLobbyPayload struct {
	LobbyID  string `json:"lobbyId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type ToggleReadyPayload struct {
	LobbyID string `json:"lobbyId"`
}

type SendLobbyMessagePayload struct {
	LobbyID  string `json:"lobbyId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

// QueueUpdate:
//   length: total entries waiting
//   byGame: { [game]: count }
type QueueUpdatePayload struct {
	Length int            `json:"length"`
	ByGame map[string]int `json:"byGame"`
}

type ChatMessagePayload struct {
	ID        string    `json:"id"`
	LobbyID   string    `json:"lobbyId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatHistoryPayload struct {
	LobbyID  string               `json:"lobbyId"`
	Messages []ChatMessagePayload `json:"messages"`
}

// Notification type: "join" | "leave" | "ready" | "unready"
type NotificationPayload struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type StartGamePayload struct {
	LobbyID string `json:"lobbyId"`
}

// LobbyEvicted is sent to a connection whose lobby seat was taken over by a newer
// connection of the same user.
type LobbyEvictedPayload struct {
	LobbyID string `json:"lobbyId"`
	Reason  string `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
