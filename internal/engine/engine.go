package engine

import (
	"errors"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/pkg/types"
)

var ErrInvalidEntry = errors.New("invalid queue entry")
var ErrInvalidLobbySize = errors.New("lobby size must be even and at least 2")
var ErrLobbyNotFound = errors.New("lobby not found")
var ErrNotMember = errors.New("player not in lobby")
var ErrNotBound = errors.New("connection not bound to a player in lobby")
var ErrEmptyMessage = errors.New("empty message")

const (
	DefaultLobbySize      = 10
	DefaultChatHistory    = 60
	DefaultMaxMessageLen  = 500
	DefaultGame           = "default"
	DefaultChatUsername   = "Player"
	DefaultDisconnectSecs = 30
)

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

type NotificationType string

const (
	NotifyJoin    NotificationType = "join"
	NotifyLeave   NotificationType = "leave"
	NotifyReady   NotificationType = "ready"
	NotifyUnready NotificationType = "unready"
)

type QueueEntry struct {
	ConnID   string
	UserID   string
	Username string
	Game     string
}

// Player only exists inside a Lobby. An empty ConnID means the player is unbound.
type Player struct {
	ConnID   string
	UserID   string
	Username string
	Team     Team
	Ready    bool
}

func (p Player) Bound() bool { return p.ConnID != "" }

type Lobby struct {
	ID        string
	Game      string
	Players   []Player
	CreatedAt time.Time
}

type ChatMessage struct {
	ID        string
	LobbyID   string
	UserID    string
	Username  string
	Text      string
	CreatedAt time.Time
}

type MatchPlayer struct {
	UserID   string
	Username string
	Team     Team
}

// Match is built once at the all-ready transition and never mutated afterwards.
type Match struct {
	LobbyID   string
	Game      string
	StartedAt time.Time
	Players   []MatchPlayer
}

func (l *Lobby) PlayerByUser(userID string) (*Player, bool) {
	for i := range l.Players {
		if l.Players[i].UserID == userID {
			return &l.Players[i], true
		}
	}
	return nil, false
}

func (l *Lobby) PlayerByConn(connID string) (*Player, bool) {
	if connID == "" {
		return nil, false
	}
	for i := range l.Players {
		if l.Players[i].ConnID == connID {
			return &l.Players[i], true
		}
	}
	return nil, false
}

// RemovePlayer drops userID from the lobby, keeping the order of the rest.
func (l *Lobby) RemovePlayer(userID string) bool {
	for i := range l.Players {
		if l.Players[i].UserID == userID {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Lobby) Snapshot() types.LobbySnapshot {
	players := make([]types.PlayerSnapshot, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, types.PlayerSnapshot{
			UserID:   p.UserID,
			Username: p.Username,
			Team:     string(p.Team),
			Ready:    p.Ready,
		})
	}
	return types.LobbySnapshot{
		ID:        l.ID,
		Game:      l.Game,
		Players:   players,
		CreatedAt: l.CreatedAt,
	}
}

func (l *Lobby) Clone() Lobby {
	c := *l
	c.Players = append([]Player(nil), l.Players...)
	return c
}

func (m ChatMessage) Payload() types.ChatMessagePayload {
	return types.ChatMessagePayload{
		ID:        m.ID,
		LobbyID:   m.LobbyID,
		UserID:    m.UserID,
		Username:  m.Username,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
