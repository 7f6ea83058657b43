package lobby

import (
	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/pkg/types"
)

// Hooks let the owner react to store changes. Publish receives the snapshot taken
// right after a successful mutation; Destroyed fires when a lobby leaves the store.
type Hooks struct {
	Publish   func(snap types.LobbySnapshot)
	Destroyed func(lobbyID string)
}

type entry struct {
	lobby engine.Lobby
	chat  *engine.ChatBuffer
}

// Store is the only writer of Lobby and Player state. It is not safe for concurrent
// use; the hub loop owns it.
type Store struct {
	lobbies     map[string]*entry
	chatHistory int
	hooks       Hooks
}

func NewStore(chatHistory int, hooks Hooks) *Store {
	return &Store{
		lobbies:     make(map[string]*entry),
		chatHistory: chatHistory,
		hooks:       hooks,
	}
}

// Get returns a copy of the lobby.
func (s *Store) Get(id string) (engine.Lobby, bool) {
	e, ok := s.lobbies[id]
	if !ok {
		return engine.Lobby{}, false
	}
	return e.lobby.Clone(), true
}

func (s *Store) Snapshot(id string) (types.LobbySnapshot, bool) {
	e, ok := s.lobbies[id]
	if !ok {
		return types.LobbySnapshot{}, false
	}
	return e.lobby.Snapshot(), true
}

func (s *Store) Register(l engine.Lobby) {
	s.lobbies[l.ID] = &entry{
		lobby: l.Clone(),
		chat:  engine.NewChatBuffer(s.chatHistory),
	}
}

// Mutate applies fn to the stored lobby. If fn fails nothing is published. If the
// lobby has no players left afterwards it is destroyed instead of published.
// Otherwise the post-mutation snapshot is published and returned.
func (s *Store) Mutate(id string, fn func(l *engine.Lobby) error) (types.LobbySnapshot, error) {
	e, ok := s.lobbies[id]
	if !ok {
		return types.LobbySnapshot{}, engine.ErrLobbyNotFound
	}
	if err := fn(&e.lobby); err != nil {
		return types.LobbySnapshot{}, err
	}

	snap := e.lobby.Snapshot()
	if len(e.lobby.Players) == 0 {
		s.Remove(id)
		return snap, nil
	}
	if s.hooks.Publish != nil {
		s.hooks.Publish(snap)
	}
	return snap, nil
}

func (s *Store) Remove(id string) bool {
	if _, ok := s.lobbies[id]; !ok {
		return false
	}
	delete(s.lobbies, id)
	if s.hooks.Destroyed != nil {
		s.hooks.Destroyed(id)
	}
	return true
}

// AppendChat adds m to the lobby's chat ring.
func (s *Store) AppendChat(id string, m engine.ChatMessage) error {
	e, ok := s.lobbies[id]
	if !ok {
		return engine.ErrLobbyNotFound
	}
	e.chat.Append(m)
	return nil
}

func (s *Store) ChatHistory(id string) ([]engine.ChatMessage, error) {
	e, ok := s.lobbies[id]
	if !ok {
		return nil, engine.ErrLobbyNotFound
	}
	return e.chat.Messages(), nil
}

// Membership is a player seat located by connection id.
type Membership struct {
	LobbyID string
	Player  engine.Player
}

// FindByConn returns every seat currently bound to connID.
func (s *Store) FindByConn(connID string) []Membership {
	var out []Membership
	for id, e := range s.lobbies {
		if p, ok := e.lobby.PlayerByConn(connID); ok {
			out = append(out, Membership{LobbyID: id, Player: *p})
		}
	}
	return out
}

// FindByUser returns every seat held by userID, bound or not.
func (s *Store) FindByUser(userID string) []Membership {
	var out []Membership
	for id, e := range s.lobbies {
		if p, ok := e.lobby.PlayerByUser(userID); ok {
			out = append(out, Membership{LobbyID: id, Player: *p})
		}
	}
	return out
}

func (s *Store) Has(id string) bool {
	_, ok := s.lobbies[id]
	return ok
}

func (s *Store) Len() int { return len(s.lobbies) }

// Close drops every lobby without firing hooks.
func (s *Store) Close() {
	clear(s.lobbies)
}
