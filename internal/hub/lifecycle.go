package hub

import (
	"context"
	"errors"
	"strings"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/internal/lifecycle"
	"github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"go.uber.org/zap"
)

var errSeatKept = errors.New("seat rebound or already gone")

const evictedReason = "signed in from another connection"

// joinLobby binds the requesting connection to an existing seat. Seats are only
// ever created at formation time.
func (h *Hub) joinLobby(msg JoinLobby) {
	if msg.LobbyID == "" || msg.UserID == "" {
		h.unicastError(msg.ConnID, "lobbyId and userId are required")
		return
	}
	l, ok := h.lobbies.Get(msg.LobbyID)
	if !ok {
		h.unicastError(msg.ConnID, "Lobby not found")
		return
	}
	seat, ok := l.PlayerByUser(msg.UserID)
	if !ok {
		h.unicastError(msg.ConnID, "Player not in lobby")
		return
	}

	if !seat.Bound() {
		h.metrics.Reconnects.Inc()
	}
	// The user's single timer also covers seats left unbound in other lobbies; it
	// stays armed until none remain. The fire skips seats that are bound again.
	if !h.holdsUnboundSeatElsewhere(msg.UserID, msg.LobbyID) {
		h.timers.Cancel(msg.UserID)
	}

	// A newer connection takes the seat; the old one is told and leaves the group.
	if seat.Bound() && seat.ConnID != msg.ConnID {
		h.conns.Unsubscribe(msg.LobbyID, seat.ConnID)
		h.conns.Unicast(seat.ConnID, types.EventLobbyEvicted, types.LobbyEvictedPayload{
			LobbyID: msg.LobbyID,
			Reason:  evictedReason,
		})
		h.log.Info("seat taken over",
			zap.String("lobby_id", msg.LobbyID),
			zap.String("user_id", msg.UserID),
			zap.String("old_conn_id", seat.ConnID),
			zap.String("conn_id", msg.ConnID))
	}

	// Re-subscribe after the group update so the requester gets exactly one state.
	h.conns.Unsubscribe(msg.LobbyID, msg.ConnID)

	var bound engine.Player
	snap, err := h.lobbies.Mutate(msg.LobbyID, func(l *engine.Lobby) error {
		p, ok := l.PlayerByUser(msg.UserID)
		if !ok {
			return engine.ErrNotMember
		}
		p.ConnID = msg.ConnID
		if name := strings.TrimSpace(msg.Username); name != "" {
			p.Username = name
		}
		bound = *p
		return nil
	})
	if err != nil {
		h.unicastError(msg.ConnID, "Player not in lobby")
		return
	}

	h.conns.Subscribe(msg.LobbyID, msg.ConnID)
	h.conns.Unicast(msg.ConnID, types.EventLobbyState, snap)
	h.notify(msg.LobbyID, engine.NotifyJoin, bound)

	history, _ := h.lobbies.ChatHistory(msg.LobbyID)
	messages := make([]types.ChatMessagePayload, 0, len(history))
	for _, m := range history {
		messages = append(messages, m.Payload())
	}
	h.conns.Unicast(msg.ConnID, types.EventLobbyChatHistory, types.ChatHistoryPayload{
		LobbyID:  msg.LobbyID,
		Messages: messages,
	})

	username, enteredAt := bound.Username, h.clk.Now().UTC()
	h.tasks.Go("record-lobby-entry", func(ctx context.Context) error {
		return h.sink.RecordLobbyEntry(ctx, username, enteredAt)
	})
}

// disconnect drops the connection from the queue, unbinds every seat it holds and
// starts the grace window for those users.
func (h *Hub) disconnect(connID string) {
	h.conns.Unregister(connID)
	h.metrics.Connections.Set(float64(h.conns.Len()))
	h.queue.Remove(connID)

	for _, seat := range h.lobbies.FindByConn(connID) {
		_, err := h.lobbies.Mutate(seat.LobbyID, func(l *engine.Lobby) error {
			p, ok := l.PlayerByConn(connID)
			if !ok {
				return engine.ErrNotBound
			}
			p.ConnID = ""
			return nil
		})
		if err != nil {
			continue
		}
		h.notify(seat.LobbyID, engine.NotifyLeave, seat.Player)
		h.timers.Schedule(seat.Player.UserID, seat.LobbyID, h.deliverRemoval)
		h.log.Debug("seat unbound",
			zap.String("lobby_id", seat.LobbyID),
			zap.String("user_id", seat.Player.UserID))
	}

	h.publishQueue()
}

// deliverRemoval runs on the timer goroutine.
func (h *Hub) deliverRemoval(f lifecycle.Fire) {
	h.Send(removalDue{fire: f})
}

// removeExpired drops every seat of the user that is still unbound. The user's timer
// is the only one outstanding and was armed by the latest unbind, so each such seat
// has been unbound for at least the grace window.
func (h *Hub) removeExpired(f lifecycle.Fire) {
	if !h.timers.Claim(f) {
		return
	}
	for _, seat := range h.lobbies.FindByUser(f.UserID) {
		if seat.Player.Bound() {
			continue
		}
		_, err := h.lobbies.Mutate(seat.LobbyID, func(l *engine.Lobby) error {
			p, ok := l.PlayerByUser(f.UserID)
			if !ok || p.Bound() {
				return errSeatKept
			}
			l.RemovePlayer(f.UserID)
			return nil
		})
		if err != nil {
			continue
		}
		h.metrics.PlayersRemoved.Inc()
		h.log.Info("player removed after grace window",
			zap.String("lobby_id", seat.LobbyID),
			zap.String("user_id", f.UserID))
	}
}

func (h *Hub) holdsUnboundSeatElsewhere(userID, lobbyID string) bool {
	for _, seat := range h.lobbies.FindByUser(userID) {
		if seat.LobbyID != lobbyID && !seat.Player.Bound() {
			return true
		}
	}
	return false
}
