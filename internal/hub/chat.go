package hub

import (
	"context"
	"strings"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"go.uber.org/zap"
)

func (h *Hub) sendLobbyMessage(msg SendLobbyMessage) {
	l, ok := h.lobbies.Get(msg.LobbyID)
	if !ok {
		h.unicastError(msg.ConnID, "Lobby not found")
		return
	}

	text, err := engine.NormalizeChatText(msg.Text, h.maxMessageLen)
	if err != nil {
		return
	}

	userID := strings.TrimSpace(msg.UserID)
	username := strings.TrimSpace(msg.Username)
	if p, bound := l.PlayerByConn(msg.ConnID); bound {
		if userID == "" {
			userID = p.UserID
		}
		if username == "" {
			username = p.Username
		}
	}
	if username == "" {
		username = engine.DefaultChatUsername
	}

	m := engine.ChatMessage{
		ID:        h.newID(),
		LobbyID:   msg.LobbyID,
		UserID:    userID,
		Username:  username,
		Text:      text,
		CreatedAt: h.clk.Now().UTC(),
	}
	if err := h.lobbies.AppendChat(msg.LobbyID, m); err != nil {
		h.log.Error("append chat failed", zap.String("lobby_id", msg.LobbyID), zap.Error(err))
		return
	}
	h.conns.Multicast(msg.LobbyID, types.EventLobbyMessage, m.Payload())
	h.metrics.ChatMessages.Inc()

	h.tasks.Go("record-chat-message", func(ctx context.Context) error {
		return h.sink.RecordChatMessage(ctx, m)
	})
}
