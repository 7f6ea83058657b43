package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"go.uber.org/zap"
)

// toggleReady flips the ready flag of the seat bound to the requesting connection.
// Crossing into all-ready records the match and starts the game.
func (h *Hub) toggleReady(msg ToggleReady) {
	var (
		toggled engine.Player
		crossed bool
		match   engine.Match
	)
	_, err := h.lobbies.Mutate(msg.LobbyID, func(l *engine.Lobby) error {
		p, allReady, err := engine.ToggleReady(l, msg.ConnID)
		if err != nil {
			return err
		}
		toggled, crossed = p, allReady
		if crossed {
			match = engine.NewMatch(l, h.clk.Now().UTC())
		}
		return nil
	})
	switch {
	case errors.Is(err, engine.ErrLobbyNotFound):
		h.unicastError(msg.ConnID, "Lobby not found")
		return
	case errors.Is(err, engine.ErrNotBound):
		h.unicastError(msg.ConnID, "Player not in lobby")
		return
	case err != nil:
		h.log.Error("toggle ready failed", zap.String("lobby_id", msg.LobbyID), zap.Error(err))
		return
	}

	h.notify(msg.LobbyID, engine.ReadyNotification(toggled), toggled)
	if !crossed {
		return
	}

	h.tasks.Go("record-match", func(ctx context.Context) error {
		return h.sink.RecordMatch(ctx, match)
	})
	h.conns.Multicast(msg.LobbyID, types.EventStartGame, types.StartGamePayload{LobbyID: msg.LobbyID})
	h.metrics.MatchesStarted.WithLabelValues(match.Game).Inc()
	h.log.Info("match started", zap.String("lobby_id", msg.LobbyID), zap.String("game", match.Game))
}
