package hub

import (
	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"go.uber.org/zap"
)

func (h *Hub) connect(msg Connect) {
	h.conns.Register(msg.ConnID, msg.Outbox)
	h.metrics.Connections.Set(float64(h.conns.Len()))
	h.conns.Unicast(msg.ConnID, types.EventQueueUpdate, h.queueStats())
}

func (h *Hub) joinQueue(msg JoinQueue) {
	selected, err := h.queue.Admit(engine.QueueEntry{
		ConnID:   msg.ConnID,
		UserID:   msg.UserID,
		Username: msg.Username,
		Game:     msg.Game,
	})
	if err != nil {
		h.log.Debug("queue entry rejected", zap.String("conn_id", msg.ConnID), zap.Error(err))
		return
	}
	h.publishQueue()

	if selected == nil {
		return
	}
	h.formLobby(selected)
	h.publishQueue()
}

func (h *Hub) leaveQueue(connID string) {
	h.queue.Remove(connID)
	h.publishQueue()
}

// formLobby registers a lobby for the selected entries, subscribes their
// connections to its group and tells each of them privately before the group update.
func (h *Hub) formLobby(selected []engine.QueueEntry) {
	l, err := engine.FormLobby(h.newID(), selected, h.clk.Now().UTC())
	if err != nil {
		h.log.Error("lobby formation failed", zap.Int("entries", len(selected)), zap.Error(err))
		return
	}
	h.lobbies.Register(l)

	snap := l.Snapshot()
	for _, p := range l.Players {
		if h.conns.Subscribe(l.ID, p.ConnID) {
			h.conns.Unicast(p.ConnID, types.EventLobbyCreated, snap)
		}
	}
	h.conns.Multicast(l.ID, types.EventLobbyState, snap)

	h.metrics.LobbiesFormed.WithLabelValues(l.Game).Inc()
	h.metrics.LobbiesActive.Set(float64(h.lobbies.Len()))
	h.log.Info("lobby formed", zap.String("lobby_id", l.ID), zap.String("game", l.Game))
}

func (h *Hub) publishQueue() {
	stats := h.queueStats()
	h.conns.All(types.EventQueueUpdate, stats)
	h.metrics.SetQueue(stats.ByGame)
}

func (h *Hub) queueStats() types.QueueUpdatePayload {
	n, byGame := h.queue.CountsByMode()
	return types.QueueUpdatePayload{Length: n, ByGame: byGame}
}
