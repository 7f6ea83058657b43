package hub

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/broadcast"
	"github.com/DoyleJ11/matchqueue-backend/internal/detach"
	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/internal/lifecycle"
	"github.com/DoyleJ11/matchqueue-backend/internal/lobby"
	"github.com/DoyleJ11/matchqueue-backend/internal/metrics"
	"github.com/DoyleJ11/matchqueue-backend/internal/store"
	"github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type Connect struct {
	ConnID string
	Outbox broadcast.Outbox // where this connection receives server events
}

type Disconnect struct{ ConnID string }

type JoinQueue struct {
	ConnID   string
	UserID   string
	Username string
	Game     string
}

type LeaveQueue struct{ ConnID string }

type JoinLobby struct {
	ConnID   string
	LobbyID  string
	UserID   string
	Username string
}

type ToggleReady struct {
	ConnID  string
	LobbyID string
}

type SendLobbyMessage struct {
	ConnID   string
	LobbyID  string
	UserID   string
	Username string
	Text     string
}

// Queries are unexported so that every reply channel is created by Lobby or
// QueueStats with room for the answer; the loop never blocks on a reply.
type lobbyView struct {
	lobby types.LobbySnapshot
	found bool
}

type getLobby struct {
	lobbyID string
	reply   chan lobbyView
}

type getQueueStats struct {
	reply chan types.QueueUpdatePayload
}

type ShutdownHub struct{}

// removalDue is posted by a disconnect timer when the grace window elapses.
type removalDue struct{ fire lifecycle.Fire }

func (Connect) isHubMsg()          {}
func (Disconnect) isHubMsg()       {}
func (JoinQueue) isHubMsg()        {}
func (LeaveQueue) isHubMsg()       {}
func (JoinLobby) isHubMsg()        {}
func (ToggleReady) isHubMsg()      {}
func (SendLobbyMessage) isHubMsg() {}
func (getLobby) isHubMsg()         {}
func (getQueueStats) isHubMsg()    {}
func (ShutdownHub) isHubMsg()      {}
func (removalDue) isHubMsg()       {}

type Options struct {
	LobbySize        int
	DisconnectGrace  time.Duration
	ChatHistory      int
	MaxMessageLength int
	DefaultGame      string

	Clock   clock.Clock
	Sink    store.Sink
	Tasks   *detach.Runner
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	NewID   func() string
}

// Hub owns the queue, the lobby registry, the connection registry and the removal
// timers. Every inbound event runs to completion on the loop goroutine, so none of
// that state needs a lock.
type Hub struct {
	inbox  chan HubMsg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	queue   *engine.Queue
	lobbies *lobby.Store
	conns   *broadcast.Broadcaster
	timers  *lifecycle.Manager

	clk           clock.Clock
	sink          store.Sink
	tasks         *detach.Runner
	metrics       *metrics.Metrics
	log           *zap.Logger
	newID         func() string
	maxMessageLen int
}

func NewHub(parent context.Context, opts Options) (*Hub, error) {
	if opts.LobbySize == 0 {
		opts.LobbySize = engine.DefaultLobbySize
	}
	if opts.DisconnectGrace <= 0 {
		opts.DisconnectGrace = engine.DefaultDisconnectSecs * time.Second
	}
	if opts.ChatHistory <= 0 {
		opts.ChatHistory = engine.DefaultChatHistory
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = engine.DefaultMaxMessageLen
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Sink == nil {
		opts.Sink = store.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Tasks == nil {
		opts.Tasks = detach.NewRunner(opts.Logger.Named("detach"), detach.Options{MaxInFlight: 8})
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	q, err := engine.NewQueue(opts.LobbySize, opts.DefaultGame)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:         make(chan HubMsg, 256),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		queue:         q,
		timers:        lifecycle.NewManager(opts.Clock, opts.DisconnectGrace),
		clk:           opts.Clock,
		sink:          opts.Sink,
		tasks:         opts.Tasks,
		metrics:       opts.Metrics,
		log:           opts.Logger.Named("hub"),
		newID:         opts.NewID,
		maxMessageLen: opts.MaxMessageLength,
	}
	h.conns = broadcast.New(func(connID string) {
		h.metrics.SlowClientDrops.Inc()
		h.log.Info("dropped slow connection", zap.String("conn_id", connID))
	})
	h.lobbies = lobby.NewStore(opts.ChatHistory, lobby.Hooks{
		Publish: func(snap types.LobbySnapshot) {
			h.conns.Multicast(snap.ID, types.EventLobbyState, snap)
		},
		Destroyed: func(lobbyID string) {
			h.conns.CloseGroup(lobbyID)
			h.metrics.LobbiesActive.Set(float64(h.lobbies.Len()))
			h.log.Info("lobby destroyed", zap.String("lobby_id", lobbyID))
		},
	})

	go h.loop()
	return h, nil
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Send posts msg to the loop. It reports false once the hub has stopped.
func (h *Hub) Send(msg HubMsg) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- msg:
		return true
	case <-h.done:
		return false
	}
}

// Done is closed when the loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Close stops the loop and waits for it to finish.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}

func (h *Hub) Lobby(ctx context.Context, lobbyID string) (types.LobbySnapshot, bool, error) {
	reply := make(chan lobbyView, 1)
	if !h.Send(getLobby{lobbyID: lobbyID, reply: reply}) {
		return types.LobbySnapshot{}, false, ErrHubClosed
	}
	select {
	case v := <-reply:
		return v.lobby, v.found, nil
	case <-h.done:
		return types.LobbySnapshot{}, false, ErrHubClosed
	case <-ctx.Done():
		return types.LobbySnapshot{}, false, ctx.Err()
	}
}

func (h *Hub) QueueStats(ctx context.Context) (types.QueueUpdatePayload, error) {
	reply := make(chan types.QueueUpdatePayload, 1)
	if !h.Send(getQueueStats{reply: reply}) {
		return types.QueueUpdatePayload{}, ErrHubClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return types.QueueUpdatePayload{}, ErrHubClosed
	case <-ctx.Done():
		return types.QueueUpdatePayload{}, ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				h.connect(msg)
			case Disconnect:
				h.disconnect(msg.ConnID)
			case JoinQueue:
				h.joinQueue(msg)
			case LeaveQueue:
				h.leaveQueue(msg.ConnID)
			case JoinLobby:
				h.joinLobby(msg)
			case ToggleReady:
				h.toggleReady(msg)
			case SendLobbyMessage:
				h.sendLobbyMessage(msg)
			case removalDue:
				h.removeExpired(msg.fire)

			case getLobby:
				snap, ok := h.lobbies.Snapshot(msg.lobbyID)
				msg.reply <- lobbyView{lobby: snap, found: ok}
			case getQueueStats:
				msg.reply <- h.queueStats()

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.timers.Stop()
	h.conns.CloseAll()
	h.lobbies.Close()
	h.metrics.Connections.Set(0)
	h.metrics.LobbiesActive.Set(0)
}

func (h *Hub) unicastError(connID, message string) {
	h.conns.Unicast(connID, types.EventErrorMessage, types.ErrorPayload{Message: message})
}

func (h *Hub) notify(lobbyID string, typ engine.NotificationType, p engine.Player) {
	h.conns.Multicast(lobbyID, types.EventLobbyNotification, types.NotificationPayload{
		Type:      string(typ),
		Username:  p.Username,
		UserID:    p.UserID,
		Timestamp: h.clk.Now().UTC(),
	})
}
