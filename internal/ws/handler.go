package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/broadcast"
	"github.com/DoyleJ11/matchqueue-backend/internal/hub"
	"github.com/DoyleJ11/matchqueue-backend/internal/types"
	pub "github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 25 * time.Second
	outboxSize   = 64
)

var errUnknownEvent = errors.New("unknown event")

type Options struct {
	OriginPatterns []string
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		clog := log.With(zap.String("conn_id", connID))

		out := make(broadcast.Outbox, outboxSize)
		if !h.Send(hub.Connect{ConnID: connID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		defer h.Send(hub.Disconnect{ConnID: connID})

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. The hub closes out when it drops or forgets us.
		go func() {
			defer cancel()
			ping := time.NewTicker(pingInterval)
			defer ping.Stop()
			for {
				select {
				case msg, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusPolicyViolation, "connection dropped")
						return
					}
					if err := write(ctx, conn, msg); err != nil {
						clog.Debug("write failed", zap.Error(err))
						return
					}
				case <-ping.C:
					pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						clog.Debug("ping failed", zap.Error(err))
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(ctx, conn, "bad json")
				continue
			}

			msg, err := toHubMsg(connID, cm)
			if err != nil {
				writeError(ctx, conn, err.Error())
				continue
			}
			if !h.Send(msg) {
				return
			}
		}
	}
}

// toHubMsg validates the closed set of inbound events. Field-level rules (required
// ids, text limits) are enforced by the hub.
func toHubMsg(connID string, cm types.ClientMessage) (hub.HubMsg, error) {
	switch cm.Event {
	case pub.EventJoinQueue:
		var p pub.JoinQueuePayload
		if err := decode(cm.Payload, &p); err != nil {
			return nil, err
		}
		return hub.JoinQueue{ConnID: connID, UserID: p.UserID, Username: p.Username, Game: p.Game}, nil

	case pub.EventLeaveQueue:
		return hub.LeaveQueue{ConnID: connID}, nil

	case pub.EventJoinLobby:
		var p pub.JoinLobbyPayload
		if err := decode(cm.Payload, &p); err != nil {
			return nil, err
		}
		return hub.JoinLobby{ConnID: connID, LobbyID: p.LobbyID, UserID: p.UserID, Username: p.Username}, nil

	case pub.EventToggleReady:
		var p pub.ToggleReadyPayload
		if err := decode(cm.Payload, &p); err != nil {
			return nil, err
		}
		return hub.ToggleReady{ConnID: connID, LobbyID: p.LobbyID}, nil

	case pub.EventSendLobbyMessage:
		var p pub.SendLobbyMessagePayload
		if err := decode(cm.Payload, &p); err != nil {
			return nil, err
		}
		return hub.SendLobbyMessage{
			ConnID:   connID,
			LobbyID:  p.LobbyID,
			UserID:   p.UserID,
			Username: p.Username,
			Text:     p.Text,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEvent, cm.Event)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	return nil
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}

func writeError(ctx context.Context, conn *websocket.Conn, message string) {
	_ = write(ctx, conn, types.ServerMessage{
		Event:   pub.EventErrorMessage,
		Payload: pub.ErrorPayload{Message: message},
	})
}
