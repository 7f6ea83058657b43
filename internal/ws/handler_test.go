package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/hub"
	"github.com/DoyleJ11/matchqueue-backend/internal/types"
	pub "github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(types.ClientMessage{Event: event, Payload: raw})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func recvUntil(t *testing.T, conn *websocket.Conn, event string) envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", event)
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Event == event {
			return env
		}
	}
}

func newServer(t *testing.T, lobbySize int) *httptest.Server {
	t.Helper()
	h, err := hub.NewHub(context.Background(), hub.Options{LobbySize: lobbySize})
	require.NoError(t, err)
	srv := httptest.NewServer(Handler(h, Options{}))
	t.Cleanup(func() {
		srv.Close()
		h.Close()
	})
	return srv
}

func TestHandler_QueueToLobbyToChat(t *testing.T) {
	srv := newServer(t, 2)
	a, b := dial(t, srv), dial(t, srv)

	send(t, a, pub.EventJoinQueue, pub.JoinQueuePayload{UserID: "ua", Username: "alice", Game: "X"})
	send(t, b, pub.EventJoinQueue, pub.JoinQueuePayload{UserID: "ub", Username: "bob", Game: "X"})

	var created pub.LobbySnapshot
	require.NoError(t, json.Unmarshal(recvUntil(t, a, pub.EventLobbyCreated).Payload, &created))
	require.Len(t, created.Players, 2)
	assert.ElementsMatch(t, []string{"A", "B"}, []string{created.Players[0].Team, created.Players[1].Team})
	recvUntil(t, b, pub.EventLobbyCreated)

	send(t, b, pub.EventSendLobbyMessage, pub.SendLobbyMessagePayload{LobbyID: created.ID, Text: "gl hf"})
	var chat pub.ChatMessagePayload
	require.NoError(t, json.Unmarshal(recvUntil(t, a, pub.EventLobbyMessage).Payload, &chat))
	assert.Equal(t, "gl hf", chat.Text)
	assert.Equal(t, "ub", chat.UserID)

	send(t, a, pub.EventToggleReady, pub.ToggleReadyPayload{LobbyID: created.ID})
	send(t, b, pub.EventToggleReady, pub.ToggleReadyPayload{LobbyID: created.ID})
	var start pub.StartGamePayload
	require.NoError(t, json.Unmarshal(recvUntil(t, a, pub.EventStartGame).Payload, &start))
	assert.Equal(t, created.ID, start.LobbyID)
}

func TestHandler_RejectsUnknownEventAndBadJSON(t *testing.T) {
	srv := newServer(t, 2)
	c := dial(t, srv)

	send(t, c, "launchMissiles", struct{}{})
	var e pub.ErrorPayload
	require.NoError(t, json.Unmarshal(recvUntil(t, c, pub.EventErrorMessage).Payload, &e))
	assert.Contains(t, e.Message, "unknown event")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{nope")))
	require.NoError(t, json.Unmarshal(recvUntil(t, c, pub.EventErrorMessage).Payload, &e))
	assert.Equal(t, "bad json", e.Message)
}

func TestToHubMsg(t *testing.T) {
	cases := []struct {
		name    string
		msg     types.ClientMessage
		want    hub.HubMsg
		wantErr bool
	}{
		{
			name: "join queue",
			msg:  types.ClientMessage{Event: pub.EventJoinQueue, Payload: json.RawMessage(`{"userId":"u","username":"n","game":"g"}`)},
			want: hub.JoinQueue{ConnID: "c", UserID: "u", Username: "n", Game: "g"},
		},
		{
			name: "leave queue without payload",
			msg:  types.ClientMessage{Event: pub.EventLeaveQueue},
			want: hub.LeaveQueue{ConnID: "c"},
		},
		{
			name: "toggle ready",
			msg:  types.ClientMessage{Event: pub.EventToggleReady, Payload: json.RawMessage(`{"lobbyId":"L"}`)},
			want: hub.ToggleReady{ConnID: "c", LobbyID: "L"},
		},
		{
			name:    "wrong payload type",
			msg:     types.ClientMessage{Event: pub.EventJoinLobby, Payload: json.RawMessage(`{"lobbyId":5}`)},
			wantErr: true,
		},
		{
			name:    "unknown",
			msg:     types.ClientMessage{Event: "nope"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := toHubMsg("c", tc.msg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
