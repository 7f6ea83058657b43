package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/broadcast"
	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/internal/hub"
	"github.com/DoyleJ11/matchqueue-backend/internal/metrics"
	"github.com/DoyleJ11/matchqueue-backend/internal/store"
	pub "github.com/DoyleJ11/matchqueue-backend/pkg/types"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	matches []engine.Match
	stats   map[string]store.UserStats
	err     error
	limit   int
}

func (f *fakeReader) RecentMatches(_ context.Context, userID string, limit int) ([]engine.Match, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeReader) UserStats(_ context.Context, userID string) (store.UserStats, error) {
	if f.err != nil {
		return store.UserStats{}, f.err
	}
	s, ok := f.stats[userID]
	if !ok {
		return store.UserStats{}, store.ErrNotFound
	}
	return s, nil
}

func newTestServer(t *testing.T, rd store.Reader) (*httptest.Server, *hub.Hub, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	h, err := hub.NewHub(context.Background(), hub.Options{
		LobbySize: 2,
		Clock:     clock.NewMock(),
		Metrics:   metrics.New(reg),
		NewID:     func() string { return "L1" },
	})
	require.NoError(t, err)
	srv := httptest.NewServer(SetupRoutes(Deps{Hub: h, Reader: rd, Gatherer: reg}))
	t.Cleanup(func() {
		srv.Close()
		h.Close()
	})
	return srv, h, reg
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", nil))
}

func TestLobbyAndQueueStats(t *testing.T) {
	srv, h, _ := newTestServer(t, nil)

	var body struct {
		Error string `json:"error"`
	}
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/lobby/L1", &body))
	assert.Equal(t, "Lobby not found", body.Error)

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, h.Send(hub.Connect{ConnID: id, Outbox: make(broadcast.Outbox, 32)}))
	}
	require.True(t, h.Send(hub.JoinQueue{ConnID: "a", UserID: "ua", Username: "alice", Game: "X"}))
	require.True(t, h.Send(hub.JoinQueue{ConnID: "b", UserID: "ub", Username: "bob", Game: "X"}))
	require.True(t, h.Send(hub.JoinQueue{ConnID: "c", UserID: "uc", Username: "carol", Game: "Y"}))

	var stats pub.QueueUpdatePayload
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/queue/stats", &stats))
	assert.Equal(t, 1, stats.Length)
	assert.Equal(t, map[string]int{"Y": 1}, stats.ByGame)

	var got struct {
		Lobby pub.LobbySnapshot `json:"lobby"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/lobby/L1", &got))
	assert.Equal(t, "L1", got.Lobby.ID)
	assert.Equal(t, "X", got.Lobby.Game)
	require.Len(t, got.Lobby.Players, 2)
	assert.Equal(t, "ua", got.Lobby.Players[0].UserID)
	assert.Equal(t, "A", got.Lobby.Players[0].Team)
	assert.Equal(t, "B", got.Lobby.Players[1].Team)
}

func TestRecentMatches(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rd := &fakeReader{matches: []engine.Match{{
		LobbyID:   "L9",
		Game:      "X",
		StartedAt: started,
		Players: []engine.MatchPlayer{
			{UserID: "ua", Username: "alice", Team: engine.TeamA},
			{UserID: "ub", Username: "bob", Team: engine.TeamB},
		},
	}}}
	srv, _, _ := newTestServer(t, rd)

	var body struct {
		Matches []matchBody `json:"matches"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/matches?userId=ua", &body))
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "L9", body.Matches[0].LobbyID)
	assert.True(t, started.Equal(body.Matches[0].StartedAt))
	assert.Equal(t, "B", body.Matches[0].Players[1].Team)
	assert.Equal(t, recentMatchesLimit, rd.limit)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/matches", nil))
}

func TestStoreErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		reader store.Reader
		path   string
		want   int
	}{
		{"no database matches", nil, "/api/matches?userId=u", http.StatusServiceUnavailable},
		{"no database stats", nil, "/api/stats/user/u", http.StatusServiceUnavailable},
		{"unknown user", &fakeReader{}, "/api/stats/user/u", http.StatusNotFound},
		{"backend failure", &fakeReader{err: errors.New("boom")}, "/api/stats/user/u", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t, tc.reader)
			var body struct {
				Error string `json:"error"`
			}
			assert.Equal(t, tc.want, getJSON(t, srv.URL+tc.path, &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestUserStats(t *testing.T) {
	rd := &fakeReader{stats: map[string]store.UserStats{
		"ua": {UserID: "ua", Username: "alice", Totals: store.GameStats{MatchesPlayed: 3}},
	}}
	srv, _, _ := newTestServer(t, rd)

	var got store.UserStats
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/stats/user/ua", &got))
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, 3, got.Totals.MatchesPlayed)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, h, _ := newTestServer(t, nil)
	require.True(t, h.Send(hub.Connect{ConnID: "a", Outbox: make(broadcast.Outbox, 8)}))
	_, err := h.QueueStats(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "matchqueue_connections 1")
}
