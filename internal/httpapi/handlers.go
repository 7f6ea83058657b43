package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/DoyleJ11/matchqueue-backend/internal/hub"
	"github.com/DoyleJ11/matchqueue-backend/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const recentMatchesLimit = 50

type errorBody struct {
	Error string `json:"error"`
}

type matchPlayerBody struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Team     string `json:"team"`
}

type matchBody struct {
	LobbyID   string            `json:"lobbyId"`
	Game      string            `json:"game"`
	StartedAt time.Time         `json:"startedAt"`
	Players   []matchPlayerBody `json:"players"`
}

func toMatchBody(m engine.Match) matchBody {
	out := matchBody{
		LobbyID:   m.LobbyID,
		Game:      m.Game,
		StartedAt: m.StartedAt,
		Players:   make([]matchPlayerBody, 0, len(m.Players)),
	}
	for _, p := range m.Players {
		out.Players = append(out.Players, matchPlayerBody{UserID: p.UserID, Username: p.Username, Team: string(p.Team)})
	}
	return out
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func QueueStats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.QueueStats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Server shutting down"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func GetLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, found, err := h.Lobby(r.Context(), chi.URLParam(r, "lobbyID"))
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Server shutting down"})
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Lobby not found"})
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Lobby any `json:"lobby"`
		}{Lobby: snap})
	}
}

func RecentMatches(rd store.Reader, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "userId is required"})
			return
		}
		matches, err := rd.RecentMatches(r.Context(), userID, recentMatchesLimit)
		if err != nil {
			storeError(w, r, log, err)
			return
		}
		out := make([]matchBody, 0, len(matches))
		for _, m := range matches {
			out = append(out, toMatchBody(m))
		}
		writeJSON(w, http.StatusOK, struct {
			Matches []matchBody `json:"matches"`
		}{Matches: out})
	}
}

func UserStats(rd store.Reader, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := rd.UserStats(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			storeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func storeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Database not available"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	default:
		log.Error("store read failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
