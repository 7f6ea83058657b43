package engine

import (
	"fmt"
	"time"
)

// FormLobby seats the selected entries in arrival order: the first half on team A,
// the second half on team B. Every player starts bound to the connection that queued
// and not ready. A user id may appear only once.
func FormLobby(id string, entries []QueueEntry, createdAt time.Time) (Lobby, error) {
	if !ValidLobbySize(len(entries)) {
		return Lobby{}, ErrInvalidLobbySize
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.UserID]; dup {
			return Lobby{}, fmt.Errorf("user %q selected twice: %w", e.UserID, ErrInvalidEntry)
		}
		seen[e.UserID] = struct{}{}
	}

	half := len(entries) / 2
	players := make([]Player, 0, len(entries))
	for i, e := range entries {
		team := TeamA
		if i >= half {
			team = TeamB
		}
		players = append(players, Player{
			ConnID:   e.ConnID,
			UserID:   e.UserID,
			Username: e.Username,
			Team:     team,
		})
	}

	return Lobby{
		ID:        id,
		Game:      entries[0].Game,
		Players:   players,
		CreatedAt: createdAt,
	}, nil
}
