package types

import "time"

// LobbySnapshot is the public view of a lobby sent as lobbyCreated and lobbyState.
// Connection ids never leave the server.
type LobbySnapshot struct {
	ID        string           `json:"id"`
	Game      string           `json:"game"`
	Players   []PlayerSnapshot `json:"players"`
	CreatedAt time.Time        `json:"createdAt"`
}

type PlayerSnapshot struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Team     string `json:"team"` // "A" | "B"
	Ready    bool   `json:"ready"`
}
