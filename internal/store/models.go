package store

import (
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
)

type matchRecord struct {
	ID        uint   `gorm:"primaryKey"`
	LobbyID   string `gorm:"index;not null"`
	Game      string `gorm:"not null;default:default"`
	Status    string `gorm:"not null;default:in-progress"`
	StartedAt time.Time
	Players   []matchPlayerRecord `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (matchRecord) TableName() string { return "matches" }

type matchPlayerRecord struct {
	ID       uint   `gorm:"primaryKey"`
	MatchID  uint   `gorm:"index;not null"`
	UserID   string `gorm:"index;not null"`
	Username string `gorm:"not null"`
	Team     string `gorm:"size:1;not null"`
}

func (matchPlayerRecord) TableName() string { return "match_players" }

type chatMessageRecord struct {
	ID        string    `gorm:"primaryKey"`
	LobbyID   string    `gorm:"index:idx_chat_lobby_created,priority:1;not null"`
	UserID    string    `gorm:"not null"`
	Username  string    `gorm:"not null"`
	Text      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index:idx_chat_lobby_created,priority:2,sort:desc"`
}

func (chatMessageRecord) TableName() string { return "chat_messages" }

type lobbyTimeRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"index;not null"`
	EnteredAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (lobbyTimeRecord) TableName() string { return "lobby_times" }

type userStatsRecord struct {
	UserID        string `gorm:"primaryKey"`
	Username      string `gorm:"index;not null"`
	MatchesPlayed int    `gorm:"not null;default:0"`
	Wins          int    `gorm:"not null;default:0"`
	Losses        int    `gorm:"not null;default:0"`
	HighestScore  int    `gorm:"not null;default:0"`
	LastUpdatedAt time.Time
}

func (userStatsRecord) TableName() string { return "user_stats" }

type userGameStatsRecord struct {
	UserID        string `gorm:"primaryKey"`
	Game          string `gorm:"primaryKey"`
	MatchesPlayed int    `gorm:"not null;default:0"`
	Wins          int    `gorm:"not null;default:0"`
	Losses        int    `gorm:"not null;default:0"`
	HighestScore  int    `gorm:"not null;default:0"`
}

func (userGameStatsRecord) TableName() string { return "user_game_stats" }

func (r matchRecord) toMatch() engine.Match {
	players := make([]engine.MatchPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, engine.MatchPlayer{
			UserID:   p.UserID,
			Username: p.Username,
			Team:     engine.Team(p.Team),
		})
	}
	return engine.Match{
		LobbyID:   r.LobbyID,
		Game:      r.Game,
		StartedAt: r.StartedAt,
		Players:   players,
	}
}
