// Package store is the durable stats sink. The realtime core only ever writes to it
// from detached tasks and reads it from the REST layer.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
)

var ErrUnavailable = errors.New("database not available")
var ErrNotFound = errors.New("not found")

type Sink interface {
	RecordMatch(ctx context.Context, m engine.Match) error
	RecordChatMessage(ctx context.Context, m engine.ChatMessage) error
	RecordLobbyEntry(ctx context.Context, username string, enteredAt time.Time) error
}

type Reader interface {
	RecentMatches(ctx context.Context, userID string, limit int) ([]engine.Match, error)
	UserStats(ctx context.Context, userID string) (UserStats, error)
}

type Store interface {
	Sink
	Reader
	Close() error
}

type GameStats struct {
	MatchesPlayed int `json:"matchesPlayed"`
	Wins          int `json:"wins"`
	Losses        int `json:"losses"`
	HighestScore  int `json:"highestScore"`
}

type UserStats struct {
	UserID        string               `json:"userId"`
	Username      string               `json:"username"`
	Totals        GameStats            `json:"totals"`
	Games         map[string]GameStats `json:"games"`
	LastUpdatedAt time.Time            `json:"lastUpdatedAt"`
}

// Nop accepts every write and has nothing to read.
type Nop struct{}

func (Nop) RecordMatch(context.Context, engine.Match) error             { return nil }
func (Nop) RecordChatMessage(context.Context, engine.ChatMessage) error { return nil }
func (Nop) RecordLobbyEntry(context.Context, string, time.Time) error   { return nil }

func (Nop) RecentMatches(context.Context, string, int) ([]engine.Match, error) {
	return nil, ErrUnavailable
}

func (Nop) UserStats(context.Context, string) (UserStats, error) {
	return UserStats{}, ErrUnavailable
}

func (Nop) Close() error { return nil }
