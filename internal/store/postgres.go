package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Config struct {
	DSN         string
	MaxConns    int
	AutoMigrate bool
}

type Postgres struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

// Open connects through pgx, hands the pool to gorm and optionally migrates.
func Open(ctx context.Context, cfg Config) (*Postgres, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	sqlDB := stdlib.OpenDB(*connCfg)
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("ping: %w", err), sqlDB.Close())
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open gorm: %w", err), sqlDB.Close())
	}

	if cfg.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(
			&matchRecord{},
			&matchPlayerRecord{},
			&chatMessageRecord{},
			&lobbyTimeRecord{},
			&userStatsRecord{},
			&userGameStatsRecord{},
		); err != nil {
			return nil, multierr.Append(fmt.Errorf("migrate: %w", err), sqlDB.Close())
		}
	}

	return &Postgres{db: db, sqlDB: sqlDB}, nil
}

// RecordMatch stores the match and bumps matchesPlayed for every player, overall
// and for the match's game.
func (p *Postgres) RecordMatch(ctx context.Context, m engine.Match) error {
	rec := matchRecord{
		LobbyID:   m.LobbyID,
		Game:      m.Game,
		Status:    "in-progress",
		StartedAt: m.StartedAt,
	}
	for _, mp := range m.Players {
		rec.Players = append(rec.Players, matchPlayerRecord{
			UserID:   mp.UserID,
			Username: mp.Username,
			Team:     string(mp.Team),
		})
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert match: %w", err)
		}

		now := time.Now()
		for _, mp := range m.Players {
			if mp.UserID == "" {
				continue
			}
			stats := userStatsRecord{
				UserID:        mp.UserID,
				Username:      mp.Username,
				MatchesPlayed: 1,
				LastUpdatedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"username":        mp.Username,
					"last_updated_at": now,
					"matches_played":  gorm.Expr("user_stats.matches_played + 1"),
				}),
			}).Create(&stats).Error; err != nil {
				return fmt.Errorf("upsert stats for %s: %w", mp.UserID, err)
			}

			game := userGameStatsRecord{UserID: mp.UserID, Game: m.Game, MatchesPlayed: 1}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "game"}},
				DoUpdates: clause.Assignments(map[string]any{
					"matches_played": gorm.Expr("user_game_stats.matches_played + 1"),
				}),
			}).Create(&game).Error; err != nil {
				return fmt.Errorf("upsert game stats for %s: %w", mp.UserID, err)
			}
		}
		return nil
	})
}

func (p *Postgres) RecordChatMessage(ctx context.Context, m engine.ChatMessage) error {
	rec := chatMessageRecord{
		ID:        m.ID,
		LobbyID:   m.LobbyID,
		UserID:    m.UserID,
		Username:  m.Username,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
	return p.db.WithContext(ctx).Create(&rec).Error
}

func (p *Postgres) RecordLobbyEntry(ctx context.Context, username string, enteredAt time.Time) error {
	return p.db.WithContext(ctx).Create(&lobbyTimeRecord{Username: username, EnteredAt: enteredAt}).Error
}

// RecentMatches returns up to limit matches containing userID, newest first.
func (p *Postgres) RecentMatches(ctx context.Context, userID string, limit int) ([]engine.Match, error) {
	var recs []matchRecord
	err := p.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id IN (?)", p.db.Model(&matchPlayerRecord{}).Select("match_id").Where("user_id = ?", userID)).
		Order("started_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	matches := make([]engine.Match, 0, len(recs))
	for _, r := range recs {
		matches = append(matches, r.toMatch())
	}
	return matches, nil
}

func (p *Postgres) UserStats(ctx context.Context, userID string) (UserStats, error) {
	var rec userStatsRecord
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserStats{}, ErrNotFound
	}
	if err != nil {
		return UserStats{}, err
	}

	var games []userGameStatsRecord
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Find(&games).Error; err != nil {
		return UserStats{}, err
	}

	out := UserStats{
		UserID:   rec.UserID,
		Username: rec.Username,
		Totals: GameStats{
			MatchesPlayed: rec.MatchesPlayed,
			Wins:          rec.Wins,
			Losses:        rec.Losses,
			HighestScore:  rec.HighestScore,
		},
		Games:         make(map[string]GameStats, len(games)),
		LastUpdatedAt: rec.LastUpdatedAt,
	}
	for _, g := range games {
		out.Games[g.Game] = GameStats{
			MatchesPlayed: g.MatchesPlayed,
			Wins:          g.Wins,
			Losses:        g.Losses,
			HighestScore:  g.HighestScore,
		}
	}
	return out, nil
}

func (p *Postgres) Close() error {
	return p.sqlDB.Close()
}
