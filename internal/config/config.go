package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/DoyleJ11/matchqueue-backend/internal/engine"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	OriginPatterns []string `mapstructure:"origin_patterns"`
}

type MatchmakingConfig struct {
	LobbySize        int           `mapstructure:"lobby_size"`
	DisconnectGrace  time.Duration `mapstructure:"disconnect_grace"`
	ChatHistory      int           `mapstructure:"chat_history"`
	MaxMessageLength int           `mapstructure:"max_message_length"`
	DefaultGame      string        `mapstructure:"default_game"`
}

type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxConns    int    `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type PersistConfig struct {
	MaxInFlight int64         `mapstructure:"max_in_flight"`
	MaxBacklog  int64         `mapstructure:"max_backlog"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	Matchmaking MatchmakingConfig `mapstructure:"matchmaking"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Persist     PersistConfig     `mapstructure:"persist"`
	Log         LogConfig         `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.origin_patterns", []string{})

	v.SetDefault("matchmaking.lobby_size", engine.DefaultLobbySize)
	v.SetDefault("matchmaking.disconnect_grace", engine.DefaultDisconnectSecs*time.Second)
	v.SetDefault("matchmaking.chat_history", engine.DefaultChatHistory)
	v.SetDefault("matchmaking.max_message_length", engine.DefaultMaxMessageLen)
	v.SetDefault("matchmaking.default_game", engine.DefaultGame)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("persist.max_in_flight", 32)
	v.SetDefault("persist.max_backlog", 1024)
	v.SetDefault("persist.timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads .env (if present), then defaults, the optional config file and
// MATCHQUEUE_* environment variables, in increasing precedence.
func Load(cfgFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("matchqueue")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	m := c.Matchmaking
	if !engine.ValidLobbySize(m.LobbySize) {
		return fmt.Errorf("matchmaking.lobby_size=%d: %w", m.LobbySize, engine.ErrInvalidLobbySize)
	}
	if m.DisconnectGrace <= 0 {
		return errors.New("matchmaking.disconnect_grace must be positive")
	}
	if m.ChatHistory < 1 {
		return errors.New("matchmaking.chat_history must be at least 1")
	}
	if m.MaxMessageLength < 1 {
		return errors.New("matchmaking.max_message_length must be at least 1")
	}
	if c.Persist.MaxInFlight < 1 {
		return errors.New("persist.max_in_flight must be at least 1")
	}
	if c.Persist.MaxBacklog < 0 {
		return errors.New("persist.max_backlog must not be negative")
	}
	return nil
}
