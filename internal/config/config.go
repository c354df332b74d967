package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSaveKey       = "marketpulse_save_v1"
	DefaultSnapshotTable = "game_snapshots"
)

// GameConfig is shared by every binary that hosts a session.
type GameConfig struct {
	DataDir       string
	SaveKey       string
	Player        string
	DatabaseURL   string
	SnapshotTable string
	CatalogPath   string
	DevCommands   bool
	Seed          int64
	ShopRotation  time.Duration
	LogLevel      slog.Level
}

type APIConfig struct {
	Addr string
	GameConfig
}

// CLIConfig plays locally unless APIURL names a running mp-api.
type CLIConfig struct {
	APIURL string
	GameConfig
}

func LoadAPIFromEnv() (APIConfig, error) {
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MP_API_ADDR", ":8080")
	}
	game, err := loadGame()
	if err != nil {
		return APIConfig{}, err
	}
	return APIConfig{Addr: addr, GameConfig: game}, nil
}

func LoadCLIFromEnv() (CLIConfig, error) {
	_ = godotenv.Load()

	game, err := loadGame()
	if err != nil {
		return CLIConfig{}, err
	}
	return CLIConfig{APIURL: strings.TrimSpace(os.Getenv("MP_API_URL")), GameConfig: game}, nil
}

func loadGame() (GameConfig, error) {
	cfg := GameConfig{
		DataDir:       strings.TrimSpace(os.Getenv("MP_DATA_DIR")),
		SaveKey:       envDefault("MP_SAVE_KEY", DefaultSaveKey),
		Player:        envDefault("MP_PLAYER", "player"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SnapshotTable: envDefault("MP_SNAPSHOT_TABLE", DefaultSnapshotTable),
		CatalogPath:   strings.TrimSpace(os.Getenv("MP_CATALOG")),
		DevCommands:   envBoolDefault("MP_DEV_COMMANDS", false),
		Seed:          envIntDefault("MP_SEED", 0),
		ShopRotation:  envDurationDefault("MP_SHOP_ROTATION", 15*time.Minute),
		LogLevel:      envLevelDefault("MP_LOG_LEVEL", slog.LevelInfo),
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".marketpulse")
	}
	if strings.ContainsAny(cfg.SaveKey, `/\`) {
		return cfg, fmt.Errorf("MP_SAVE_KEY must not contain path separators")
	}
	if cfg.ShopRotation <= 0 {
		return cfg, fmt.Errorf("MP_SHOP_ROTATION must be positive")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envLevelDefault(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
