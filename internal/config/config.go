package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Server struct {
	Port               string
	Env                string
	LogLevel           string
	RoomTTL            time.Duration
	ReapInterval       time.Duration
	MatchSweepInterval time.Duration
	InputInterval      time.Duration
	MaxPlayers         int
}

type Host struct {
	Env              string
	LogLevel         string
	ServerURL        string
	PlayerID         string
	Name             string
	AutoStartPlayers int
	RestartAfter     time.Duration
	TickHz           int
	TanksConfig      string
}

// LoadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func LoadServer() (Server, error) {
	var errs error
	c := Server{
		Port:     getString("PORT", "4040"),
		Env:      getString("APP_ENV", "production"),
		LogLevel: getString("LOG_LEVEL", "info"),
	}
	c.RoomTTL = getDuration("ROOM_TTL", 10*time.Minute, &errs)
	c.ReapInterval = getDuration("ROOM_REAP_INTERVAL", 30*time.Second, &errs)
	c.MatchSweepInterval = getDuration("MATCH_SWEEP_INTERVAL", 500*time.Millisecond, &errs)
	c.InputInterval = getDuration("INPUT_MIN_INTERVAL", 12*time.Millisecond, &errs)
	c.MaxPlayers = getInt("MAX_PLAYERS", 6, &errs)
	return c, errs
}

func LoadHost() (Host, error) {
	var errs error
	c := Host{
		Env:         getString("APP_ENV", "production"),
		LogLevel:    getString("LOG_LEVEL", "info"),
		ServerURL:   getString("SERVER_URL", "ws://localhost:4040/ws"),
		PlayerID:    os.Getenv("HOST_PLAYER_ID"),
		Name:        getString("HOST_NAME", "Host"),
		TanksConfig: os.Getenv("TANKS_CONFIG"),
	}
	c.AutoStartPlayers = getInt("AUTOSTART_PLAYERS", 2, &errs)
	c.RestartAfter = getDuration("RESTART_AFTER", 10*time.Second, &errs)
	c.TickHz = getInt("TICK_HZ", 20, &errs)
	if c.TickHz <= 0 {
		multierr.AppendInto(&errs, fmt.Errorf("TICK_HZ must be positive, got %d", c.TickHz))
	}
	return c, errs
}

func (c Server) Addr() string { return ":" + c.Port }

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration, errs *error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		multierr.AppendInto(errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func getInt(key string, def int, errs *error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		multierr.AppendInto(errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}
