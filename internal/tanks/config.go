package tanks

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const minArenaSide = 5

type Config struct {
	Width                   int           `yaml:"width"`
	Height                  int           `yaml:"height"`
	MoveCooldown            time.Duration `yaml:"moveCooldown"`
	ShotCooldown            time.Duration `yaml:"shotCooldown"`
	BulletSpeedTilesPerTick int           `yaml:"bulletSpeedTilesPerTick"`
	MaxBulletsPerPlayer     int           `yaml:"maxBulletsPerPlayer"`
	RespawnDelay            time.Duration `yaml:"respawnDelay"`
	RespawnInvuln           time.Duration `yaml:"respawnInvuln"`
}

func DefaultConfig() Config {
	return Config{
		Width:                   20,
		Height:                  14,
		MoveCooldown:            120 * time.Millisecond,
		ShotCooldown:            350 * time.Millisecond,
		BulletSpeedTilesPerTick: 1,
		MaxBulletsPerPlayer:     1,
		RespawnDelay:            1500 * time.Millisecond,
		RespawnInvuln:           1500 * time.Millisecond,
	}
}

// withDefaults fills unset or unusable fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Width < minArenaSide {
		c.Width = d.Width
	}
	if c.Height < minArenaSide {
		c.Height = d.Height
	}
	if c.MoveCooldown <= 0 {
		c.MoveCooldown = d.MoveCooldown
	}
	if c.ShotCooldown <= 0 {
		c.ShotCooldown = d.ShotCooldown
	}
	if c.BulletSpeedTilesPerTick <= 0 {
		c.BulletSpeedTilesPerTick = d.BulletSpeedTilesPerTick
	}
	if c.MaxBulletsPerPlayer <= 0 {
		c.MaxBulletsPerPlayer = d.MaxBulletsPerPlayer
	}
	if c.RespawnDelay < 0 {
		c.RespawnDelay = d.RespawnDelay
	}
	if c.RespawnInvuln < 0 {
		c.RespawnInvuln = d.RespawnInvuln
	}
	return c
}

// LoadConfig reads YAML tuning from path on top of the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read tanks config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse tanks config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}
