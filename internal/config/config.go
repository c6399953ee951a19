package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string `yaml:"port"`
		WebhookPath string `yaml:"webhook_path"`
		VerifyToken string `yaml:"verify_token"`
		PageToken   string `yaml:"page_token"`
		GraphURL    string `yaml:"graph_url"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Content struct {
		RefreshInterval string `yaml:"refresh_interval"`
		SnapshotDir     string `yaml:"snapshot_dir"`
	} `yaml:"content"`
	Quiz struct {
		StreakTarget int     `yaml:"streak_target"`
		ReactionOdds float64 `yaml:"reaction_odds"` // negative disables reactions
		MaxButtons   int     `yaml:"max_buttons"`
		StartKeyword string  `yaml:"start_keyword"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Interval parses a duration string or returns the fallback if empty or invalid.
func Interval(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
