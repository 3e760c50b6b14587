package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskduel/taskduel/internal/duel/gateway"
)

// Config holds the duel engine settings loadable from a YAML file.
type Config struct {
	Duel struct {
		CountdownSeconds int `yaml:"countdown_seconds"`
		RoundSeconds     int `yaml:"round_seconds"`
		PollIntervalMS   int `yaml:"poll_interval_ms"`
	} `yaml:"duel"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML config at path. A missing file is not an error;
// the domain defaults apply.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// duelConfig converts file settings into orchestrator timings. Environment
// variables override the file, and the domain defaults cover anything unset.
func (c *Config) duelConfig() gateway.Config {
	cfg := gateway.DefaultConfig()
	if v := getEnvAsInt("DUEL_COUNTDOWN_SECONDS", c.Duel.CountdownSeconds); v > 0 {
		cfg.Countdown = time.Duration(v) * time.Second
	}
	if v := getEnvAsInt("DUEL_ROUND_SECONDS", c.Duel.RoundSeconds); v > 0 {
		cfg.Round = time.Duration(v) * time.Second
	}
	if v := getEnvAsInt("DUEL_POLL_INTERVAL_MS", c.Duel.PollIntervalMS); v > 0 {
		cfg.PollInterval = time.Duration(v) * time.Millisecond
	}
	return cfg
}
