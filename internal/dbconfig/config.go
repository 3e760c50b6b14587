package dbconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds the Postgres settings the duel service reads from DB_* env
// vars. Defaults match local development.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// FromEnv builds a Config from DB_* environment variables, falling back to
// local-development defaults for anything unset.
func FromEnv() Config {
	c := Config{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     5432,
		User:     envOr("DB_USER", "postgres"),
		Password: envOr("DB_PASSWORD", "postgres"),
		Database: envOr("DB_NAME", "taskduel"),
		SSLMode:  envOr("DB_SSLMODE", "disable"),
	}
	if port, err := strconv.Atoi(envOr("DB_PORT", "5432")); err == nil {
		c.Port = port
	}
	return c
}

// DSN renders the connection URL pgx expects. Credentials are URL-escaped so
// punctuation in a password does not break parsing.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
