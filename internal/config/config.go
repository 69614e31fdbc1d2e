// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AdminUserIDs     []int64
	RefreshInterval  int // minutes between sweeps
	HistoryDays      int // dedup record retention
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/sentinel.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	refresh, err := positiveIntEnv("REFRESH_INTERVAL", 10)
	if err != nil {
		return nil, err
	}

	history, err := positiveIntEnv("HISTORY_DAYS", 7)
	if err != nil {
		return nil, err
	}

	var adminIDs []int64
	if raw := os.Getenv("ADMIN_USER_IDS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ADMIN_USER_IDS: %w", s, err)
			}
			adminIDs = append(adminIDs, uid)
		}
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
		AdminUserIDs:     adminIDs,
		RefreshInterval:  refresh,
		HistoryDays:      history,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the admin list.
// Returns true if the list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AdminUserIDs) == 0 {
		return true
	}
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func positiveIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}
