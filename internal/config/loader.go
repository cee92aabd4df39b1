package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the roster service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	SessionTTL           time.Duration
	SessionPruneSchedule string
	AdminEmail           string
	AdminPassword        string
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLiteDSN:            "file:roster.db?_foreign_keys=on",
		SessionTTL:           24 * time.Hour,
		SessionPruneSchedule: "@hourly",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ROSTER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROSTER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROSTER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ROSTER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROSTER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if schedule := strings.TrimSpace(os.Getenv("ROSTER_SESSION_PRUNE_SCHEDULE")); schedule != "" {
		cfg.SessionPruneSchedule = schedule
	}

	if email := strings.TrimSpace(os.Getenv("ROSTER_ADMIN_EMAIL")); email == "" {
		missing = append(missing, "ROSTER_ADMIN_EMAIL")
	} else {
		cfg.AdminEmail = email
	}

	if password := strings.TrimSpace(os.Getenv("ROSTER_ADMIN_PASSWORD")); password == "" {
		missing = append(missing, "ROSTER_ADMIN_PASSWORD")
	} else {
		cfg.AdminPassword = password
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("brak wymaganych zmiennych środowiskowych: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("nieprawidłowe wartości zmiennych środowiskowych: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
