package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr         string
	DatabasePath string
	AppEnv       string

	// ShuffleSeed, when set, seeds the first game; later games draw seeds
	// from the entropy source.
	ShuffleSeed *int64

	Serial SerialConfig

	// SessionIdleTimeout removes games untouched for that long. Zero keeps them.
	SessionIdleTimeout time.Duration

	WSAllowedOrigins []string
}

// SerialConfig locates an optional hardware RNG. An empty DeviceName means
// shuffles use the time-seeded source.
type SerialConfig struct {
	DeviceName  string
	BaudRate    int
	ReadTimeout time.Duration
}

func (c SerialConfig) Enabled() bool { return c.DeviceName != "" }

func (c Config) IsProduction() bool { return c.AppEnv == "production" }

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:         strings.TrimSpace(os.Getenv("ELEVENS_ADDR")),
		DatabasePath: strings.TrimSpace(os.Getenv("DATABASE_PATH")),
		AppEnv:       strings.TrimSpace(os.Getenv("ELEVENS_ENV")),
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "elevens.db"
	}

	// ELEVENS_ADDR is optional if PORT is set by the hosting environment.
	if cfg.Addr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			if strings.Contains(port, ":") {
				cfg.Addr = port
			} else {
				cfg.Addr = ":" + port
			}
		} else {
			cfg.Addr = ":7777"
		}
	}

	var invalid []string

	cfg.SessionIdleTimeout = 2 * time.Hour
	if v := strings.TrimSpace(os.Getenv("SESSION_IDLE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.SessionIdleTimeout = d
		} else {
			invalid = append(invalid, "SESSION_IDLE_TIMEOUT")
		}
	}

	if v := strings.TrimSpace(os.Getenv("SHUFFLE_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ShuffleSeed = &n
		} else {
			invalid = append(invalid, "SHUFFLE_SEED")
		}
	}

	if name := strings.TrimSpace(os.Getenv("SERIAL_DEVICE_NAME")); name != "" {
		cfg.Serial.DeviceName = name

		baudStr := os.Getenv("SERIAL_BAUD_RATE")
		if baud, err := strconv.Atoi(baudStr); err == nil && baud > 0 {
			cfg.Serial.BaudRate = baud
		} else {
			invalid = append(invalid, "SERIAL_BAUD_RATE")
		}

		// milliseconds
		timeoutStr := os.Getenv("SERIAL_READ_TIMEOUT")
		if timeoutStr == "" {
			cfg.Serial.ReadTimeout = time.Second
		} else if ms, err := strconv.Atoi(timeoutStr); err == nil && ms >= 0 {
			cfg.Serial.ReadTimeout = time.Duration(ms) * time.Millisecond
		} else {
			invalid = append(invalid, "SERIAL_READ_TIMEOUT")
		}
	}

	if v := os.Getenv("WS_ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.WSAllowedOrigins = append(cfg.WSAllowedOrigins, p)
			}
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("missing/invalid env: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
