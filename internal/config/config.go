package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendFS     = "fs"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogMode  string // prod|dev

	StoreBackend string // memory|fs|sql|redis
	StoreFSPath  string

	DBDriver string // sqlite|postgres
	DBDSN    string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// HMAC key for bearer tokens minted by the presentation layer.
	AuthHMACSecret  string
	EnableDevTokens bool

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	logMode := "dev"
	if mode == ModeOnline {
		logMode = "prod"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		LogMode:  envOr("LOG_MODE", logMode),

		StoreBackend: strings.ToLower(envOr("STORE_BACKEND", BackendSQL)),
		StoreFSPath:  envOr("STORE_FS_PATH", "./data"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		RedisKeyPrefix: envOr("REDIS_KEY_PREFIX", "pcbuild:"),

		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		EnableDevTokens: envBool("ENABLE_DEV_TOKENS", mode == ModeOffline),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://assess.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

// CORSOrigins picks the allow-list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown MODE %q", c.Mode)
	}
	switch c.StoreBackend {
	case BackendMemory, BackendFS, BackendSQL, BackendRedis:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StoreBackend == BackendSQL && c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.AuthHMACSecret == "" {
		return fmt.Errorf("config: AUTH_HMAC_SECRET is required")
	}
	if c.Mode == ModeOnline && c.EnableDevTokens {
		return fmt.Errorf("config: ENABLE_DEV_TOKENS is not allowed in online mode")
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
