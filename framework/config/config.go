package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App   AppConfig
	Log   LogConfig
	Beans BeansConfig
	Admin AdminConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

type LogConfig struct {
	Level    string // debug | info | warn | error
	Encoding string // json | console; empty picks by environment
}

// BeansConfig controls how the container is populated at boot.
type BeansConfig struct {
	// Definitions lists resource locations of definition documents,
	// e.g. "embed:beans.yaml,file:/etc/app/beans.yaml".
	Definitions []string
	// PreInstantiate creates every non-lazy singleton during Boot.
	PreInstantiate bool
	// AllowOverride lets a later definition replace an earlier one of the
	// same name.
	AllowOverride bool
	// ResourceRoot is the directory bare and file: locations are resolved
	// against.
	ResourceRoot string
	// FetchTimeout bounds http(s) resource loads.
	FetchTimeout time.Duration
}

// AdminConfig controls the admin endpoints. An empty Token leaves them
// unauthenticated.
type AdminConfig struct {
	Enabled bool
	Prefix  string
	Token   string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoBeans"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			Port:  env("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:    env("LOG_LEVEL", "info"),
			Encoding: env("LOG_ENCODING", ""),
		},
		Beans: BeansConfig{
			Definitions:    envList("BEANS_DEFINITIONS"),
			PreInstantiate: envBool("BEANS_PRE_INSTANTIATE", true),
			AllowOverride:  envBool("BEANS_ALLOW_OVERRIDE", true),
			ResourceRoot:   env("BEANS_RESOURCE_ROOT", "."),
			FetchTimeout:   envDuration("BEANS_FETCH_TIMEOUT", 10*time.Second),
		},
		Admin: AdminConfig{
			Enabled: envBool("ADMIN_ENABLED", true),
			Prefix:  env("ADMIN_PREFIX", "/admin"),
			Token:   env("ADMIN_TOKEN", ""),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
