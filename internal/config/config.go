package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	HTTPAddr        string
	ShutdownTimeout time.Duration

	Env         string
	LogLevel    string
	CORSOrigins []string
}

// devOrigins are always allowed so a local frontend works without extra setup.
var devOrigins = []string{"http://localhost:3000", "http://localhost:3001"}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL:     getenv("DATABASE_URL", ""),
		MaxOpenConns:    getenvInt("DB_MAX_OPEN", 20),
		MaxIdleConns:    getenvInt("DB_MAX_IDLE", 10),
		ConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: getenvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		HTTPAddr:        httpAddr(),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		Env:             getenv("APP_ENV", "development"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		CORSOrigins:     corsOrigins(),
	}
}

// IsProduction reports whether the service runs with hardened defaults.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// httpAddr prefers HTTP_ADDR and falls back to the PORT convention used by
// most hosting platforms.
func httpAddr() string {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		return v
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

func corsOrigins() []string {
	var out []string
	seen := map[string]bool{}
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			return
		}
		seen[o] = true
		out = append(out, o)
	}

	add(os.Getenv("FRONTEND_URL"))
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		add(o)
	}
	for _, o := range devOrigins {
		add(o)
	}
	return out
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
