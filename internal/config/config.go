package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by FEPS_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("FEPS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// StoreBackend returns which persistence backend to open.
// Defaults to "sqlite" if not set.
// Valid values: postgres, sqlite
func StoreBackend() string {
	b := os.Getenv("STORE_BACKEND")
	if b == "" {
		return "sqlite"
	}
	return b
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// SQLitePath returns the sqlite database file path.
// Defaults to "feps.db" if not set.
func SQLitePath() string {
	p := os.Getenv("SQLITE_PATH")
	if p == "" {
		return "feps.db"
	}
	return p
}

// APIKey returns the static bearer token required on /v1 routes.
// Empty disables authentication, which is the default for local use.
func APIKey() string {
	return os.Getenv("FEPS_API_KEY")
}

// DefaultClones returns how many clones each observation gets when an
// agent is created without an explicit setting.
// Defaults to 2 if not set.
func DefaultClones() int {
	n, err := strconv.Atoi(os.Getenv("DEFAULT_CLONES"))
	if err != nil || n < 1 {
		return 2
	}
	return n
}

// DefaultGamma returns the forgetting rate applied to transition weights
// on every observation.
// Defaults to 0.1 if not set.
func DefaultGamma() float64 {
	g, err := strconv.ParseFloat(os.Getenv("DEFAULT_GAMMA"), 64)
	if err != nil || g < 0 || g >= 1 {
		return 0.1
	}
	return g
}

// DefaultBaseReward returns the reward granted for a correct prediction.
// Defaults to 1.0 if not set.
func DefaultBaseReward() float64 {
	r, err := strconv.ParseFloat(os.Getenv("DEFAULT_BASE_REWARD"), 64)
	if err != nil || r <= 0 {
		return 1.0
	}
	return r
}

// CheckpointInterval returns how often dirty models are flushed to the store.
// Defaults to 30s if not set.
func CheckpointInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("CHECKPOINT_INTERVAL"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ExpirerInterval returns how often idle models are scanned for eviction.
// Defaults to 1m if not set.
func ExpirerInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("EXPIRER_INTERVAL"))
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// ModelIdleTTL returns how long a model may sit unused in memory before
// the expirer evicts it.
// Defaults to 15m if not set.
func ModelIdleTTL() time.Duration {
	d, err := time.ParseDuration(os.Getenv("MODEL_IDLE_TTL"))
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SnapshotKeep returns how many snapshots are retained per agent.
// Defaults to 5 if not set.
func SnapshotKeep() int {
	n, err := strconv.Atoi(os.Getenv("SNAPSHOT_KEEP"))
	if err != nil || n < 1 {
		return 5
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 50 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 50
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 100 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 100
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
