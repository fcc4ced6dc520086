// Package config loads the console's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/console"
	"github.com/cloudx-io/auctionconsole/simulation"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds all configuration for the console binaries.
type Config struct {
	LogLevel  string
	LogFormat string

	Storage  string
	SeedFile string
	Redis    RedisConfig

	// NATSURL enables event fan-out when set.
	NATSURL string

	// ReceiptKeyFile is a PEM P-256 private key. A fresh key is generated when empty.
	ReceiptKeyFile string

	Timings    TimingConfig
	Simulation SimulationConfig

	VoiceEnabled             bool
	HammerRequiresReserveMet bool
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	AuctionID string
}

type TimingConfig struct {
	HammerTick        time.Duration
	HammerStageTicks  int
	WithdrawalSeconds int
	BidWarInterval    time.Duration
	CallTimeout       time.Duration
}

type SimulationConfig struct {
	Enabled       bool
	MinInterval   time.Duration
	MaxInterval   time.Duration
	CeilingFactor decimal.Decimal
}

// Load reads the given dotenv files (".env" when none are named) and then
// the environment. Missing dotenv files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	defaults := console.DefaultConfig()
	ceiling, err := getDecimalEnv("SIM_CEILING_FACTOR", defaults.Simulation.CeilingFactor)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		Storage:  strings.ToLower(getEnv("STORAGE", StorageMemory)),
		SeedFile: getEnv("SEED_FILE", "storage/testdata/catalogue.json"),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getIntEnv("REDIS_DB", 0),
			AuctionID: getEnv("AUCTION_ID", ""),
		},

		NATSURL:        getEnv("NATS_URL", ""),
		ReceiptKeyFile: getEnv("RECEIPT_KEY_FILE", ""),

		Timings: TimingConfig{
			HammerTick:        getDurationEnv("HAMMER_TICK", defaults.HammerTick),
			HammerStageTicks:  getIntEnv("HAMMER_STAGE_TICKS", defaults.HammerStageTicks),
			WithdrawalSeconds: getIntEnv("WITHDRAWAL_SECONDS", defaults.WithdrawalSeconds),
			BidWarInterval:    getDurationEnv("BID_WAR_INTERVAL", defaults.BidWarInterval),
			CallTimeout:       getDurationEnv("CALL_TIMEOUT", defaults.CallTimeout),
		},
		Simulation: SimulationConfig{
			Enabled:       getBoolEnv("SIM_ENABLED", false),
			MinInterval:   getDurationEnv("SIM_MIN_INTERVAL", defaults.Simulation.MinInterval),
			MaxInterval:   getDurationEnv("SIM_MAX_INTERVAL", defaults.Simulation.MaxInterval),
			CeilingFactor: ceiling,
		},

		VoiceEnabled:             getBoolEnv("VOICE_ENABLED", true),
		HammerRequiresReserveMet: getBoolEnv("HAMMER_REQUIRES_RESERVE_MET", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
		if c.SeedFile == "" {
			return errors.New("SEED_FILE is required for memory storage")
		}
	case StorageRedis:
		if c.Redis.AuctionID == "" {
			return errors.New("AUCTION_ID is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.Timings.HammerTick <= 0 || c.Timings.HammerStageTicks <= 0 {
		return errors.New("hammer timing must be positive")
	}
	if c.Timings.WithdrawalSeconds <= 0 {
		return errors.New("WITHDRAWAL_SECONDS must be positive")
	}
	if c.Simulation.MinInterval <= 0 || c.Simulation.MaxInterval < c.Simulation.MinInterval {
		return fmt.Errorf("invalid simulation interval %s..%s", c.Simulation.MinInterval, c.Simulation.MaxInterval)
	}
	if !c.Simulation.CeilingFactor.IsPositive() {
		return errors.New("SIM_CEILING_FACTOR must be positive")
	}
	return nil
}

// ConsoleConfig maps the settings onto the console's timings.
func (c *Config) ConsoleConfig() console.Config {
	cfg := console.DefaultConfig()
	cfg.HammerTick = c.Timings.HammerTick
	cfg.HammerStageTicks = c.Timings.HammerStageTicks
	cfg.WithdrawalSeconds = c.Timings.WithdrawalSeconds
	cfg.BidWarInterval = c.Timings.BidWarInterval
	cfg.CallTimeout = c.Timings.CallTimeout
	cfg.Simulation = simulation.Config{
		MinInterval:   c.Simulation.MinInterval,
		MaxInterval:   c.Simulation.MaxInterval,
		CeilingFactor: c.Simulation.CeilingFactor,
	}
	return cfg
}

// NewLogger builds a text or JSON logger writing to stderr.
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// ParseLevel converts a level name to a slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getDecimalEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
