// Package config loads service configuration from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"token-launchpad/internal/ledger"
)

// Config holds all service configuration.
type Config struct {
	// Network
	Network Network
	Params  NetworkParams

	// Server
	HTTPAddr string
	// AuthMaxSkew bounds the gap between a signed request's timestamp and
	// the server clock.
	AuthMaxSkew time.Duration

	// Solana
	RPCEndpoint string

	// StaticTransferFees lists "mint:bps:max" schedules for the static fee source.
	StaticTransferFees string

	// Storage
	UseMemory     bool
	PostgresDSN   string
	ClickHouseDSN string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// Kafka
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadEnvFile loads variables from path without overriding the environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from environment variables.
func FromEnv() (*Config, error) {
	network, err := ParseNetwork(getEnv("NETWORK", string(Localnet)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Network: network,
		Params:  network.Params(),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		AuthMaxSkew: getEnvAsDuration("AUTH_MAX_SKEW", 5*time.Minute),

		RPCEndpoint:        getEnv("SOLANA_RPC_ENDPOINT", ""),
		StaticTransferFees: getEnv("STATIC_TRANSFER_FEES", ""),

		UseMemory:     getEnvAsBool("USE_MEMORY", false),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisTTL:      getEnvAsDuration("REDIS_TTL", 5*time.Minute),

		KafkaBrokers: getEnvAsSlice("KAFKA_BROKERS", nil, ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "launchpad-events"),
	}

	if id := getEnv("PROGRAM_ID", ""); id != "" {
		cfg.Params.ProgramID = id
	}
	if v := getEnv("FAUCET_ENABLED", ""); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse FAUCET_ENABLED: %w", err)
		}
		cfg.Params.FaucetEnabled = enabled
	}

	return cfg, nil
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	var problems []string

	if !ledger.ValidKey(c.Params.ProgramID) {
		problems = append(problems, fmt.Sprintf("program id %q is not a 32-byte base58 key", c.Params.ProgramID))
	}
	if c.Params.DefaultFeeRate >= 10_000 {
		problems = append(problems, fmt.Sprintf("default fee rate %d must be below 10000", c.Params.DefaultFeeRate))
	}
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickHouseDSN == "") {
		problems = append(problems, "POSTGRES_DSN and CLICKHOUSE_DSN are required unless USE_MEMORY is set")
	}
	if c.Params.TransferFeeSource == TransferFeeRPC && c.RPCEndpoint == "" {
		problems = append(problems, fmt.Sprintf("SOLANA_RPC_ENDPOINT is required on %s", c.Network))
	}
	if c.AuthMaxSkew <= 0 {
		problems = append(problems, fmt.Sprintf("AUTH_MAX_SKEW %v must be positive", c.AuthMaxSkew))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		problems = append(problems, "KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valStr, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
