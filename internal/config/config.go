// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the HTTP server will bind to.
	ServerHost string
	// ServerPort is the port number the HTTP server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// ChainID is the chain id used in EIP-712 signing domains.
	ChainID uint64

	// ManifestPath is the path to the deployment-address manifest.
	ManifestPath string

	// FaucetTo is the default recipient for faucet batch mints.
	FaucetTo string
	// FaucetAmount is the raw per-token amount for faucet batch mints.
	FaucetAmount string
	// FaucetUnits is the whole-unit amount for faucet batch mints; when
	// set it takes precedence over FaucetAmount and is scaled by each
	// token's decimals.
	FaucetUnits string

	// MetricsEnabled indicates whether prometheus metrics are exposed.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		LogLevel: env.GetString("LOG_LEVEL", "info"),

		ChainID: uint64(env.GetInt("CHAIN_ID", 31337)),

		ManifestPath: env.GetString("MANIFEST_PATH", "addresses.json"),

		FaucetTo:     env.GetString("FAUCET_TO", ""),
		FaucetAmount: env.GetString("FAUCET_AMOUNT", ""),
		FaucetUnits:  env.GetString("FAUCET_UNITS", ""),

		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "aqmint"),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// loadDotEnv searches for a .env file from the current directory up to
// the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
