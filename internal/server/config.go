package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5443)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/fleetgate.db")

	// Auth defaults. The JWT secret has no default: it must be supplied via
	// config or FG_AUTH_JWT_SECRET.
	v.SetDefault("auth.access_token_ttl", "15m")

	// Token store defaults. The encryption passphrase must be supplied via
	// config or FG_TOKENS_PASSPHRASE.
	v.SetDefault("tokens.passphrase", "")

	// Extension defaults
	v.SetDefault("extensions.cloudfoundry.enabled", true)
	v.SetDefault("extensions.kubernetes.enabled", true)
	v.SetDefault("extensions.diagnostics.enabled", true)
	v.SetDefault("extensions.probe.enabled", true)
	v.SetDefault("extensions.probe.interval", "60s")
	v.SetDefault("extensions.probe.ping_timeout", "2s")
	v.SetDefault("extensions.probe.ping_count", 1)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fleetgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fleetgate")
	}

	// Environment variable support: FG_SERVER_PORT=9090
	v.SetEnvPrefix("FG")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
