package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type RelayConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	IconDir string `mapstructure:"icon_dir"`
}

type DispatchConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

type Config struct {
	DatabaseURL string         `mapstructure:"database_url"`
	ServerPort  string         `mapstructure:"server_port"`
	Relay       RelayConfig    `mapstructure:"relay"`
	Dispatch    DispatchConfig `mapstructure:"dispatch"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.Dispatch.ScanInterval == 0 {
		config.Dispatch.ScanInterval = time.Minute
	}
	if config.Relay.IconDir == "" {
		config.Relay.IconDir = "./icons"
	}

	// A missing relay URL or token is not fatal here: every delivery attempt
	// fails with a descriptive error instead, consuming one attempt.
	if config.Relay.BaseURL != "" && !strings.HasSuffix(config.Relay.BaseURL, "/") {
		config.Relay.BaseURL += "/"
	}

	return &config
}
