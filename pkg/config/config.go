// Package config loads application configuration from environment
// variables, with an optional YAML file overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cdnops/trafficbridge/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	CDN           CDNConfig
	Edge          EdgeConfig
	Credentials   CredentialsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// CDNConfig holds the GraphQL CDN-analytics provider settings
type CDNConfig struct {
	GraphQLEndpoint string
	APIEndpoint     string
	AccountTag      string
	ZoneTag         string
}

// EdgeConfig holds the signed-REST edge-analytics provider settings
type EdgeConfig struct {
	Endpoint      string
	DefaultSiteID string
}

// CredentialsConfig holds the credential fallback-file settings
type CredentialsConfig struct {
	FilePath string
	Watch    bool
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// Load builds the configuration from environment variables and, when
// path is non-empty, overlays the YAML file on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TRAFFICBRIDGE_HOST", "0.0.0.0"),
			Port:            getEnv("TRAFFICBRIDGE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TRAFFICBRIDGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TRAFFICBRIDGE_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("TRAFFICBRIDGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TRAFFICBRIDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		CDN: CDNConfig{
			GraphQLEndpoint: getEnv("TRAFFICBRIDGE_CDN_GRAPHQL_ENDPOINT", "https://api.cloudflare.com/client/v4/graphql"),
			APIEndpoint:     getEnv("TRAFFICBRIDGE_CDN_API_ENDPOINT", "https://api.cloudflare.com/client/v4"),
			AccountTag:      getEnv("TRAFFICBRIDGE_CDN_ACCOUNT_TAG", ""),
			ZoneTag:         getEnv("TRAFFICBRIDGE_CDN_ZONE_TAG", ""),
		},
		Edge: EdgeConfig{
			Endpoint:      getEnv("TRAFFICBRIDGE_EDGE_ENDPOINT", "https://esa.cdnops-api.com"),
			DefaultSiteID: getEnv("TRAFFICBRIDGE_EDGE_SITE_ID", ""),
		},
		Credentials: CredentialsConfig{
			FilePath: getEnv("TRAFFICBRIDGE_CREDENTIALS_FILE", "credentials.txt"),
			Watch:    getEnvBool("TRAFFICBRIDGE_CREDENTIALS_WATCH", true),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("TRAFFICBRIDGE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("TRAFFICBRIDGE_METRICS_ENABLED", true),
		},
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// fileConfig mirrors Config for the YAML overlay; only non-empty values
// are applied.
type fileConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	CDN struct {
		GraphQLEndpoint string `yaml:"graphql_endpoint"`
		APIEndpoint     string `yaml:"api_endpoint"`
		AccountTag      string `yaml:"account_tag"`
		ZoneTag         string `yaml:"zone_tag"`
	} `yaml:"cdn"`
	Edge struct {
		Endpoint      string `yaml:"endpoint"`
		DefaultSiteID string `yaml:"default_site_id"`
	} `yaml:"edge"`
	Credentials struct {
		FilePath string `yaml:"file_path"`
	} `yaml:"credentials"`
	LogLevel string `yaml:"log_level"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setIfNotEmpty(&c.Server.Host, fc.Server.Host)
	setIfNotEmpty(&c.Server.Port, fc.Server.Port)
	setIfNotEmpty(&c.CDN.GraphQLEndpoint, fc.CDN.GraphQLEndpoint)
	setIfNotEmpty(&c.CDN.APIEndpoint, fc.CDN.APIEndpoint)
	setIfNotEmpty(&c.CDN.AccountTag, fc.CDN.AccountTag)
	setIfNotEmpty(&c.CDN.ZoneTag, fc.CDN.ZoneTag)
	setIfNotEmpty(&c.Edge.Endpoint, fc.Edge.Endpoint)
	setIfNotEmpty(&c.Edge.DefaultSiteID, fc.Edge.DefaultSiteID)
	setIfNotEmpty(&c.Credentials.FilePath, fc.Credentials.FilePath)
	if fc.LogLevel != "" {
		c.Observability.LogLevel = parseLogLevel(fc.LogLevel)
	}
	return nil
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.CDN.GraphQLEndpoint == "" {
		return fmt.Errorf("CDN GraphQL endpoint is required")
	}
	if c.CDN.APIEndpoint == "" {
		return fmt.Errorf("CDN API endpoint is required")
	}
	if c.Edge.Endpoint == "" {
		return fmt.Errorf("edge endpoint is required")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
