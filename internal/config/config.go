// Package config loads and validates the YAML configuration of the
// adapter: platform identity, message limits and logging.
//
// # Example Configuration
//
//	identity:
//	  server: "kchat.example.com"
//	  websocket_url: "wss://kchat.example.com/ws"
//	  team: "myteam"
//	  token: "${KCHAT_TOKEN}"
//	logging:
//	  level: "info"
//	  file: "/var/log/kchatbot/kchatbot.log"
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Infomaniak/err-backend-kchat/pkg/constants"
)

const (
	DefaultScheme   = "https"
	DefaultPort     = 443
	DefaultLogLevel = "info"
)

// Config represents the complete adapter configuration
type Config struct {
	Identity IdentityConfig `yaml:"identity"`
	Message  MessageConfig  `yaml:"message"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// IdentityConfig holds the platform connection and session settings
type IdentityConfig struct {
	Server       string `yaml:"server"`
	WebsocketURL string `yaml:"websocket_url"`
	Scheme       string `yaml:"scheme"`
	Port         int    `yaml:"port"`
	Team         string `yaml:"team"`
	Login        string `yaml:"login"`
	Password     string `yaml:"password"`
	Token        string `yaml:"token"`
	MFAToken     string `yaml:"mfa_token"`
	Insecure     bool   `yaml:"insecure"`
	Timeout      string `yaml:"timeout"`
	CardsHook    string `yaml:"cards_hook"`
}

// MessageConfig holds the outbound message size limits
type MessageConfig struct {
	SizeLimit int `yaml:"size_limit"`
	HardLimit int `yaml:"hard_limit"`
}

// LoggingConfig holds the log output settings
type LoggingConfig struct {
	Level        string `yaml:"level"`
	File         string `yaml:"file"`
	MaxSize      int    `yaml:"max_size"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAge       int    `yaml:"max_age"`
	Compress     bool   `yaml:"compress"`
	EnableStdout bool   `yaml:"enable_stdout"`
}

// LoadConfig loads configuration from file and expands environment
// variables
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}
	return result, nil
}

// applyDefaults fills in the optional settings
func (c *Config) applyDefaults() {
	if c.Identity.Scheme == "" {
		c.Identity.Scheme = DefaultScheme
	}
	if c.Identity.Port == 0 {
		c.Identity.Port = DefaultPort
	}
	if c.Identity.Timeout == "" {
		c.Identity.Timeout = constants.DefaultWebsocketTimeout.String()
	}
	if c.Message.SizeLimit == 0 {
		c.Message.SizeLimit = constants.MessageSizeLimit
	}
	if c.Message.HardLimit == 0 {
		c.Message.HardLimit = constants.MaxMessageLength
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = constants.DefaultLogMaxAge
	}
}

// MaskSecret masks sensitive information for logging
func MaskSecret(s string) string {
	if len(s) <= constants.MinSecretLengthForMasking {
		return "***"
	}
	return s[:constants.SecretMaskPrefixLength] + "***" + s[len(s)-constants.SecretMaskSuffixLength:]
}

// WebsocketTimeout parses the configured heartbeat interval
func (c *Config) WebsocketTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Identity.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid identity.timeout %q: %w", c.Identity.Timeout, err)
	}
	return timeout, nil
}

// validateConfig checks the settings that have no usable default
func validateConfig(c *Config) error {
	if c.Identity.Server == "" {
		return fmt.Errorf("identity.server is required")
	}
	if c.Identity.WebsocketURL == "" {
		return fmt.Errorf("identity.websocket_url is required")
	}
	if c.Identity.Team == "" {
		return fmt.Errorf("identity.team is required")
	}
	if c.Identity.Token == "" && (c.Identity.Login == "" || c.Identity.Password == "") {
		return fmt.Errorf("identity.token or identity.login/password is required")
	}
	if _, err := c.WebsocketTimeout(); err != nil {
		return err
	}
	if c.Message.SizeLimit >= c.Message.HardLimit {
		return fmt.Errorf("message.size_limit (%d) must stay below message.hard_limit (%d)",
			c.Message.SizeLimit, c.Message.HardLimit)
	}
	return nil
}
