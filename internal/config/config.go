package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		PublicURL   string `yaml:"public_url" env:"SERVER_PUBLIC_URL"`
		StoragePath string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Telegram struct {
		Token         string `yaml:"token" env:"TELEGRAM_TOKEN"`
		WebhookSecret string `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET"`
		TriggerTag    string `yaml:"trigger_tag" env:"TELEGRAM_TRIGGER_TAG"`
	} `yaml:"telegram"`

	LLM struct {
		BaseURL string `yaml:"base_url" env:"LLM_BASE_URL"`
		APIKey  string `yaml:"api_key" env:"LLM_API_KEY"`
		Model   string `yaml:"model" env:"LLM_MODEL"`
	} `yaml:"llm"`

	SMTP struct {
		Host      string `yaml:"host" env:"SMTP_HOST"`
		Port      int    `yaml:"port" env:"SMTP_PORT"`
		Username  string `yaml:"username" env:"SMTP_USERNAME"`
		Password  string `yaml:"password" env:"SMTP_PASSWORD"`
		FromName  string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		FromEmail string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
	} `yaml:"smtp"`

	Verification struct {
		Secret         string   `yaml:"secret" env:"VERIFICATION_SECRET"`
		TokenTTL       string   `yaml:"token_ttl" env:"VERIFICATION_TOKEN_TTL"`
		AllowedDomains []string `yaml:"allowed_domains"`
	} `yaml:"verification"`

	RateLimit struct {
		MaxPerHour int `yaml:"max_per_hour" env:"RATELIMIT_MAX_PER_HOUR"`
	} `yaml:"ratelimit"`

	Timezone string `yaml:"timezone" env:"TIMEZONE"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// Try to read config file if it exists
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		err = yaml.Unmarshal(file, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "uploads"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "unipulse"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Telegram.TriggerTag = "unipulse"

	config.LLM.Model = "gpt-4o-mini"

	config.SMTP.Port = 587
	config.SMTP.FromName = "UniPulse"

	config.Verification.TokenTTL = "30m"
	config.Verification.AllowedDomains = []string{"u.nus.edu", "nus.edu.sg"}

	config.RateLimit.MaxPerHour = 5

	config.Timezone = "Asia/Singapore"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	if config.Telegram.WebhookSecret == "" {
		return fmt.Errorf("telegram webhook secret is required")
	}

	if config.Server.PublicURL == "" {
		return fmt.Errorf("server public URL is required")
	}

	if config.Verification.Secret == "" {
		return fmt.Errorf("verification secret is required")
	}

	if _, err := time.ParseDuration(config.Verification.TokenTTL); err != nil {
		return fmt.Errorf("invalid verification token TTL format: %w", err)
	}

	if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid connection max lifetime format: %w", err)
	}

	if _, err := time.LoadLocation(config.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// Location returns the configured timezone location.
// validateConfig has already checked it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// VerificationTokenTTL returns the token TTL as a duration.
func (c *Config) VerificationTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Verification.TokenTTL)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}
