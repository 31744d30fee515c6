package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all process configuration. Values are layered from defaults,
// an optional YAML file (RI_CONFIG), and RI_-prefixed environment variables.
type Config struct {
	Addr     string `koanf:"addr"`
	LogLevel string `koanf:"log_level"`

	// Relational store holding the users table.
	DBHost     string `koanf:"db_host"`
	DBPort     int    `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	// Optional path to a TLS root CA bundle for the database connection.
	DBSSLRootCA string `koanf:"db_ssl_ca"`

	// Document analysis service.
	DIEndpoint       string `koanf:"di_endpoint"`
	DIKey            string `koanf:"di_key"`
	DIModelID        string `koanf:"di_model_id"`
	DIAPIVersion     string `koanf:"di_api_version"`
	DIPollIntervalMS int    `koanf:"di_poll_interval_ms"`
	DITimeoutMS      int    `koanf:"di_timeout_ms"`

	// Document store receiving the final receipt records.
	CosmosEndpoint  string `koanf:"cosmos_endpoint"`
	CosmosKey       string `koanf:"cosmos_key"`
	CosmosDatabase  string `koanf:"cosmos_database"`
	CosmosContainer string `koanf:"cosmos_container"`

	// Blob storage the upload events originate from.
	StorageAccountURL string `koanf:"storage_account_url"`
	StorageAccountKey string `koanf:"storage_account_key"`
	BlobContainer     string `koanf:"blob_container"`
}

// NewConfig returns a Config populated with defaults only.
func NewConfig() *Config {
	return &Config{
		Addr:             ":8080",
		LogLevel:         "info",
		DBPort:           5432,
		DIModelID:        "TrainingHard1",
		DIAPIVersion:     "2024-02-29-preview",
		DIPollIntervalMS: 2000,
		DITimeoutMS:      120_000,
	}
}

// LoadConfig builds a Config by layering defaults, optional file, and env.
// Order of precedence (low -> high):
//  1. defaults (NewConfig)
//  2. file (YAML) if RI_CONFIG is set
//  3. env (prefix RI_)
func LoadConfig() (*Config, error) {
	cfg := *NewConfig()

	k := koanf.New(".")

	if path := os.Getenv("RI_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, WrapError(err, "load config file")
		}
	}

	// Environment variables: RI_DB_HOST -> db_host, RI_COSMOS_KEY -> cosmos_key, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("RI_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "ri_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, WrapError(err, "load env config")
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, WrapError(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every value needed to reach an external service is
// present. A missing value aborts startup before any external call is made.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"db_host", c.DBHost},
		{"db_user", c.DBUser},
		{"db_password", c.DBPassword},
		{"db_name", c.DBName},
		{"di_endpoint", c.DIEndpoint},
		{"di_key", c.DIKey},
		{"di_model_id", c.DIModelID},
		{"cosmos_endpoint", c.CosmosEndpoint},
		{"cosmos_key", c.CosmosKey},
		{"cosmos_database", c.CosmosDatabase},
		{"cosmos_container", c.CosmosContainer},
		{"storage_account_url", c.StorageAccountURL},
		{"storage_account_key", c.StorageAccountKey},
		{"blob_container", c.BlobContainer},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("%s is required", r.name), ErrConfig)
		}
	}
	if c.Addr == "" {
		return NewAppError("CONFIG_ERROR", "addr must not be empty", ErrConfig)
	}
	return nil
}
