package tca

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source kinds.
const (
	SourceKindFile     = "file"
	SourceKindPostgres = "postgres"
	SourceKindS3       = "s3"
)

// Config consolidates the settings of the schema runtime and its tools.
type Config struct {
	Source      SourceConfig      `json:"source" mapstructure:"source"`
	Database    DatabaseConfig    `json:"database" mapstructure:"database"`
	S3          S3Config          `json:"s3" mapstructure:"s3"`
	DuckDB      DuckDBConfig      `json:"duckdb" mapstructure:"duckdb"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
	Restriction RestrictionConfig `json:"restriction" mapstructure:"restriction"`
}

// SourceConfig selects where the table configuration is loaded from.
type SourceConfig struct {
	Kind          string `json:"kind" mapstructure:"kind"`
	Directory     string `json:"directory" mapstructure:"directory"`
	RegistryTable string `json:"registryTable" mapstructure:"registry_table"`
	// ValidateDocuments checks every document against the TCA document schema.
	ValidateDocuments bool `json:"validateDocuments" mapstructure:"validate_documents"`
}

// DatabaseConfig contains the connection settings of the postgres source
type DatabaseConfig struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	Database        string        `json:"database" mapstructure:"database"`
	Username        string        `json:"username" mapstructure:"username"`
	Password        string        `json:"password" mapstructure:"password"`
	SSLMode         string        `json:"sslMode" mapstructure:"ssl_mode"`
	MaxConnections  int32         `json:"maxConnections" mapstructure:"max_connections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" mapstructure:"conn_max_lifetime"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`
	// IAMAuth replaces Password with an Aurora DSQL auth token.
	IAMAuth bool   `json:"iamAuth" mapstructure:"iam_auth"`
	Region  string `json:"region" mapstructure:"region"`
}

// DSN renders a postgres connection URL.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Database,
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// S3Config contains the bucket settings of the s3 source
type S3Config struct {
	Bucket       string `json:"bucket" mapstructure:"bucket"`
	Prefix       string `json:"prefix" mapstructure:"prefix"`
	Region       string `json:"region" mapstructure:"region"`
	Endpoint     string `json:"endpoint" mapstructure:"endpoint"`
	UsePathStyle bool   `json:"usePathStyle" mapstructure:"use_path_style"`
	Concurrency  int    `json:"concurrency" mapstructure:"concurrency"`
}

// DuckDBConfig configures the restriction probe database.
type DuckDBConfig struct {
	Path          string `json:"path" mapstructure:"path"`
	MemoryLimitMB int    `json:"memoryLimitMb" mapstructure:"memory_limit_mb"`
	Threads       int    `json:"threads" mapstructure:"threads"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // json or console
}

// RestrictionConfig selects the restrictions of the default container.
type RestrictionConfig struct {
	Deleted      bool `json:"deleted" mapstructure:"deleted"`
	EnableFields bool `json:"enableFields" mapstructure:"enable_fields"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:              SourceKindFile,
			Directory:         "tca",
			RegistryTable:     "tca_registry",
			ValidateDocuments: true,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxConnections:  4,
			ConnMaxLifetime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		S3: S3Config{
			Concurrency: 8,
		},
		DuckDB: DuckDBConfig{
			Path: ":memory:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Restriction: RestrictionConfig{
			Deleted:      true,
			EnableFields: true,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceKindFile:
		if c.Source.Directory == "" {
			return &ConfigError{Field: "source.directory", Message: "must not be empty for file sources"}
		}
	case SourceKindPostgres:
		if c.Source.RegistryTable == "" {
			return &ConfigError{Field: "source.registryTable", Message: "must not be empty for postgres sources"}
		}
		if c.Database.Host == "" {
			return &ConfigError{Field: "database.host", Message: "must not be empty for postgres sources"}
		}
		if c.Database.MaxConnections <= 0 {
			return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
		}
		if c.Database.IAMAuth && c.Database.Region == "" {
			return &ConfigError{Field: "database.region", Message: "is required when iamAuth is enabled"}
		}
	case SourceKindS3:
		if c.S3.Bucket == "" {
			return &ConfigError{Field: "s3.bucket", Message: "must not be empty for s3 sources"}
		}
		if c.S3.Concurrency <= 0 {
			return &ConfigError{Field: "s3.concurrency", Message: "must be greater than 0"}
		}
	default:
		return &ConfigError{Field: "source.kind", Message: fmt.Sprintf("unsupported source kind %q", c.Source.Kind)}
	}
	if c.DuckDB.MemoryLimitMB < 0 {
		return &ConfigError{Field: "duckdb.memoryLimitMb", Message: "must be >= 0"}
	}
	if c.DuckDB.Threads < 0 {
		return &ConfigError{Field: "duckdb.threads", Message: "must be >= 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}

// LoadConfig reads a YAML file, when path is set, and TCA_* environment variables on
// top of DefaultConfig. Nested keys map to variables like TCA_SOURCE_KIND.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.kind", d.Source.Kind)
	v.SetDefault("source.directory", d.Source.Directory)
	v.SetDefault("source.registry_table", d.Source.RegistryTable)
	v.SetDefault("source.validate_documents", d.Source.ValidateDocuments)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.username", d.Database.Username)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_connections", d.Database.MaxConnections)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.timeout", d.Database.Timeout)
	v.SetDefault("database.iam_auth", d.Database.IAMAuth)
	v.SetDefault("database.region", d.Database.Region)

	v.SetDefault("s3.bucket", d.S3.Bucket)
	v.SetDefault("s3.prefix", d.S3.Prefix)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.use_path_style", d.S3.UsePathStyle)
	v.SetDefault("s3.concurrency", d.S3.Concurrency)

	v.SetDefault("duckdb.path", d.DuckDB.Path)
	v.SetDefault("duckdb.memory_limit_mb", d.DuckDB.MemoryLimitMB)
	v.SetDefault("duckdb.threads", d.DuckDB.Threads)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("restriction.deleted", d.Restriction.Deleted)
	v.SetDefault("restriction.enable_fields", d.Restriction.EnableFields)
}
