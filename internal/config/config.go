package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"

	ImageBackendLocal = "local"
	ImageBackendS3    = "s3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Images    ImagesConfig    `yaml:"images"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite (default) or postgres
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection string for postgres
}

type AuthConfig struct {
	JWTKey            string        `yaml:"jwt_key"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	PasswordMinLength int           `yaml:"password_min_length"`
	// AdminEmails are granted the Admin role at startup.
	AdminEmails       []string      `yaml:"admin_emails"`
}

type ImagesConfig struct {
	Sizes          []int         `yaml:"sizes"`
	Backend        string        `yaml:"backend"`
	Dir            string        `yaml:"dir"`
	PublicPath     string        `yaml:"public_path"`
	Quality        int           `yaml:"quality"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	SweepGrace     time.Duration `yaml:"sweep_grace"`
	S3             S3Config      `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from raw YAML, applying env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MYAPI_JWT_KEY"); v != "" {
		c.Auth.JWTKey = v
	}
	if v := os.Getenv("MYAPI_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("MYAPI_S3_SECRET_KEY"); v != "" {
		c.Images.S3.SecretKey = v
	}
	if v := os.Getenv("MYAPI_ADMIN_EMAILS"); v != "" {
		c.Auth.AdminEmails = splitList(v)
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTKey == "" {
		return fmt.Errorf("auth.jwt_key is required")
	}
	if len(c.Auth.JWTKey) < 32 {
		return fmt.Errorf("auth.jwt_key must be at least 32 characters")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative")
	}

	switch c.Database.Driver {
	case "", DatabaseDriverSQLite:
	case DatabaseDriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	if len(c.Images.Sizes) == 0 {
		return fmt.Errorf("images.sizes is required")
	}
	seen := make(map[int]struct{}, len(c.Images.Sizes))
	for _, size := range c.Images.Sizes {
		if size <= 0 {
			return fmt.Errorf("images.sizes must contain positive values, got %d", size)
		}
		if _, dup := seen[size]; dup {
			return fmt.Errorf("images.sizes contains %d more than once", size)
		}
		seen[size] = struct{}{}
	}
	if c.Images.Quality < 0 || c.Images.Quality > 100 {
		return fmt.Errorf("images.quality must be between 1 and 100")
	}

	switch c.Images.Backend {
	case "", ImageBackendLocal:
	case ImageBackendS3:
		if c.Images.S3.Endpoint == "" {
			return fmt.Errorf("images.s3.endpoint is required for the s3 backend")
		}
		if c.Images.S3.Bucket == "" {
			return fmt.Errorf("images.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("images.backend %q is not supported", c.Images.Backend)
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5165
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DatabaseDriverSQLite
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./data/myapi.db"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.PasswordMinLength == 0 {
		c.Auth.PasswordMinLength = 6
	}
	// Images defaults
	if c.Images.Backend == "" {
		c.Images.Backend = ImageBackendLocal
	}
	if c.Images.Dir == "" {
		c.Images.Dir = "images"
	}
	if c.Images.PublicPath == "" {
		c.Images.PublicPath = "/" + c.Images.Dir
	}
	if c.Images.Quality == 0 {
		c.Images.Quality = 80
	}
	if c.Images.MaxUploadBytes == 0 {
		c.Images.MaxUploadBytes = 10 << 20
	}
	if c.Images.FetchTimeout == 0 {
		c.Images.FetchTimeout = 15 * time.Second
	}
	if c.Images.SweepInterval == 0 {
		c.Images.SweepInterval = time.Hour
	}
	if c.Images.SweepGrace == 0 {
		c.Images.SweepGrace = time.Hour
	}
	if c.Images.S3.Region == "" {
		c.Images.S3.Region = "us-east-1"
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 10
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
