package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Images    ImagesConfig    `mapstructure:"images"`
	Alignment AlignmentConfig `mapstructure:"alignment"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	CORSOrigins  string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	DBName        string `mapstructure:"dbname"`
	SSLMode       string `mapstructure:"sslmode"`
	MaxConns      int32  `mapstructure:"max_conns"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

// StorageConfig configures S3-compatible object storage. Object storage is
// disabled when Bucket is empty; uploads then go to LocalDir.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	LocalDir        string `mapstructure:"local_dir"`
}

// Enabled reports whether object storage is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

type ImagesConfig struct {
	PlaceholderURL string `mapstructure:"placeholder_url"`
	SignedURLTTL   int    `mapstructure:"signed_url_ttl"`
	CacheTTL       int    `mapstructure:"cache_ttl"`
	LocalHandleTTL int    `mapstructure:"local_handle_ttl"`
	MaxUploadBytes int    `mapstructure:"max_upload_bytes"`
}

type AlignmentConfig struct {
	DefaultZoom      float64 `mapstructure:"default_zoom"`
	SessionIdleTTL   int     `mapstructure:"session_idle_ttl"`
	FitPaddingMeters float64 `mapstructure:"fit_padding_meters"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.cors_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "plotmap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "plotmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.local_dir", "data/blobs")
	v.SetDefault("images.placeholder_url", "/aradhana.png")
	v.SetDefault("images.signed_url_ttl", 300)
	v.SetDefault("images.cache_ttl", 240)
	v.SetDefault("images.local_handle_ttl", 900)
	v.SetDefault("images.max_upload_bytes", 10<<20)
	v.SetDefault("alignment.default_zoom", 18)
	v.SetDefault("alignment.session_idle_ttl", 1800)
	v.SetDefault("alignment.fit_padding_meters", 25)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PLOTMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("PLOTMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Storage.Enabled() && c.Storage.Region == "" {
		errs = append(errs, "storage.region is required when storage.bucket is set")
	}
	if c.Images.SignedURLTTL <= 0 {
		errs = append(errs, "images.signed_url_ttl must be positive")
	}
	if c.Images.CacheTTL <= 0 || c.Images.CacheTTL >= c.Images.SignedURLTTL {
		errs = append(errs, "images.cache_ttl must be positive and shorter than images.signed_url_ttl")
	}
	if c.Alignment.DefaultZoom <= 0 || c.Alignment.DefaultZoom > 24 {
		errs = append(errs, fmt.Sprintf("alignment.default_zoom must be in (0, 24], got %v", c.Alignment.DefaultZoom))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
