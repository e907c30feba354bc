package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "FUELPULSE"

// Source drivers understood by the price source factory
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/fuelpulse.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// SourceConfig selects where market prices are read from
type SourceConfig struct {
	Driver       string        `yaml:"driver" envconfig:"DRIVER" default:"csv"`
	Path         string        `yaml:"path" envconfig:"FILE" default:"data/prices.csv"`
	DSN          string        `yaml:"dsn" envconfig:"DSN"`
	Table        string        `yaml:"table" envconfig:"TABLE" default:"market_prices"`
	QueryTimeout time.Duration `yaml:"query_timeout" envconfig:"QUERY_TIMEOUT" default:"10s"`
	AutoMigrate  bool          `yaml:"auto_migrate" envconfig:"AUTO_MIGRATE" default:"true"`
}

// AnalyticsConfig tunes the market service
type AnalyticsConfig struct {
	SummaryConcurrency int `yaml:"summary_concurrency" envconfig:"SUMMARY_CONCURRENCY" default:"4"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"fuelpulse"`
	TracingEnabled  bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
	TracingExporter string `yaml:"tracing_exporter" envconfig:"TRACING_EXPORTER" default:"stdout"`
	MetricsEnabled  bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// ExportConfig controls comparison exports
type ExportConfig struct {
	CSVIncludeBOM bool   `yaml:"csv_include_bom" envconfig:"CSV_INCLUDE_BOM" default:"true"`
	Dir           string `yaml:"dir" envconfig:"DIR" default:"data/exports"`
}

// Load reads an optional .env file, then environment variables, then the
// first config.yaml found in the usual locations. Environment variables win
// over the file.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envSet reports whether the variable for key was set explicitly
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// mergeField copies a non-zero file value unless the env variable was set
func mergeField[T comparable](dst *T, fileValue T, key string) {
	var zero T
	if fileValue != zero && !envSet(key) {
		*dst = fileValue
	}
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	c := envConfig
	f := fileConfig

	mergeField(&c.Server.Port, f.Server.Port, "SERVER_PORT")
	mergeField(&c.Server.ReadTimeout, f.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	mergeField(&c.Server.WriteTimeout, f.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	mergeField(&c.Server.IdleTimeout, f.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	mergeField(&c.Server.MaxHeaderBytes, f.Server.MaxHeaderBytes, "SERVER_MAX_HEADER_BYTES")
	mergeField(&c.Server.ShutdownTimeout, f.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	mergeField(&c.Server.RequestTimeout, f.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")

	if len(f.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		c.Security.AllowedOrigins = f.Security.AllowedOrigins
	}
	mergeField(&c.Security.RateLimit.RPS, f.Security.RateLimit.RPS, "SECURITY_RATE_LIMIT_RPS")
	mergeField(&c.Security.RateLimit.Burst, f.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	mergeField(&c.Logging.Level, f.Logging.Level, "LOGGING_LEVEL")
	mergeField(&c.Logging.Output, f.Logging.Output, "LOGGING_OUTPUT")
	mergeField(&c.Logging.FilePath, f.Logging.FilePath, "LOGGING_FILE_PATH")
	mergeField(&c.Logging.Development, f.Logging.Development, "LOGGING_DEVELOPMENT")

	mergeField(&c.Source.Driver, f.Source.Driver, "SOURCE_DRIVER")
	mergeField(&c.Source.Path, f.Source.Path, "SOURCE_FILE")
	mergeField(&c.Source.DSN, f.Source.DSN, "SOURCE_DSN")
	mergeField(&c.Source.Table, f.Source.Table, "SOURCE_TABLE")
	mergeField(&c.Source.QueryTimeout, f.Source.QueryTimeout, "SOURCE_QUERY_TIMEOUT")

	mergeField(&c.Analytics.SummaryConcurrency, f.Analytics.SummaryConcurrency, "ANALYTICS_SUMMARY_CONCURRENCY")

	mergeField(&c.Telemetry.ServiceName, f.Telemetry.ServiceName, "TELEMETRY_SERVICE_NAME")
	mergeField(&c.Telemetry.TracingEnabled, f.Telemetry.TracingEnabled, "TELEMETRY_TRACING_ENABLED")
	mergeField(&c.Telemetry.TracingExporter, f.Telemetry.TracingExporter, "TELEMETRY_TRACING_EXPORTER")

	mergeField(&c.WebSocket.ReadBufferSize, f.WebSocket.ReadBufferSize, "WEBSOCKET_READ_BUFFER_SIZE")
	mergeField(&c.WebSocket.WriteBufferSize, f.WebSocket.WriteBufferSize, "WEBSOCKET_WRITE_BUFFER_SIZE")
	mergeField(&c.WebSocket.PingPeriod, f.WebSocket.PingPeriod, "WEBSOCKET_PING_PERIOD")
	mergeField(&c.WebSocket.PongWait, f.WebSocket.PongWait, "WEBSOCKET_PONG_WAIT")

	mergeField(&c.Export.Dir, f.Export.Dir, "EXPORT_DIR")

	return c
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch c.Source.Driver {
	case DriverCSV:
		if c.Source.Path == "" {
			return fmt.Errorf("source path is required for the csv driver")
		}
	case DriverSQLite:
		if c.Source.DSN == "" && c.Source.Path == "" {
			return fmt.Errorf("source dsn or path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Source.DSN == "" {
			return fmt.Errorf("source dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown source driver: %q", c.Source.Driver)
	}

	if c.Source.QueryTimeout <= 0 {
		return fmt.Errorf("source query timeout must be positive")
	}

	if c.Analytics.SummaryConcurrency < 1 {
		return fmt.Errorf("analytics summary concurrency must be at least 1")
	}

	switch c.Telemetry.TracingExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unknown tracing exporter: %q", c.Telemetry.TracingExporter)
	}

	// Log records are always JSON
	c.Logging.Format = "json"

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, "fuelpulse.log")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: filepath.Join(DefaultLogsDir, "fuelpulse.log"),
		},
		Source: SourceConfig{
			Driver:       DriverCSV,
			Path:         DefaultSourcePath,
			Table:        DefaultSourceTable,
			QueryTimeout: DefaultQueryTimeout,
			AutoMigrate:  true,
		},
		Analytics: AnalyticsConfig{
			SummaryConcurrency: 4,
		},
		Telemetry: TelemetryConfig{
			ServiceName:     "fuelpulse",
			TracingExporter: "stdout",
			MetricsEnabled:  true,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Export: ExportConfig{
			CSVIncludeBOM: true,
			Dir:           DefaultExportsDir,
		},
	}
}
