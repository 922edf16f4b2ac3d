package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains the local license API configuration
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// LicenseConfig contains the license core configuration. Secret and Salt feed
// both token signing and key derivation for the encrypted license file.
type LicenseConfig struct {
	Secret             string        `yaml:"secret" split_words:"true"`
	Salt               string        `yaml:"salt" split_words:"true"`
	SignatureAlgorithm string        `yaml:"signature_algorithm" split_words:"true"`
	StateFile          string        `yaml:"state_file" split_words:"true"`
	RevocationFile     string        `yaml:"revocation_file" split_words:"true"`
	ExpiringSoonDays   int           `yaml:"expiring_soon_days" split_words:"true"`
	WatchFiles         bool          `yaml:"watch_files" split_words:"true"`
	WatchDebounce      time.Duration `yaml:"watch_debounce" split_words:"true"`
	KDF                KDFConfig     `yaml:"kdf" envconfig:"KDF"`
}

// KDFConfig contains scrypt cost parameters
type KDFConfig struct {
	N int `yaml:"n" split_words:"true"`
	R int `yaml:"r" split_words:"true"`
	P int `yaml:"p" split_words:"true"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" split_words:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains activation rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true"`
	Format   string `yaml:"format" split_words:"true"`
	Output   string `yaml:"output" split_words:"true"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" split_words:"true"`
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true"`
	MetricExporter string  `yaml:"metric_exporter" split_words:"true"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true"`
}

// Load loads configuration from defaults, the optional YAML file and
// environment variables, in that order of precedence (env wins).
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// No default tags on the struct, so envconfig only touches fields whose
	// variables are actually set.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file on cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths fills in the per-user state file and the revocation list
// location when they were not configured explicitly.
func (c *Config) resolvePaths() error {
	if c.License.StateFile != "" && c.License.RevocationFile != "" {
		return nil
	}

	paths, err := GetPaths()
	if err != nil {
		return err
	}
	if c.License.StateFile == "" {
		c.License.StateFile = paths.LicenseFile
	}
	if c.License.RevocationFile == "" {
		c.License.RevocationFile = paths.RevocationFile
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.License.Secret == "" {
		return fmt.Errorf("license secret must not be empty")
	}

	switch c.License.SignatureAlgorithm {
	case SignatureMD5, SignatureHMACSHA256:
	default:
		return fmt.Errorf("unsupported signature algorithm: %q", c.License.SignatureAlgorithm)
	}

	if c.License.ExpiringSoonDays < 0 {
		return fmt.Errorf("expiring_soon_days must not be negative")
	}

	if c.License.KDF.N <= 1 || c.License.KDF.N&(c.License.KDF.N-1) != 0 {
		return fmt.Errorf("kdf n must be a power of two greater than 1, got %d", c.License.KDF.N)
	}
	if c.License.KDF.R <= 0 || c.License.KDF.P <= 0 {
		return fmt.Errorf("kdf r and p must be positive")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when enabled")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	return nil
}

// Addr returns the listen address of the local API
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"presenter.yaml",
		"configs/presenter.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            7420,
			ReadTimeout:     DefaultHTTPTimeout,
			WriteTimeout:    DefaultHTTPTimeout,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		License: LicenseConfig{
			Secret:             DefaultLicenseSecret,
			Salt:               DefaultKDFSalt,
			SignatureAlgorithm: SignatureMD5,
			ExpiringSoonDays:   DefaultExpiringSoonDays,
			WatchFiles:         true,
			WatchDebounce:      DefaultWatchDebounce,
			KDF: KDFConfig{
				N: DefaultScryptN,
				R: DefaultScryptR,
				P: DefaultScryptP,
			},
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost", "app://presenter"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultActivationRPS,
				Burst:   DefaultActivationBurst,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/presenter-license.log",
		},
		Telemetry: TelemetryConfig{
			Environment:    "production",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
