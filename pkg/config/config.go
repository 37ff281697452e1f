package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the gateway configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Signing    SigningConfig    `mapstructure:"signing"`
	Allocation AllocationConfig `mapstructure:"allocation"`
	WalletSync WalletSyncConfig `mapstructure:"wallet_sync"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Shutdown   ShutdownConfig   `mapstructure:"shutdown"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// LedgerConfig contains Canton participant connection settings
type LedgerConfig struct {
	Address        string        `mapstructure:"address"`
	UserID         string        `mapstructure:"user_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TLS            TLSConfig     `mapstructure:"tls"`
	Auth           AuthConfig    `mapstructure:"auth"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	CAFile   string `mapstructure:"ca_file"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWKSURL      string `mapstructure:"jwks_url"`
	JWTIssuer    string `mapstructure:"jwt_issuer"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	TokenFile    string `mapstructure:"token_file"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Audience     string `mapstructure:"audience"`
	TokenURL     string `mapstructure:"token_url"`
}

// SigningConfig contains signing driver settings
type SigningConfig struct {
	// MasterKey encrypts internally held private keys at rest (base64, 32 bytes).
	MasterKey string `mapstructure:"master_key"`
	// Seed deterministically derives per-user internal keys when set (base64).
	Seed       string          `mapstructure:"seed"`
	Fireblocks CustodianConfig `mapstructure:"fireblocks"`
	DFNS       CustodianConfig `mapstructure:"dfns"`
}

// CustodianConfig contains one custody vendor's connection settings
type CustodianConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// AllocationConfig contains party allocation settings
type AllocationConfig struct {
	PollAttempts int           `mapstructure:"poll_attempts"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// WalletSyncConfig contains wallet reconciliation settings
type WalletSyncConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "wallet_gateway")

	// Ledger defaults
	viper.SetDefault("ledger.request_timeout", "30s")

	// Custodian defaults
	viper.SetDefault("signing.fireblocks.enabled", false)
	viper.SetDefault("signing.fireblocks.request_timeout", "30s")
	viper.SetDefault("signing.fireblocks.poll_interval", "5s")
	viper.SetDefault("signing.dfns.enabled", false)
	viper.SetDefault("signing.dfns.request_timeout", "30s")
	viper.SetDefault("signing.dfns.poll_interval", "5s")

	// Allocation defaults
	viper.SetDefault("allocation.poll_attempts", 10)
	viper.SetDefault("allocation.poll_interval", "1s")

	// Wallet sync defaults
	viper.SetDefault("wallet_sync.interval", "30s")
	viper.SetDefault("wallet_sync.concurrency", 4)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_port", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")

	// Shutdown defaults
	viper.SetDefault("shutdown.timeout", "30s")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Ledger.Address == "" {
		return fmt.Errorf("ledger.address is required")
	}
	if config.Ledger.UserID == "" {
		return fmt.Errorf("ledger.user_id is required")
	}
	if config.Signing.Fireblocks.Enabled && config.Signing.Fireblocks.BaseURL == "" {
		return fmt.Errorf("signing.fireblocks.base_url is required when fireblocks is enabled")
	}
	if config.Signing.DFNS.Enabled && config.Signing.DFNS.BaseURL == "" {
		return fmt.Errorf("signing.dfns.base_url is required when dfns is enabled")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
