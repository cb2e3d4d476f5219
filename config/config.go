package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort    int    `mapstructure:"http_port"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	LogLevel    string `mapstructure:"log_level"`
	ServiceName string `mapstructure:"service_name"` // Used for Consul registration

	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Consul   ConsulConfig   `mapstructure:"consul"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql, postgres or sqlite
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"` // silent, error, warn, info
}

type SecurityConfig struct {
	JwtSecret        string        `mapstructure:"jwt_secret"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	CookieName       string        `mapstructure:"cookie_name"`
	PasswordEncoder  string        `mapstructure:"password_encoder"` // bcrypt or noop
	BcryptCost       int           `mapstructure:"bcrypt_cost"`
	LoginPath        string        `mapstructure:"login_path"`
	LogoutSuccessURL string        `mapstructure:"logout_success_url"`
	SecureCookie     bool          `mapstructure:"secure_cookie"` // Set behind TLS
}

// SeedConfig describes the data written at startup.
type SeedConfig struct {
	Roles         []string `mapstructure:"roles"`
	AdminUsername string   `mapstructure:"admin_username"`
	AdminPassword string   `mapstructure:"admin_password"`
}

type ConsulConfig struct {
	Address string `mapstructure:"address"` // Empty disables registration
}

// AppConfig holds the configuration loaded by InitConfig.
var AppConfig Config

const defaultJwtSecret = "default-very-insecure-secret-key"

// New returns a viper instance with every default and the environment
// overrides registered. configFile may be empty to search the default paths.
func New(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable overrides, e.g. WEBGUARD_DATABASE_DSN
	v.SetEnvPrefix("WEBGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "webguard")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "webguard.db")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("security.jwt_secret", defaultJwtSecret) // CHANGE THIS IN PRODUCTION
	v.SetDefault("security.token_ttl", 24*time.Hour)
	v.SetDefault("security.cookie_name", "session_token")
	v.SetDefault("security.password_encoder", "bcrypt")
	v.SetDefault("security.bcrypt_cost", 10)
	v.SetDefault("security.login_path", "/login")
	v.SetDefault("security.logout_success_url", "/login")
	v.SetDefault("security.secure_cookie", false)

	v.SetDefault("seed.roles", []string{"ROLE_USER", "ROLE_ADMIN"})
	v.SetDefault("seed.admin_username", "admin")
	v.SetDefault("seed.admin_password", "admin")

	v.SetDefault("consul.address", "")
	return v
}

// Load reads configFile (or config.yaml from the search paths) and decodes it.
// A missing default config file is not an error; a missing explicit one is.
func Load(configFile string) (*Config, error) {
	v := New(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitConfig loads the configuration into AppConfig.
func InitConfig(configFile string) error {
	cfg, err := Load(configFile)
	if err != nil {
		return err
	}
	AppConfig = *cfg
	return nil
}

// Validate reports configuration that cannot start the service.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Security.PasswordEncoder {
	case "bcrypt", "noop":
	default:
		return fmt.Errorf("unsupported password encoder %q", c.Security.PasswordEncoder)
	}
	if c.Security.TokenTTL <= 0 {
		return errors.New("security.token_ttl must be positive")
	}
	if c.Seed.AdminUsername == "" {
		return errors.New("seed.admin_username is required")
	}
	return nil
}

// InsecureSecret reports whether the built-in JWT secret is still in use.
func (c *Config) InsecureSecret() bool {
	return c.Security.JwtSecret == defaultJwtSecret
}
