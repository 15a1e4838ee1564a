package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	I2C      I2CConfig      `mapstructure:"i2c"`
	Boards   BoardsConfig   `mapstructure:"boards"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// Auth Configuration
type AuthConfig struct {
	JWTSecretEnv   string        `mapstructure:"jwt_secret_env"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Users          []UserConfig  `mapstructure:"users"`
}

// UserConfig is a login account. PasswordHash is an argon2id PHC string.
type UserConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

type I2CConfig struct {
	Bus      string `mapstructure:"bus"`
	KeepOpen bool   `mapstructure:"keep_open"`
}

type BoardsConfig struct {
	SearchPaths      []string      `mapstructure:"search_paths"`
	DefaultHeartbeat time.Duration `mapstructure:"default_heartbeat"`
}

var validRoles = map[string]bool{
	"operator":   true,
	"technician": true,
	"admin":      true,
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("log.development", false)
	v.SetDefault("i2c.bus", "1")
	v.SetDefault("i2c.keep_open", false)
	v.SetDefault("boards.search_paths", []string{"./boards"})
	v.SetDefault("boards.default_heartbeat", "3s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "ioplusd")
	v.SetDefault("database.user", "ioplusd")
	v.SetDefault("database.max_connections", 4)

	// Auth Defaults
	v.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	v.SetDefault("auth.access_token_ttl", "60m")

	// Environment Variables with prefix IOPLUS_, e.g. IOPLUS_I2C_BUS
	v.SetEnvPrefix("IOPLUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}
	if c.Boards.DefaultHeartbeat <= 0 {
		return fmt.Errorf("boards.default_heartbeat must be positive, got %s", c.Boards.DefaultHeartbeat)
	}
	for _, u := range c.Auth.Users {
		if u.Username == "" {
			return fmt.Errorf("auth user without username")
		}
		if !validRoles[u.Role] {
			return fmt.Errorf("auth user %q: unknown role %q", u.Username, u.Role)
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

const devJWTSecret = "dev-secret-change-in-production-min-32-chars"

// GetJWTSecret reads the signing secret from the configured environment
// variable and falls back to a development secret.
func (a *AuthConfig) GetJWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "JWT_SECRET" // Fallback
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		return devJWTSecret
	}
	return secret
}

// IsProductionReady reports whether a real secret of at least 32 bytes is set.
func (a *AuthConfig) IsProductionReady() bool {
	secret := a.GetJWTSecret()
	return secret != devJWTSecret && len(secret) >= 32
}
