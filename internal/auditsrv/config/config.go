// Package config holds the configuration for the audit portal
// control-plane service. Configuration is loaded from a TOML file with a
// small number of environment variable overrides for secrets that should
// not live in the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DBConfig holds the connection parameters for the shared control-plane
// database that stores the client roster and credential records.
type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	DBName   string `toml:"dbname"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
}

// TenantDBConfig holds the defaults applied to per-client isolated
// databases: where they are hosted and how their connection pools are
// sized. Pools are deliberately small because every client gets its own
// pool and the aggregate across all clients must stay bounded.
type TenantDBConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnMaxIdleTime string `toml:"conn_max_idle_time"`
	ConnectTimeout  string `toml:"connect_timeout"`
	ProbeTimeout    string `toml:"probe_timeout"`
}

// GetConnMaxLifetimeOrDefault returns the pooled connection lifetime cap,
// or panics if the configured value is invalid.
func (t *TenantDBConfig) GetConnMaxLifetimeOrDefault() time.Duration {
	return mustDuration("tenantdb.conn_max_lifetime", t.ConnMaxLifetime)
}

// GetConnMaxIdleTimeOrDefault returns the pooled connection idle cap, or
// panics if the configured value is invalid.
func (t *TenantDBConfig) GetConnMaxIdleTimeOrDefault() time.Duration {
	return mustDuration("tenantdb.conn_max_idle_time", t.ConnMaxIdleTime)
}

// GetConnectTimeoutOrDefault returns the timeout for establishing a new
// tenant pool, or panics if the configured value is invalid.
func (t *TenantDBConfig) GetConnectTimeoutOrDefault() time.Duration {
	return mustDuration("tenantdb.connect_timeout", t.ConnectTimeout)
}

// GetProbeTimeoutOrDefault returns the timeout for a pool health probe,
// or panics if the configured value is invalid.
func (t *TenantDBConfig) GetProbeTimeoutOrDefault() time.Duration {
	return mustDuration("tenantdb.probe_timeout", t.ProbeTimeout)
}

// ObjectStoreConfig holds the S3-compatible object storage endpoint used
// for per-client evidence buckets.
type ObjectStoreConfig struct {
	Endpoint     string `toml:"endpoint"`
	Region       string `toml:"region"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// SecretsConfig holds the key material for credential encryption.
type SecretsConfig struct {
	// CredentialEncryptionPasswd encrypts generated tenant database
	// passwords before they are persisted in the registry. Rotating it
	// invalidates every stored credential blob.
	CredentialEncryptionPasswd string `toml:"credential_encryption_passwd"`
}

// AuthConfig holds the verification parameters for resolver tokens.
type AuthConfig struct {
	TokenSigningKey string `toml:"token_signing_key"`
	ClockSkew       string `toml:"clock_skew"`
}

// GetClockSkewOrDefault returns the allowed clock skew for token
// validation, or panics if the configured value is invalid.
func (a *AuthConfig) GetClockSkewOrDefault() time.Duration {
	return mustDuration("auth.clock_skew", a.ClockSkew)
}

// ConfigParam holds all configuration parameters for the audit portal
// service.
type ConfigParam struct {
	FormatVersion string `toml:"format_version"`

	ServerHostName        string `toml:"server_hostname"`
	ServerPort            string `toml:"server_port"`
	HandleCORS            bool   `toml:"handle_cors"`
	DefaultRequestTimeout string `toml:"default_request_timeout"`

	DB          DBConfig          `toml:"db"`
	TenantDB    TenantDBConfig    `toml:"tenantdb"`
	ObjectStore ObjectStoreConfig `toml:"objectstore"`
	Secrets     SecretsConfig     `toml:"secrets"`
	Auth        AuthConfig        `toml:"auth"`
}

// GetDefaultRequestTimeoutOrDefault returns the request timeout, or
// panics if the configured value is invalid.
func (c *ConfigParam) GetDefaultRequestTimeoutOrDefault() time.Duration {
	return mustDuration("default_request_timeout", c.DefaultRequestTimeout)
}

var cfg *ConfigParam

// Config returns the loaded configuration. LoadConfig or TestInit must be
// called first.
func Config() *ConfigParam {
	return cfg
}

// LoadConfig reads the configuration file at the given path, applies
// defaults and environment overrides, and validates the result.
func LoadConfig(path string) error {
	// .env is optional; used in development setups
	_ = godotenv.Load()

	c := defaultConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("unable to decode config file %s: %w", path, err)
	}
	applyEnvOverrides(c)
	if err := c.validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// applyEnvOverrides lets deployments inject secrets without writing them
// into the config file.
func applyEnvOverrides(c *ConfigParam) {
	if v := os.Getenv("ATTESTRA_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("ATTESTRA_CREDENTIAL_ENCRYPTION_PASSWD"); v != "" {
		c.Secrets.CredentialEncryptionPasswd = v
	}
	if v := os.Getenv("ATTESTRA_OBJECTSTORE_ACCESS_KEY"); v != "" {
		c.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("ATTESTRA_OBJECTSTORE_SECRET_KEY"); v != "" {
		c.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("ATTESTRA_TOKEN_SIGNING_KEY"); v != "" {
		c.Auth.TokenSigningKey = v
	}
}

func defaultConfig() *ConfigParam {
	return &ConfigParam{
		ServerHostName:        "0.0.0.0",
		ServerPort:            "8678",
		DefaultRequestTimeout: "30s",
		DB: DBConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		TenantDB: TenantDBConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    1,
			ConnMaxLifetime: "30m",
			ConnMaxIdleTime: "5m",
			ConnectTimeout:  "5s",
			ProbeTimeout:    "2s",
		},
		ObjectStore: ObjectStoreConfig{
			Region:       "us-east-1",
			UsePathStyle: true,
		},
		Auth: AuthConfig{
			ClockSkew: "30s",
		},
	}
}

func (c *ConfigParam) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("server port not defined")
	}
	if c.DB.DBName == "" || c.DB.User == "" {
		return fmt.Errorf("control-plane db name and user are required")
	}
	if c.Secrets.CredentialEncryptionPasswd == "" {
		return fmt.Errorf("credential encryption password is required")
	}
	for _, d := range []struct {
		name  string
		value string
	}{
		{"default_request_timeout", c.DefaultRequestTimeout},
		{"tenantdb.conn_max_lifetime", c.TenantDB.ConnMaxLifetime},
		{"tenantdb.conn_max_idle_time", c.TenantDB.ConnMaxIdleTime},
		{"tenantdb.connect_timeout", c.TenantDB.ConnectTimeout},
		{"tenantdb.probe_timeout", c.TenantDB.ProbeTimeout},
		{"auth.clock_skew", c.Auth.ClockSkew},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}
	return nil
}

func mustDuration(name, value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return d
}

// TestInit installs a configuration suitable for unit tests. Values point
// at local services; tests that need live infrastructure read these.
func TestInit() {
	cfg = defaultConfig()
	cfg.DB.DBName = "attestra_test"
	cfg.DB.User = "attestra"
	cfg.DB.Password = "attestra"
	cfg.Secrets.CredentialEncryptionPasswd = "test-credential-passwd"
	cfg.Auth.TokenSigningKey = "test-signing-key"
}
