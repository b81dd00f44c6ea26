// Package config defines the top-level configuration for the prediction
// market gateway and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PREDICTGATE_* environment
// variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Provider   ProviderConfig   `toml:"provider"`
	Chains     []ChainConfig    `toml:"chains"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds the signing key sources for the local wallet.
type WalletConfig struct {
	// PrivateKey is a hex-encoded key, with or without 0x prefix. If set it
	// takes precedence over EncryptedKeyPath.
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	// KeystoreDir is where imported keys live between runs. The presence of
	// accounts here is what makes session restore possible without a new
	// authorization.
	KeystoreDir string `toml:"keystore_dir"`
}

// ProviderConfig holds the node provider (JSON-RPC endpoint) parameters.
type ProviderConfig struct {
	RPCURL string `toml:"rpc_url"`
	// ChainPollSeconds is how often the session manager re-reads eth_chainId
	// to detect a network switch on the endpoint.
	ChainPollSeconds int `toml:"chain_poll_seconds"`
}

// ChainConfig maps one chain id to its deployed contract address. Chains not
// listed here are unsupported: the binding factory reports them as
// unavailable and no contract call is attempted.
type ChainConfig struct {
	ID              uint64 `toml:"id"`
	Name            string `toml:"name"`
	ContractAddress string `toml:"contract_address"`
}

// PostgresConfig holds PostgreSQL connection parameters for the transaction
// journal.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the resolved
// market archiver. Leaving Bucket empty disables archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// AggregatorConfig holds refresh behavior parameters.
type AggregatorConfig struct {
	// AutoRefreshSeconds starts a background refresh ticker when positive.
	// Explicit refresh requests work either way.
	AutoRefreshSeconds int `toml:"auto_refresh_seconds"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel parameters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration. The shipped chain table lists
// both supported testnets; that they currently share a contract address is a
// property of the deployment, not of this code.
func Defaults() Config {
	return Config{
		Wallet: WalletConfig{
			KeystoreDir: "keystore",
		},
		Provider: ProviderConfig{
			ChainPollSeconds: 15,
		},
		Chains: []ChainConfig{
			{ID: 534351, Name: "Scroll Sepolia", ContractAddress: "0x96a8755E1736C172DfE28278C6522db5F2BB0A75"},
			{ID: 78600, Name: "Vanar Vanguard", ContractAddress: "0x96a8755E1736C172DfE28278C6522db5F2BB0A75"},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "predictgate",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ChainByID returns the chain entry for the given id, or false when the
// chain is not in the table.
func (c *Config) ChainByID(id uint64) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.ID == id {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// Validate checks the configuration for internal consistency and returns an
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.TrimSpace(c.Provider.RPCURL) == "" {
		errs = append(errs, "provider: rpc_url must not be empty")
	}
	if c.Provider.ChainPollSeconds < 0 {
		errs = append(errs, "provider: chain_poll_seconds must not be negative")
	}

	if len(c.Chains) == 0 {
		errs = append(errs, "chains: at least one supported chain must be configured")
	}
	seen := make(map[uint64]bool, len(c.Chains))
	for i, ch := range c.Chains {
		if ch.ID == 0 {
			errs = append(errs, fmt.Sprintf("chains[%d]: id must be positive", i))
		}
		if seen[ch.ID] {
			errs = append(errs, fmt.Sprintf("chains[%d]: duplicate chain id %d", i, ch.ID))
		}
		seen[ch.ID] = true
		if !isHexAddress(ch.ContractAddress) {
			errs = append(errs, fmt.Sprintf("chains[%d]: contract_address %q is not a 0x-prefixed 20-byte hex address", i, ch.ContractAddress))
		}
	}

	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" && c.Wallet.KeystoreDir == "" {
		errs = append(errs, "wallet: one of private_key, encrypted_key_path, or keystore_dir must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Postgres.DSN == "" && c.Postgres.Host == "" {
		errs = append(errs, "postgres: either dsn or host must be set")
	}

	// S3 is optional; when enabled the region is mandatory.
	if c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, "s3: region is required when bucket is set")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isHexAddress reports whether s looks like a 0x-prefixed Ethereum address.
func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
