package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Provider.RPCURL = "http://localhost:8545"
	cfg.Wallet.PrivateKey = "0x" + strings.Repeat("ab", 32)
	return cfg
}

func TestDefaultsChainTable(t *testing.T) {
	cfg := Defaults()

	tests := []struct {
		id      uint64
		name    string
		address string
	}{
		{534351, "Scroll Sepolia", "0x96a8755E1736C172DfE28278C6522db5F2BB0A75"},
		{78600, "Vanar Vanguard", "0x96a8755E1736C172DfE28278C6522db5F2BB0A75"},
	}

	for _, tt := range tests {
		ch, ok := cfg.ChainByID(tt.id)
		if !ok {
			t.Fatalf("ChainByID(%d) not found", tt.id)
		}
		if ch.Name != tt.name {
			t.Errorf("chain %d name = %q, want %q", tt.id, ch.Name, tt.name)
		}
		if ch.ContractAddress != tt.address {
			t.Errorf("chain %d address = %q, want %q", tt.id, ch.ContractAddress, tt.address)
		}
	}

	if _, ok := cfg.ChainByID(1); ok {
		t.Error("ChainByID(1) should not be in the default table")
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"missing rpc url", func(c *Config) { c.Provider.RPCURL = "" }, "rpc_url"},
		{"no chains", func(c *Config) { c.Chains = nil }, "chains"},
		{"duplicate chain", func(c *Config) { c.Chains = append(c.Chains, c.Chains[0]) }, "duplicate"},
		{"bad address", func(c *Config) { c.Chains[0].ContractAddress = "0x123" }, "hex address"},
		{"no key source", func(c *Config) {
			c.Wallet = WalletConfig{}
		}, "wallet"},
		{"encrypted key without password", func(c *Config) {
			c.Wallet.EncryptedKeyPath = "key.json"
			c.Wallet.KeyPassword = ""
		}, "key_password"},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis"},
		{"s3 bucket without region", func(c *Config) {
			c.S3.Bucket = "archives"
			c.S3.Region = ""
		}, "region"},
		{"bad port", func(c *Config) { c.Server.Port = 99999 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTGATE_PROVIDER_RPC_URL", "http://node.example:8545")
	t.Setenv("PREDICTGATE_REDIS_ADDR", "redis.example:6379")
	t.Setenv("PREDICTGATE_SERVER_PORT", "9090")
	t.Setenv("PREDICTGATE_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("PREDICTGATE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider.RPCURL != "http://node.example:8545" {
		t.Errorf("RPCURL = %q", cfg.Provider.RPCURL)
	}
	if cfg.Redis.Addr != "redis.example:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Postgres.RunMigrations {
		t.Error("RunMigrations should be overridden to false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadEmptyEnvDoesNotOverride(t *testing.T) {
	t.Setenv("PREDICTGATE_REDIS_ADDR", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want default", cfg.Redis.Addr)
	}
}
