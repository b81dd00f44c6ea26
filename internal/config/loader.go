package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PREDICTGATE_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PREDICTGATE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file. The chain table is TOML-only.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PREDICTGATE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PREDICTGATE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PREDICTGATE_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.KeystoreDir, "PREDICTGATE_WALLET_KEYSTORE_DIR")

	// ── Provider ──
	setStr(&cfg.Provider.RPCURL, "PREDICTGATE_PROVIDER_RPC_URL")
	setInt(&cfg.Provider.ChainPollSeconds, "PREDICTGATE_PROVIDER_CHAIN_POLL_SECONDS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PREDICTGATE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PREDICTGATE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PREDICTGATE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PREDICTGATE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PREDICTGATE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PREDICTGATE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PREDICTGATE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PREDICTGATE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PREDICTGATE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PREDICTGATE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PREDICTGATE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTGATE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTGATE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDICTGATE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDICTGATE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTGATE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PREDICTGATE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDICTGATE_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDICTGATE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDICTGATE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDICTGATE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PREDICTGATE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PREDICTGATE_S3_FORCE_PATH_STYLE")

	// ── Aggregator ──
	setInt(&cfg.Aggregator.AutoRefreshSeconds, "PREDICTGATE_AGGREGATOR_AUTO_REFRESH_SECONDS")

	// ── Server ──
	setInt(&cfg.Server.Port, "PREDICTGATE_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "PREDICTGATE_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PREDICTGATE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PREDICTGATE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PREDICTGATE_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Misc ──
	setStr(&cfg.LogLevel, "PREDICTGATE_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
