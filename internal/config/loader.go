package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies GALABOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GALABOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "GALABOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.Address, "GALABOT_WALLET_ADDRESS")
	setStr(&cfg.Wallet.EncryptedKeyPath, "GALABOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "GALABOT_WALLET_KEY_PASSWORD")

	// ── GSwap ──
	setStr(&cfg.GSwap.BaseURL, "GALABOT_GSWAP_BASE_URL")
	setStr(&cfg.GSwap.BundleURL, "GALABOT_GSWAP_BUNDLE_URL")
	setDuration(&cfg.GSwap.RequestTimeout, "GALABOT_GSWAP_REQUEST_TIMEOUT")
	setInt(&cfg.GSwap.RateLimitPerSec, "GALABOT_GSWAP_RATE_LIMIT_PER_SEC")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "GALABOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "GALABOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "GALABOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "GALABOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "GALABOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "GALABOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "GALABOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "GALABOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "GALABOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "GALABOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "GALABOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "GALABOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "GALABOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "GALABOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "GALABOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "GALABOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "GALABOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "GALABOT_REDIS_PRICE_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "GALABOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "GALABOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "GALABOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "GALABOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "GALABOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "GALABOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "GALABOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "GALABOT_S3_RETENTION_DAYS")

	// ── Engine ──
	setStr(&cfg.Engine.Policy, "GALABOT_ENGINE_POLICY")
	setFloat64(&cfg.Engine.MinProfitPct, "GALABOT_ENGINE_MIN_PROFIT_PCT")
	setStr(&cfg.Engine.MaxPositionSize, "GALABOT_ENGINE_MAX_POSITION_SIZE")
	setDuration(&cfg.Engine.CheckInterval, "GALABOT_ENGINE_CHECK_INTERVAL")
	setDuration(&cfg.Engine.ErrorBackoff, "GALABOT_ENGINE_ERROR_BACKOFF")
	setFloat64(&cfg.Engine.MaxSlippageBps, "GALABOT_ENGINE_MAX_SLIPPAGE_BPS")
	setStringSlice(&cfg.Engine.Pairs, "GALABOT_ENGINE_PAIRS")
	setStringSlice(&cfg.Engine.Amounts, "GALABOT_ENGINE_AMOUNTS")
	setIntSlice(&cfg.Engine.FeeTiers, "GALABOT_ENGINE_FEE_TIERS")
	setBool(&cfg.Engine.PreferExotic, "GALABOT_ENGINE_PREFER_EXOTIC")
	setFloat64(&cfg.Engine.StopLossPct, "GALABOT_ENGINE_STOP_LOSS_PCT")
	setFloat64(&cfg.Engine.TakeProfitPct, "GALABOT_ENGINE_TAKE_PROFIT_PCT")
	setDuration(&cfg.Engine.MaxHold, "GALABOT_ENGINE_MAX_HOLD")
	setBool(&cfg.Engine.DryRun, "GALABOT_ENGINE_DRY_RUN")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "GALABOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "GALABOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "GALABOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "GALABOT_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "GALABOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "GALABOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "GALABOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "GALABOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "GALABOT_MODE")
	setStr(&cfg.LogLevel, "GALABOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setIntSlice(dst *[]int, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return
			}
			out = append(out, n)
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
