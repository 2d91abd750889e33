// Package config defines the top-level configuration for galabot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/galachain-tools/galabot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by GALABOT_* environment
// variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	GSwap    GSwapConfig    `toml:"gswap"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Engine   EngineConfig   `toml:"engine"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds GalaChain wallet credentials. GalaChain uses secp256k1
// keys; the wallet address is the "eth|..." alias derived from the public key.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	Address          string `toml:"address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// GSwapConfig holds GalaSwap gateway endpoints and client parameters.
type GSwapConfig struct {
	BaseURL         string   `toml:"base_url"`
	BundleURL       string   `toml:"bundle_url"`
	RequestTimeout  duration `toml:"request_timeout"`
	RateLimitPerSec int      `toml:"rate_limit_per_sec"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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
	// PriceTTL bounds how long a cached reference price is considered fresh.
	PriceTTL duration `toml:"price_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the trade
// archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// RetentionDays is how long trade records stay in Postgres before they
	// are exported to the archive.
	RetentionDays int `toml:"retention_days"`
}

// EngineConfig holds the trading engine parameters. Token quantities are
// decimal strings so operators never express them in binary floats.
type EngineConfig struct {
	// Policy selects the opportunity-selection variant: "best_of_venues",
	// "fixed_direction", "threshold_ranked" or "lunar_hold".
	Policy string `toml:"policy"`

	MinProfitPct    float64  `toml:"min_profit_pct"`
	MaxPositionSize string   `toml:"max_position_size"`
	CheckInterval   duration `toml:"check_interval"`
	ErrorBackoff    duration `toml:"error_backoff"`
	MaxSlippageBps  float64  `toml:"max_slippage_bps"`

	// Pairs lists oriented pairs as "GIVE/RECEIVE" symbol pairs.
	Pairs []string `toml:"pairs"`
	// Amounts lists candidate trade sizes as decimal strings, probed
	// smallest-first each cycle.
	Amounts []string `toml:"amounts"`
	// FeeTiers lists the venue fee tiers to quote, in basis points.
	FeeTiers []int `toml:"fee_tiers"`

	// PreferExotic breaks ties toward the reversed pair orientation instead
	// of taking the first venue combination found.
	PreferExotic bool `toml:"prefer_exotic"`

	// Hold-policy exit bounds.
	StopLossPct   float64  `toml:"stop_loss_pct"`
	TakeProfitPct float64  `toml:"take_profit_pct"`
	MaxHold       duration `toml:"max_hold"`

	// DryRun scans and records opportunities without submitting swaps.
	DryRun bool `toml:"dry_run"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration to support TOML string decoding ("30s", "5m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		GSwap: GSwapConfig{
			BaseURL:         "https://dex-backend-prod1.defi.gala.com",
			BundleURL:       "https://bundle-backend-prod1.defi.gala.com",
			RequestTimeout:  duration{15 * time.Second},
			RateLimitPerSec: 5,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "galabot",
			User:          "galabot",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			PriceTTL:   duration{time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "galabot-archive",
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Engine: EngineConfig{
			Policy:          "best_of_venues",
			MinProfitPct:    1.0,
			MaxPositionSize: "100",
			CheckInterval:   duration{30 * time.Second},
			ErrorBackoff:    duration{time.Minute},
			MaxSlippageBps:  50,
			Pairs:           []string{"GALA/GUSDC"},
			Amounts:         []string{"10", "50", "100"},
			FeeTiers:        []int{500, 3000, 10000},
			StopLossPct:     5,
			TakeProfitPct:   10,
			MaxHold:         duration{7 * 24 * time.Hour},
			DryRun:          true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_completed", "sell_leg_failed", "engine_stopped"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validPolicies enumerates the accepted engine policy variants.
var validPolicies = map[string]bool{
	"best_of_venues":   true,
	"fixed_direction":  true,
	"threshold_ranked": true,
	"lunar_hold":       true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading modes need a signing key unless running dry.
	needsWallet := (c.Mode == "trade" || c.Mode == "full") && !c.Engine.DryRun
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	if c.GSwap.BaseURL == "" {
		errs = append(errs, "gswap: base_url must not be empty")
	}
	if c.GSwap.RequestTimeout.Duration <= 0 {
		errs = append(errs, "gswap: request_timeout must be > 0")
	}
	if c.GSwap.RateLimitPerSec < 1 {
		errs = append(errs, "gswap: rate_limit_per_sec must be >= 1")
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.PriceTTL.Duration <= 0 {
		errs = append(errs, "redis: price_ttl must be > 0")
	}

	if !validPolicies[c.Engine.Policy] {
		errs = append(errs, fmt.Sprintf("engine: unknown policy %q (valid: best_of_venues, fixed_direction, threshold_ranked, lunar_hold)", c.Engine.Policy))
	}
	if c.Engine.MinProfitPct < 0 {
		errs = append(errs, "engine: min_profit_pct must be >= 0")
	}
	if c.Engine.CheckInterval.Duration <= 0 {
		errs = append(errs, "engine: check_interval must be > 0")
	}
	if c.Engine.ErrorBackoff.Duration <= 0 {
		errs = append(errs, "engine: error_backoff must be > 0")
	}
	if c.Engine.MaxSlippageBps < 0 {
		errs = append(errs, "engine: max_slippage_bps must be >= 0")
	}
	if len(c.Engine.Pairs) == 0 {
		errs = append(errs, "engine: at least one pair must be configured")
	}
	for _, p := range c.Engine.Pairs {
		if _, err := ParsePair(p); err != nil {
			errs = append(errs, fmt.Sprintf("engine: invalid pair %q: %v", p, err))
		}
	}
	if len(c.Engine.Amounts) == 0 {
		errs = append(errs, "engine: at least one candidate amount must be configured")
	}
	for _, a := range c.Engine.Amounts {
		v, err := domain.ParseAmount(a)
		if err != nil {
			errs = append(errs, fmt.Sprintf("engine: invalid amount %q: %v", a, err))
		} else if !v.IsPositive() {
			errs = append(errs, fmt.Sprintf("engine: amount %q must be > 0", a))
		}
	}
	if c.Engine.MaxPositionSize != "" {
		v, err := domain.ParseAmount(c.Engine.MaxPositionSize)
		if err != nil {
			errs = append(errs, fmt.Sprintf("engine: invalid max_position_size %q: %v", c.Engine.MaxPositionSize, err))
		} else if !v.IsPositive() {
			errs = append(errs, "engine: max_position_size must be > 0")
		}
	}
	if len(c.Engine.FeeTiers) < 2 {
		errs = append(errs, "engine: at least two fee_tiers are required to compare venues")
	}
	if c.Engine.Policy == "lunar_hold" {
		if c.Engine.StopLossPct <= 0 || c.Engine.TakeProfitPct <= 0 {
			errs = append(errs, "engine: stop_loss_pct and take_profit_pct must be > 0 for lunar_hold")
		}
		if c.Engine.MaxHold.Duration <= 0 {
			errs = append(errs, "engine: max_hold must be > 0 for lunar_hold")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParsePair parses "GIVE/RECEIVE" symbol notation into a domain.Pair.
func ParsePair(s string) (domain.Pair, error) {
	give, receive, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return domain.Pair{}, fmt.Errorf("want GIVE/RECEIVE, got %q", s)
	}
	g, err := domain.TokenBySymbol(strings.TrimSpace(give))
	if err != nil {
		return domain.Pair{}, err
	}
	r, err := domain.TokenBySymbol(strings.TrimSpace(receive))
	if err != nil {
		return domain.Pair{}, err
	}
	if g == r {
		return domain.Pair{}, fmt.Errorf("pair sides must differ, got %q", s)
	}
	return domain.Pair{Give: g, Receive: r}, nil
}

// EnginePairs returns the configured pairs parsed into domain form.
// Validate must have passed before calling.
func (c *Config) EnginePairs() []domain.Pair {
	pairs := make([]domain.Pair, 0, len(c.Engine.Pairs))
	for _, p := range c.Engine.Pairs {
		pair, err := ParsePair(p)
		if err != nil {
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// EngineAmounts returns the configured candidate amounts parsed into domain
// form. Validate must have passed before calling.
func (c *Config) EngineAmounts() []domain.Amount {
	amounts := make([]domain.Amount, 0, len(c.Engine.Amounts))
	for _, a := range c.Engine.Amounts {
		v, err := domain.ParseAmount(a)
		if err != nil {
			continue
		}
		amounts = append(amounts, v)
	}
	return amounts
}

// EngineFeeTiers returns the configured fee tiers in domain form.
func (c *Config) EngineFeeTiers() []domain.FeeTier {
	tiers := make([]domain.FeeTier, 0, len(c.Engine.FeeTiers))
	for _, t := range c.Engine.FeeTiers {
		tiers = append(tiers, domain.FeeTier(t))
	}
	return tiers
}
