// Package config defines service configuration structures and loading.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the event log: memory, redis or postgres.
	StoreBackend string `koanf:"store_backend"`

	// RedisAddr and RedisKeyPrefix configure the redis event log.
	RedisAddr      string `koanf:"redis_addr"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// PostgresDSN configures the postgres event log.
	PostgresDSN string `koanf:"postgres_dsn"`

	// ToleranceSeconds is the out-of-order window: events may arrive up to
	// this far behind the latest accepted timestamp before being rejected
	// as stale.
	ToleranceSeconds int `koanf:"tolerance_seconds"`

	// LockTimeoutMS bounds how long one submission waits for its game's
	// ingestion turn.
	LockTimeoutMS int `koanf:"lock_timeout_ms"`

	// DedupeSize sets the size of the idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SubscriberBuffer is the per-subscriber channel capacity on the live
	// feed; OutboxBuffer is the per-game delta queue capacity.
	SubscriberBuffer int `koanf:"subscriber_buffer"`
	OutboxBuffer     int `koanf:"outbox_buffer"`

	// BlockedPolicy picks what happens to a subscriber that cannot keep
	// up: resync or disconnect.
	BlockedPolicy string `koanf:"blocked_policy"`

	// CORSAllowOrigins lists allowed browser origins.
	CORSAllowOrigins []string `koanf:"cors_allow_origins"`

	// Rate limiting per client IP.
	RateLimitEnabled  bool `koanf:"rate_limit_enabled"`
	RateLimitRequests int  `koanf:"rate_limit_requests"`
	RateLimitWindowS  int  `koanf:"rate_limit_window_s"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		StoreBackend:      "memory",
		RedisAddr:         "localhost:6379",
		RedisKeyPrefix:    "courtside",
		ToleranceSeconds:  30,
		LockTimeoutMS:     5000,
		DedupeSize:        500_000,
		SubscriberBuffer:  64,
		OutboxBuffer:      1024,
		BlockedPolicy:     "resync",
		CORSAllowOrigins:  []string{"*"},
		RateLimitEnabled:  false,
		RateLimitRequests: 100,
		RateLimitWindowS:  60,
	}
}
