package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the database is configured and
	// reachable.
	ReadinessRequireDB bool

	// Security policy: if true, TALLY_TOKEN_HMAC_KEY MUST be set
	// (>= 32 bytes) and refresh-credential hashing must be HMAC-based.
	RequireTokenHMAC bool

	// CookieSecure marks refresh cookies Secure. Disable only for local
	// plain-HTTP development.
	CookieSecure bool

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string

	// KafkaBrokers enables transfer-event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// DevSeed populates the in-memory stores with two demo users. Ignored
	// when a database is configured.
	DevSeed bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("TALLY_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("TALLY_LOG_LEVEL", "info"),
		LogFormat: EnvString("TALLY_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("TALLY_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TALLY_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TALLY_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TALLY_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TALLY_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("TALLY_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TALLY_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TALLY_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("TALLY_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("TALLY_REQUIRE_TOKEN_HMAC", false),

		CookieSecure: EnvBool("TALLY_COOKIE_SECURE", true),

		CORSAllowedOrigins: EnvStrings("TALLY_CORS_ALLOWED_ORIGINS", nil),

		KafkaBrokers: EnvStrings("TALLY_KAFKA_BROKERS", nil),
		KafkaTopic:   EnvString("TALLY_KAFKA_TOPIC", ""),

		DevSeed: EnvBool("TALLY_DEV_SEED", false),
	}
}
