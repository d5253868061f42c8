package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	Outbox       OutboxConfig
	Kafka        KafkaConfig
	Cron         CronConfig
	Admin        AdminConfig
	Discord      DiscordConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(cfg.Kafka); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the latency above which statements are logged; 0 disables.
	SlowQuery time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the embedded SQLite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	Policy         string        `envconfig:"STOREFRONT_CHECKOUT_POLICY" default:"auto"`
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL" default:"10m"`
}

// ManualFulfillment reports whether checkouts stay pending until an admin completes them.
func (c CheckoutConfig) ManualFulfillment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Policy), CheckoutPolicyManual)
}

func (c CheckoutConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Policy)) {
	case "", CheckoutPolicyAuto, CheckoutPolicyManual:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvCheckoutPolicy, CheckoutPolicyAuto, CheckoutPolicyManual, c.Policy)
	}
}

type RateLimitConfig struct {
	CartWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CART_WINDOW" default:"1m"`
	CartLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_CART_LIMIT" default:"60"`

	// Confirm-purchase clicks get a tighter budget than cart edits.
	CheckoutWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Sink           string `envconfig:"STOREFRONT_OUTBOX_SINK" default:"redis"`
	Channel        string `envconfig:"STOREFRONT_OUTBOX_CHANNEL" default:"storefront:orders"`
	RetentionDays  int    `envconfig:"STOREFRONT_OUTBOX_RETENTION_DAYS" default:"30"`

	// DeadLetterRetentionDays bounds how long terminal failures stay
	// inspectable through the admin dead-letter endpoint.
	DeadLetterRetentionDays int `envconfig:"STOREFRONT_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

func (o OutboxConfig) validate(kafka KafkaConfig) error {
	switch strings.ToLower(strings.TrimSpace(o.Sink)) {
	case "", OutboxSinkRedis:
		return nil
	case OutboxSinkKafka:
		if len(kafka.Brokers) == 0 {
			return fmt.Errorf("%s is required when %s=%s", EnvKafkaBrokers, EnvOutboxSink, OutboxSinkKafka)
		}
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvOutboxSink, OutboxSinkRedis, OutboxSinkKafka, o.Sink)
	}
}

type KafkaConfig struct {
	Brokers  []string `envconfig:"STOREFRONT_KAFKA_BROKERS"`
	Topic    string   `envconfig:"STOREFRONT_KAFKA_TOPIC" default:"storefront.orders"`
	ClientID string   `envconfig:"STOREFRONT_KAFKA_CLIENT_ID" default:"storefront-outbox"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"1m"`
	PendingOrderTTL time.Duration `envconfig:"STOREFRONT_PENDING_ORDER_TTL" default:"72h"`
}

type AdminConfig struct {
	Token string `envconfig:"STOREFRONT_ADMIN_TOKEN"`
}

// DiscordConfig is consumed by the bot adapter only; core services never read it.
type DiscordConfig struct {
	GuildID          string `envconfig:"STOREFRONT_DISCORD_GUILD_ID"`
	AdminRoleID      string `envconfig:"STOREFRONT_DISCORD_ADMIN_ROLE_ID"`
	CustomerRoleID   string `envconfig:"STOREFRONT_DISCORD_CUSTOMER_ROLE_ID"`
	TicketCategoryID string `envconfig:"STOREFRONT_DISCORD_TICKET_CATEGORY_ID"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
