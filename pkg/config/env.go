package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CheckoutPolicyAuto   = "auto"
	CheckoutPolicyManual = "manual"

	OutboxSinkRedis = "redis"
	OutboxSinkKafka = "kafka"

	defaultSQLiteDSN = "file:storefront.db?_busy_timeout=5000"
)

const (
	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvDBDSN          = "STOREFRONT_DB_DSN"
	EnvDBDriver       = "STOREFRONT_DB_DRIVER"
	EnvDBHost         = "STOREFRONT_DB_HOST"
	EnvDBUser         = "STOREFRONT_DB_USER"
	EnvDBName         = "STOREFRONT_DB_NAME"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvCheckoutPolicy = "STOREFRONT_CHECKOUT_POLICY"
	EnvOutboxSink     = "STOREFRONT_OUTBOX_SINK"
	EnvKafkaBrokers   = "STOREFRONT_KAFKA_BROKERS"
	EnvAdminToken     = "STOREFRONT_ADMIN_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
