package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "MERCHDROP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "MERCHDROP_APP_ENV"
	EnvPort           = "MERCHDROP_APP_PORT"
	EnvLogLevel       = "MERCHDROP_LOG_LEVEL"
	EnvDBDSN          = "MERCHDROP_DB_DSN"
	EnvDBDriver       = "MERCHDROP_DB_DRIVER"
	EnvDBHost         = "MERCHDROP_DB_HOST"
	EnvDBUser         = "MERCHDROP_DB_USER"
	EnvDBName         = "MERCHDROP_DB_NAME"
	EnvRedisURL       = "MERCHDROP_REDIS_URL"
	EnvJWTSecret      = "MERCHDROP_JWT_SECRET"
	EnvPrintifyToken  = "MERCHDROP_PRINTIFY_API_TOKEN"
	EnvPrintifyShopID = "MERCHDROP_PRINTIFY_SHOP_ID"
	EnvStripeAPIKey   = "MERCHDROP_STRIPE_API_KEY"
	EnvCheckoutTax    = "MERCHDROP_CHECKOUT_TAX_RATE"
	EnvAdminKeyHash   = "MERCHDROP_ADMIN_KEY_HASH"
	EnvWebhookLease   = "MERCHDROP_WEBHOOK_CLAIM_LEASE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
