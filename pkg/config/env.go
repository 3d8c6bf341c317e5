package config

import (
	"sort"
	"time"
)

const EnvPrefix = "ORDERING"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	MinGatewayTimeout = 10 * time.Second
	MaxGatewayTimeout = 30 * time.Second
)

const (
	EnvAppEnv              = "ORDERING_APP_ENV"
	EnvPort                = "ORDERING_APP_PORT"
	EnvDBDSN               = "ORDERING_DB_DSN"
	EnvDBHost              = "ORDERING_DB_HOST"
	EnvDBUser              = "ORDERING_DB_USER"
	EnvDBName              = "ORDERING_DB_NAME"
	EnvRedisURL            = "ORDERING_REDIS_URL"
	EnvJWTSecret           = "ORDERING_JWT_SECRET"
	EnvJWTIssuer           = "ORDERING_JWT_ISSUER"
	EnvStripeSecretKey     = "ORDERING_STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "ORDERING_STRIPE_WEBHOOK_SECRET"
	EnvCartSessionSecret   = "ORDERING_CART_SESSION_SECRET"
	EnvGatewayTimeout      = "ORDERING_CHECKOUT_GATEWAY_TIMEOUT"
)

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
