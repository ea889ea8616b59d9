package config

// EnvPrefix is the envconfig prefix; individual fields carry explicit
// TIRESYNC_ names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TIRESYNC_APP_ENV"
	EnvPort     = "TIRESYNC_APP_PORT"
	EnvDBDSN    = "TIRESYNC_DB_DSN"
	EnvDBHost   = "TIRESYNC_DB_HOST"
	EnvDBUser   = "TIRESYNC_DB_USER"
	EnvDBName   = "TIRESYNC_DB_NAME"
	EnvRedisURL = "TIRESYNC_REDIS_URL"

	EnvJWTSecret              = "TIRESYNC_JWT_SECRET"
	EnvJWTIssuer              = "TIRESYNC_JWT_ISSUER"
	EnvJWTExpMins             = "TIRESYNC_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TIRESYNC_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "TIRESYNC_GCP_PROJECT_ID"

	EnvPubSubRosterSub       = "TIRESYNC_PUBSUB_ROSTER_SUBSCRIPTION"
	EnvPubSubVerificationSub = "TIRESYNC_PUBSUB_VERIFICATION_SUBSCRIPTION"
	EnvPubSubNotificationSub = "TIRESYNC_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
