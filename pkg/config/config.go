package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Line          LineConfig
	Linking       LinkingConfig
	Verification  VerificationConfig
	Notifications NotificationsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TIRESYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"TIRESYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIRESYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIRESYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIRESYNC_DB_DSN"`
	Driver string `envconfig:"TIRESYNC_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TIRESYNC_DB_HOST"`
	Port     int    `envconfig:"TIRESYNC_DB_PORT" default:"5432"`
	User     string `envconfig:"TIRESYNC_DB_USER"`
	Password string `envconfig:"TIRESYNC_DB_PASSWORD"`
	Name     string `envconfig:"TIRESYNC_DB_NAME"`
	SSLMode  string `envconfig:"TIRESYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIRESYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIRESYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIRESYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIRESYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIRESYNC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIRESYNC_REDIS_ADDR"`
	Password     string        `envconfig:"TIRESYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIRESYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIRESYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIRESYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIRESYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIRESYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIRESYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TIRESYNC_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TIRESYNC_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TIRESYNC_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TIRESYNC_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TIRESYNC_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TIRESYNC_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TIRESYNC_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TIRESYNC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TIRESYNC_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"TIRESYNC_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"TIRESYNC_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"TIRESYNC_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TIRESYNC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TIRESYNC_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TIRESYNC_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TIRESYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TIRESYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	RosterTopic              string `envconfig:"TIRESYNC_PUBSUB_ROSTER_TOPIC" default:"ts-roster-events"`
	RosterSubscription       string `envconfig:"TIRESYNC_PUBSUB_ROSTER_SUBSCRIPTION" required:"true"`
	VerificationTopic        string `envconfig:"TIRESYNC_PUBSUB_VERIFICATION_TOPIC" default:"ts-verification-events"`
	VerificationSubscription string `envconfig:"TIRESYNC_PUBSUB_VERIFICATION_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"TIRESYNC_PUBSUB_NOTIFICATION_TOPIC" default:"ts-notification-events"`
	NotificationSubscription string `envconfig:"TIRESYNC_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type LineConfig struct {
	APIBaseURL     string        `envconfig:"TIRESYNC_LINE_API_BASE_URL" default:"https://api.line.me"`
	ChannelToken   string        `envconfig:"TIRESYNC_LINE_CHANNEL_TOKEN"`
	RequestTimeout time.Duration `envconfig:"TIRESYNC_LINE_REQUEST_TIMEOUT" default:"10s"`
}

type LinkingConfig struct {
	CodeLength int           `envconfig:"TIRESYNC_LINK_CODE_LENGTH" default:"6"`
	CodeTTL    time.Duration `envconfig:"TIRESYNC_LINK_CODE_TTL" default:"10m"`
}

type VerificationConfig struct {
	PollInterval time.Duration `envconfig:"TIRESYNC_VERIFICATION_POLL_INTERVAL" default:"30s"`
}

type NotificationsConfig struct {
	RetentionDays int `envconfig:"TIRESYNC_NOTIFICATION_RETENTION_DAYS" default:"90"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
