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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Mail          MailConfig
	Notifications NotificationsConfig
	Directory     DirectoryConfig
	Cron          CronConfig
	Seed          SeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CABLEQUOTES_APP_ENV" required:"true"`
	Port         string `envconfig:"CABLEQUOTES_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"CABLEQUOTES_APP_PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"CABLEQUOTES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CABLEQUOTES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AppURL returns the public base URL without a trailing slash.
func (a AppConfig) AppURL() string {
	return strings.TrimRight(strings.TrimSpace(a.PublicURL), "/")
}

type ServiceConfig struct {
	Kind string `envconfig:"CABLEQUOTES_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CABLEQUOTES_DB_DSN"`
	Driver string `envconfig:"CABLEQUOTES_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"CABLEQUOTES_DB_SQLITE_PATH" default:"cablequotes.db"`

	LegacyHost     string `envconfig:"CABLEQUOTES_DB_HOST"`
	LegacyPort     int    `envconfig:"CABLEQUOTES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CABLEQUOTES_DB_USER"`
	LegacyPassword string `envconfig:"CABLEQUOTES_DB_PASSWORD"`
	LegacyName     string `envconfig:"CABLEQUOTES_DB_NAME"`
	LegacySSLMode  string `envconfig:"CABLEQUOTES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CABLEQUOTES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CABLEQUOTES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CABLEQUOTES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CABLEQUOTES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the threshold above which statements are logged at warn level. Zero disables it.
	SlowQuery time.Duration `envconfig:"CABLEQUOTES_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CABLEQUOTES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CABLEQUOTES_REDIS_ADDR"`
	Password     string        `envconfig:"CABLEQUOTES_REDIS_PASSWORD"`
	DB           int           `envconfig:"CABLEQUOTES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CABLEQUOTES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CABLEQUOTES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CABLEQUOTES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CABLEQUOTES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CABLEQUOTES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CABLEQUOTES_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CABLEQUOTES_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CABLEQUOTES_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CABLEQUOTES_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CABLEQUOTES_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CABLEQUOTES_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CABLEQUOTES_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CABLEQUOTES_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CABLEQUOTES_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"CABLEQUOTES_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginAccountLimit int           `envconfig:"CABLEQUOTES_AUTH_RATE_LIMIT_LOGIN_ACCOUNT_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"CABLEQUOTES_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CABLEQUOTES_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CABLEQUOTES_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CABLEQUOTES_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type MailConfig struct {
	Driver   string        `envconfig:"CABLEQUOTES_MAIL_DRIVER" default:"log"`
	Host     string        `envconfig:"CABLEQUOTES_MAIL_SERVER"`
	Port     int           `envconfig:"CABLEQUOTES_MAIL_PORT" default:"465"`
	UseSSL   bool          `envconfig:"CABLEQUOTES_MAIL_USE_SSL" default:"true"`
	Username string        `envconfig:"CABLEQUOTES_MAIL_USERNAME"`
	Password string        `envconfig:"CABLEQUOTES_MAIL_PASSWORD"`
	From     string        `envconfig:"CABLEQUOTES_MAIL_DEFAULT_SENDER"`
	Timeout  time.Duration `envconfig:"CABLEQUOTES_MAIL_TIMEOUT" default:"15s"`
}

// UsesSMTP reports whether messages go out over SMTP rather than the log driver.
func (m MailConfig) UsesSMTP() bool {
	return strings.EqualFold(strings.TrimSpace(m.Driver), MailDriverSMTP)
}

func (m MailConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(m.Driver)) {
	case MailDriverLog:
		return nil
	case MailDriverSMTP:
		missing := []string{}
		if m.Host == "" {
			missing = append(missing, EnvMailServer)
		}
		if m.From == "" {
			missing = append(missing, EnvMailSender)
		}
		if len(missing) > 0 {
			return fmt.Errorf("smtp mail driver requires %s", strings.Join(missing, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown mail driver %q", m.Driver)
	}
}

type NotificationsConfig struct {
	LogisticsRecipients     []string `envconfig:"CABLEQUOTES_NOTIFY_LOGISTICS"`
	LogisticsCopyRecipients []string `envconfig:"CABLEQUOTES_NOTIFY_LOGISTICS_COPY"`
	ReminderRecipients      []string `envconfig:"CABLEQUOTES_NOTIFY_REMINDER"`
	ReportRecipients        []string `envconfig:"CABLEQUOTES_NOTIFY_REPORT"`
}

type DirectoryConfig struct {
	SpreadsheetPath string `envconfig:"CABLEQUOTES_DIRECTORY_SPREADSHEET_PATH" default:"data/salespersons.xlsx"`
	SheetName       string `envconfig:"CABLEQUOTES_DIRECTORY_SHEET"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"CABLEQUOTES_CRON_INTERVAL" default:"1h"`
	ReminderThreshold time.Duration `envconfig:"CABLEQUOTES_CRON_REMINDER_THRESHOLD" default:"24h"`
	DailyReportHour   int           `envconfig:"CABLEQUOTES_CRON_DAILY_REPORT_HOUR" default:"16"`
	WeeklyReportHour  int           `envconfig:"CABLEQUOTES_CRON_WEEKLY_REPORT_HOUR" default:"8"`
	// MetricsAddr exposes the worker's /metrics when set, e.g. ":9102".
	MetricsAddr string `envconfig:"CABLEQUOTES_CRON_METRICS_ADDR"`
}

// SeedConfig lists administrator accounts created by the user importer.
type SeedConfig struct {
	AdminUsernames []string `envconfig:"CABLEQUOTES_SEED_ADMINS"`
	AdminPassword  string   `envconfig:"CABLEQUOTES_SEED_ADMIN_PASSWORD"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
		return nil
	}
	if db.DSN != "" {
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
