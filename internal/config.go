package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"HTTP_SERVER"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"DATABASE"`
	Security      SecurityConfig      `mapstructure:"security" envconfig:"SECURITY"`
	Notification  NotificationConfig  `mapstructure:"notification" envconfig:"NOTIFICATION"`
	Wishlist      WishlistConfig      `mapstructure:"wishlist" envconfig:"WISHLIST"`
	Redis         RedisConfig         `mapstructure:"redis" envconfig:"REDIS"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Gate          GateConfig          `mapstructure:"gate" envconfig:"GATE"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
	Cleanup       CleanupConfig       `mapstructure:"cleanup" envconfig:"CLEANUP"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" envconfig:"PORT"`
	BaseURL           string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" envconfig:"CONN_MAX_IDLE_TIME"`
	Source          string        `mapstructure:"source" envconfig:"SOURCE"`
}

type SecurityConfig struct {
	SessionSecret        string        `mapstructure:"session_secret" envconfig:"SESSION_SECRET"`
	SessionDuration      time.Duration `mapstructure:"session_duration" envconfig:"SESSION_DURATION"`
	SessionCookieName    string        `mapstructure:"session_cookie_name" envconfig:"SESSION_COOKIE_NAME"`
	CookieSecure         bool          `mapstructure:"cookie_secure" envconfig:"COOKIE_SECURE"`
	CookieDomain         string        `mapstructure:"cookie_domain" envconfig:"COOKIE_DOMAIN"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" envconfig:"BCRYPT_COST"`
	VerificationTokenTTL time.Duration `mapstructure:"verification_token_ttl" envconfig:"VERIFICATION_TOKEN_TTL"`
	PasswordResetTTL     time.Duration `mapstructure:"password_reset_ttl" envconfig:"PASSWORD_RESET_TTL"`
}

type NotificationConfig struct {
	EmailSender       string        `mapstructure:"email_sender" envconfig:"EMAIL_SENDER"`
	SMTPHost          string        `mapstructure:"smtp_host" envconfig:"SMTP_HOST"`
	SMTPPort          int           `mapstructure:"smtp_port" envconfig:"SMTP_PORT"`
	SMTPUsername      string        `mapstructure:"smtp_username" envconfig:"SMTP_USERNAME"`
	SMTPPassword      string        `mapstructure:"smtp_password" envconfig:"SMTP_PASSWORD"`
	FromAddress       string        `mapstructure:"from_address" envconfig:"FROM_ADDRESS"`
	FromName          string        `mapstructure:"from_name" envconfig:"FROM_NAME"`
	SMSSender         string        `mapstructure:"sms_sender" envconfig:"SMS_SENDER"`
	SMSAPIURL         string        `mapstructure:"sms_api_url" envconfig:"SMS_API_URL"`
	SMSAccountID      string        `mapstructure:"sms_account_id" envconfig:"SMS_ACCOUNT_ID"`
	SMSAuthToken      string        `mapstructure:"sms_auth_token" envconfig:"SMS_AUTH_TOKEN"`
	SMSFrom           string        `mapstructure:"sms_from" envconfig:"SMS_FROM"`
	AdminNotifyEmails []string      `mapstructure:"admin_notify_emails" envconfig:"ADMIN_NOTIFY_EMAILS"`
	Workers           int           `mapstructure:"workers" envconfig:"WORKERS"`
	QueueSize         int           `mapstructure:"queue_size" envconfig:"QUEUE_SIZE"`
	SendTimeout       time.Duration `mapstructure:"send_timeout" envconfig:"SEND_TIMEOUT"`
}

type WishlistConfig struct {
	AccessEmails    []string      `mapstructure:"access_emails" envconfig:"ACCESS_EMAILS"`
	CodeTTL         time.Duration `mapstructure:"code_ttl" envconfig:"CODE_TTL"`
	AccessTTL       time.Duration `mapstructure:"access_ttl" envconfig:"ACCESS_TTL"`
	MaxCodeAttempts int           `mapstructure:"max_code_attempts" envconfig:"MAX_CODE_ATTEMPTS"`
	CookieName      string        `mapstructure:"cookie_name" envconfig:"COOKIE_NAME"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled" envconfig:"ENABLED"`
	Address   string `mapstructure:"address" envconfig:"ADDRESS"`
	Password  string `mapstructure:"password" envconfig:"PASSWORD"`
	DB        int    `mapstructure:"db" envconfig:"DB"`
	KeyPrefix string `mapstructure:"key_prefix" envconfig:"KEY_PREFIX"`
}

type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"enabled" envconfig:"ENABLED"`
	PublicLimit  int64         `mapstructure:"public_limit" envconfig:"PUBLIC_LIMIT"`
	PublicWindow time.Duration `mapstructure:"public_window" envconfig:"PUBLIC_WINDOW"`
	CodeLimit    int64         `mapstructure:"code_limit" envconfig:"CODE_LIMIT"`
	CodeWindow   time.Duration `mapstructure:"code_window" envconfig:"CODE_WINDOW"`
}

// GateConfig restricts traffic to an explicit allow-list of exact paths and prefixes.
type GateConfig struct {
	Enabled         bool     `mapstructure:"enabled" envconfig:"ENABLED" default:"true"`
	AllowedPaths    []string `mapstructure:"allowed_paths" envconfig:"ALLOWED_PATHS"`
	AllowedPrefixes []string `mapstructure:"allowed_prefixes" envconfig:"ALLOWED_PREFIXES"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"ENABLED"`
	Path    string `mapstructure:"path" envconfig:"PATH"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL"`
	Format string `mapstructure:"format" envconfig:"FORMAT"`
}

type CleanupConfig struct {
	Schedule string `mapstructure:"schedule" envconfig:"SCHEDULE"`
}

var (
	DefaultGatePaths    = []string{"/", "/login", "/logout", "/admin/wishlist", "/favicon.ico", "/healthz", "/ping", "/metrics"}
	DefaultGatePrefixes = []string{"/api/admin/wishlist", "/api/wishlist", "/api/dmv", "/dmv/", "/static/"}
)

// LoadConfigFromEnv reads configuration from process environment, e.g. DATABASE_SOURCE.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 5 * time.Minute
	}

	if c.Security.SessionDuration == 0 {
		c.Security.SessionDuration = 7 * 24 * time.Hour
	}
	if c.Security.SessionCookieName == "" {
		c.Security.SessionCookieName = "session"
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.Security.VerificationTokenTTL == 0 {
		c.Security.VerificationTokenTTL = 24 * time.Hour
	}
	if c.Security.PasswordResetTTL == 0 {
		c.Security.PasswordResetTTL = time.Hour
	}

	if c.Notification.EmailSender == "" {
		c.Notification.EmailSender = "log"
	}
	if c.Notification.SMSSender == "" {
		c.Notification.SMSSender = "log"
	}
	if c.Notification.SMTPPort == 0 {
		c.Notification.SMTPPort = 587
	}
	if c.Notification.FromName == "" {
		c.Notification.FromName = "Church Finance"
	}
	if c.Notification.Workers == 0 {
		c.Notification.Workers = 4
	}
	if c.Notification.QueueSize == 0 {
		c.Notification.QueueSize = 100
	}
	if c.Notification.SendTimeout == 0 {
		c.Notification.SendTimeout = 15 * time.Second
	}

	if c.Wishlist.CodeTTL == 0 {
		c.Wishlist.CodeTTL = 10 * time.Minute
	}
	if c.Wishlist.AccessTTL == 0 {
		c.Wishlist.AccessTTL = 4 * time.Hour
	}
	if c.Wishlist.MaxCodeAttempts == 0 {
		c.Wishlist.MaxCodeAttempts = 5
	}
	if c.Wishlist.CookieName == "" {
		c.Wishlist.CookieName = "wishlist_access"
	}

	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "church"
	}

	if c.RateLimit.PublicLimit == 0 {
		c.RateLimit.PublicLimit = 30
	}
	if c.RateLimit.PublicWindow == 0 {
		c.RateLimit.PublicWindow = time.Minute
	}
	if c.RateLimit.CodeLimit == 0 {
		c.RateLimit.CodeLimit = 5
	}
	if c.RateLimit.CodeWindow == 0 {
		c.RateLimit.CodeWindow = 15 * time.Minute
	}

	if len(c.Gate.AllowedPaths) == 0 {
		c.Gate.AllowedPaths = DefaultGatePaths
	}
	if len(c.Gate.AllowedPrefixes) == 0 {
		c.Gate.AllowedPrefixes = DefaultGatePrefixes
	}

	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}

	if c.Cleanup.Schedule == "" {
		c.Cleanup.Schedule = "@hourly"
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("redis config: %v", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 characters")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	switch c.EmailSender {
	case "log":
	case "smtp":
		if c.SMTPHost == "" || c.FromAddress == "" {
			return errors.New("smtp_host and from_address are required for smtp sender")
		}
	default:
		return fmt.Errorf("unknown email_sender %q", c.EmailSender)
	}
	switch c.SMSSender {
	case "log":
	case "http":
		if _, err := url.ParseRequestURI(c.SMSAPIURL); err != nil {
			return fmt.Errorf("invalid sms_api_url: %w", err)
		}
	default:
		return fmt.Errorf("unknown sms_sender %q", c.SMSSender)
	}
	return nil
}

func (c *RedisConfig) Validate() error {
	if c.Enabled && c.Address == "" {
		return errors.New("address is required when redis is enabled")
	}
	return nil
}

func (c *ObservabilityConfig) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics path must start with /")
	}
	return nil
}
