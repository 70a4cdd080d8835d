package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process and voicectl.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Session   SessionConfig
	Twilio    TwilioConfig
	Ultravox  UltravoxConfig
	Storage   StorageConfig
	VoiceSync VoiceSyncConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// AuthConfig describes how access tokens issued by the auth provider are verified.
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type SessionConfig struct {
	// InactivityTimeout signs a session out after this long without a request.
	InactivityTimeout time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	BaseURL    string

	// VoiceURL and SMSURL are attached to every purchased number.
	VoiceURL string
	SMSURL   string

	// SIPDomain is where inbound calls for an active agent are dialed.
	SIPDomain string
}

type UltravoxConfig struct {
	APIKey  string
	BaseURL string
}

// StorageConfig points at the object storage bucket holding voice previews.
type StorageConfig struct {
	URL        string
	ServiceKey string
	Bucket     string
}

type VoiceSyncConfig struct {
	MaxPreviewBytes int64
	// Concurrency <= 0 means no cap.
	Concurrency int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")

	c.Session.InactivityTimeout = mustDuration("SESSION_INACTIVITY_TIMEOUT")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.BaseURL = strings.TrimSpace(os.Getenv("TWILIO_BASE_URL"))
	c.Twilio.VoiceURL = strings.TrimSpace(os.Getenv("TWILIO_VOICE_URL"))
	c.Twilio.SMSURL = strings.TrimSpace(os.Getenv("TWILIO_SMS_URL"))
	c.Twilio.SIPDomain = strings.TrimSpace(os.Getenv("AGENT_SIP_DOMAIN"))

	c.Ultravox.APIKey = os.Getenv("ULTRAVOX_API_KEY")
	c.Ultravox.BaseURL = strings.TrimSpace(os.Getenv("ULTRAVOX_BASE_URL"))

	c.Storage.URL = strings.TrimSpace(os.Getenv("STORAGE_URL"))
	c.Storage.ServiceKey = os.Getenv("STORAGE_SERVICE_KEY")
	c.Storage.Bucket = strings.TrimSpace(os.Getenv("STORAGE_BUCKET"))

	if v := strings.TrimSpace(os.Getenv("VOICE_SYNC_MAX_PREVIEW_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("VOICE_SYNC_MAX_PREVIEW_BYTES must be an integer, got %q", v))
		}
		c.VoiceSync.MaxPreviewBytes = n
	}
	if v := strings.TrimSpace(os.Getenv("VOICE_SYNC_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("VOICE_SYNC_CONCURRENCY must be an integer, got %q", v))
		}
		c.VoiceSync.Concurrency = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Auth.JWTAudience == "" {
		errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = time.Hour
	}

	if c.Session.InactivityTimeout <= 0 {
		c.Session.InactivityTimeout = 30 * time.Minute
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Twilio.BaseURL == "" {
		c.Twilio.BaseURL = "https://api.twilio.com"
	}

	if c.Ultravox.APIKey == "" {
		errs = append(errs, errors.New("ULTRAVOX_API_KEY is required"))
	}
	if c.Ultravox.BaseURL == "" {
		c.Ultravox.BaseURL = "https://api.ultravox.ai"
	}

	if c.Storage.URL == "" {
		errs = append(errs, errors.New("STORAGE_URL is required"))
	}
	if c.Storage.ServiceKey == "" {
		errs = append(errs, errors.New("STORAGE_SERVICE_KEY is required"))
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "voice-previews"
	}

	if c.VoiceSync.MaxPreviewBytes <= 0 {
		c.VoiceSync.MaxPreviewBytes = 5 * 1024 * 1024
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
