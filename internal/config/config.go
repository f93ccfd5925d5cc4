package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/validator"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	AdminAuthModeStatic = "static"
	AdminAuthModeJWT    = "jwt"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	Store     StoreConfig
	CORS      CORSConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	URL string
}

// RedisConfig is optional; an empty URL disables the catalog cache and
// switches rate limiting to the in-process limiter.
type RedisConfig struct {
	URL string
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	From     string
}

type StoreConfig struct {
	Name           string
	ReplyTo        string
	OrderEmailTo   string
	CurrencySymbol string
}

type CORSConfig struct {
	AllowedOrigins  []string
	AllowLocalhost  bool
	AllowedSuffixes []string
}

type AdminConfig struct {
	Mode      string
	Token     string
	Email     string
	Password  string
	JWTSecret string
	JWTTTL    time.Duration
}

// HasLogin reports whether an email+password pair is configured.
func (c AdminConfig) HasLogin() bool {
	return c.Email != "" && c.Password != ""
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type CacheConfig struct {
	CatalogTTL time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from the environment (and a .env file when one is
// present) and validates it. Every problem found is reported in the returned
// error.
func Load() (*Config, error) {
	// Variables already set in the environment take precedence over .env.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3333")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SMTP_SECURE", "false")
	v.SetDefault("CORS_ALLOW_LOCALHOST", "true")
	v.SetDefault("CORS_ORIGIN_SUFFIXES", ".vercel.app")
	v.SetDefault("ADMIN_AUTH_MODE", AdminAuthModeStatic)
	v.SetDefault("ADMIN_JWT_TTL", "12h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_MAX", "50")
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("CATALOG_CACHE_TTL", "60s")
	v.SetDefault("STORE_NAME", "Storefront")
	v.SetDefault("CURRENCY_SYMBOL", "R$")

	p := &problems{}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     p.intValue(v, "SMTP_PORT"),
			Secure:   p.boolValue(v, "SMTP_SECURE"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("SMTP_FROM"),
		},
		Store: StoreConfig{
			Name:           v.GetString("STORE_NAME"),
			ReplyTo:        v.GetString("STORE_REPLY_TO"),
			OrderEmailTo:   v.GetString("ORDER_EMAIL_TO"),
			CurrencySymbol: v.GetString("CURRENCY_SYMBOL"),
		},
		CORS: CORSConfig{
			AllowedOrigins:  splitList(v.GetString("FRONTEND_ORIGIN")),
			AllowLocalhost:  p.boolValue(v, "CORS_ALLOW_LOCALHOST"),
			AllowedSuffixes: splitList(v.GetString("CORS_ORIGIN_SUFFIXES")),
		},
		Admin: AdminConfig{
			Mode:      strings.ToLower(v.GetString("ADMIN_AUTH_MODE")),
			Token:     v.GetString("ADMIN_TOKEN"),
			Email:     v.GetString("ADMIN_EMAIL"),
			Password:  v.GetString("ADMIN_PASSWORD"),
			JWTSecret: v.GetString("ADMIN_JWT_SECRET"),
			JWTTTL:    p.durationValue(v, "ADMIN_JWT_TTL"),
		},
		RateLimit: RateLimitConfig{
			Max:    p.intValue(v, "RATE_LIMIT_MAX"),
			Window: p.durationValue(v, "RATE_LIMIT_WINDOW"),
		},
		Cache: CacheConfig{
			CatalogTTL: p.durationValue(v, "CATALOG_CACHE_TTL"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
	}

	if cfg.Store.ReplyTo == "" {
		cfg.Store.ReplyTo = cfg.SMTP.From
	}

	cfg.validate(p)

	if err := p.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate(p *problems) {
	if c.Database.URL == "" {
		p.add("DATABASE_URL is required")
	} else if u, err := url.Parse(c.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		p.add("DATABASE_URL must be a postgres:// URL")
	}

	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			p.add(fmt.Sprintf("REDIS_URL is invalid: %v", err))
		}
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		p.add("PORT must be a valid TCP port")
	}

	if c.SMTP.Host == "" {
		p.add("SMTP_HOST is required")
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		p.add("SMTP_PORT must be a valid TCP port")
	}
	if c.SMTP.User == "" {
		p.add("SMTP_USER is required")
	}
	if c.SMTP.Password == "" {
		p.add("SMTP_PASS is required")
	}
	p.email("SMTP_FROM", c.SMTP.From)
	p.email("ORDER_EMAIL_TO", c.Store.OrderEmailTo)
	if c.Store.ReplyTo != c.SMTP.From {
		p.email("STORE_REPLY_TO", c.Store.ReplyTo)
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		p.add("FRONTEND_ORIGIN is required")
	}

	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		p.add("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.Admin.Email != "" {
		p.email("ADMIN_EMAIL", c.Admin.Email)
	}
	if c.Admin.Password != "" && len(c.Admin.Password) < 8 {
		p.add("ADMIN_PASSWORD must be at least 8 characters")
	}

	switch c.Admin.Mode {
	case AdminAuthModeStatic:
		if len(c.Admin.Token) < 8 {
			p.add("ADMIN_TOKEN must be at least 8 characters")
		}
	case AdminAuthModeJWT:
		if len(c.Admin.JWTSecret) < 32 {
			p.add("ADMIN_JWT_SECRET must be at least 32 characters")
		}
		if !c.Admin.HasLogin() {
			p.add("ADMIN_EMAIL and ADMIN_PASSWORD are required in jwt mode")
		}
		if c.Admin.JWTTTL <= 0 {
			p.add("ADMIN_JWT_TTL must be positive")
		}
	default:
		p.add("ADMIN_AUTH_MODE must be static or jwt")
	}

	if c.RateLimit.Max < 1 {
		p.add("RATE_LIMIT_MAX must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		p.add("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Cache.CatalogTTL <= 0 {
		p.add("CATALOG_CACHE_TTL must be positive")
	}
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

type problems struct {
	list []string
}

func (p *problems) add(msg string) {
	p.list = append(p.list, msg)
}

func (p *problems) err() error {
	if len(p.list) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(p.list, "; "))
}

func (p *problems) email(key, value string) {
	if value == "" {
		p.add(key + " is required")
		return
	}
	if err := validator.Var(value, "email"); err != nil {
		p.add(key + " must be a valid email address")
	}
}

func (p *problems) intValue(v *viper.Viper, key string) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		p.add(key + " is required")
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.add(key + " must be an integer")
		return 0
	}
	return n
}

func (p *problems) boolValue(v *viper.Viper, key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		p.add(key + " must be true or false")
		return false
	}
	return b
}

func (p *problems) durationValue(v *viper.Viper, key string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		p.add(key + " must be a duration such as 30s or 1m")
		return 0
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
