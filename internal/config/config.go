package config

import (
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type SessionConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookieName"`
	TTLMinutes int    `yaml:"ttlMinutes"`
}

type LocalAuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LegacyCookieConfig gates the old plaintext isAuthenticated/userRole
// cookie pair that predates signed sessions. It exists only so
// pre-migration deployments keep working in dev; it is refused outright
// when the environment is production.
type LegacyCookieConfig struct {
	Enabled bool `yaml:"enabled"`
}

type OIDCConfig struct {
	Enabled        bool     `yaml:"enabled"`
	IssuerURL      string   `yaml:"issuerURL"`
	ClientID       string   `yaml:"clientID"`
	ClientSecret   string   `yaml:"clientSecret"`
	RedirectURL    string   `yaml:"redirectURL"`
	AllowedDomains []string `yaml:"allowedDomains"`
}

type WebhookConfig struct {
	// Secret signs identity-provider event payloads; empty disables
	// the webhook endpoint entirely.
	Secret string `yaml:"secret"`
}

type AuthConfig struct {
	Enabled         bool               `yaml:"enabled"`
	InitialAdminKey string             `yaml:"initialAdminKey"`
	Session         SessionConfig      `yaml:"session"`
	Local           LocalAuthConfig    `yaml:"local"`
	LegacyCookies   LegacyCookieConfig `yaml:"legacyCookies"`
	OIDC            OIDCConfig         `yaml:"oidc"`
	Webhook         WebhookConfig      `yaml:"webhook"`
}

type LocaleConfig struct {
	Supported []string `yaml:"supported"`
	Default   string   `yaml:"default"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

type BootstrapUserConfig struct {
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Password     string `yaml:"password"`
	Provider     string `yaml:"provider"`
	IsSuperAdmin bool   `yaml:"isSuperAdmin"`
}

type BootstrapOrgConfig struct {
	Slug    string   `yaml:"slug"`
	Name    string   `yaml:"name"`
	Admins  []string `yaml:"admins"`
	Members []string `yaml:"members"`
}

type BootstrapConfig struct {
	Users         []BootstrapUserConfig `yaml:"users"`
	Organizations []BootstrapOrgConfig  `yaml:"organizations"`
}

type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	Auth        AuthConfig      `yaml:"auth"`
	Locales     LocaleConfig    `yaml:"locales"`
	RateLimit   RateLimitConfig `yaml:"ratelimit"`
	Bootstrap   BootstrapConfig `yaml:"bootstrap"`
}

// IsProduction reports whether the deployment environment is production.
// The legacy cookie path and other dev conveniences key off this.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}
