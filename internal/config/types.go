package config

import "time"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	OAuth     OAuthConfig       `yaml:"oauth"`
	WorkItems WorkItemsConfig   `yaml:"workItems"`
	Store     StoreConfig       `yaml:"store"`
	NATS      NATSConfig        `yaml:"nats"`
	Messages  map[string]string `yaml:"messages,omitempty"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr          string  `yaml:"addr" validate:"required"`
	CallbackPath  string  `yaml:"callbackPath" validate:"required,startswith=/"`
	CallbackRate  float64 `yaml:"callbackRate" validate:"gt=0"`
	CallbackBurst int     `yaml:"callbackBurst" validate:"gt=0"`
	// Ingress enables POST /api/messages.
	Ingress bool `yaml:"ingress"`
}

// OAuthConfig configures the identity provider and the sign-in flow.
type OAuthConfig struct {
	AppID          string        `yaml:"appId" validate:"required"`
	AppSecret      string        `yaml:"appSecret" validate:"required"`
	CallbackURL    string        `yaml:"callbackUrl" validate:"required,url"`
	AuthorizeURL   string        `yaml:"authorizeUrl" validate:"required,url"`
	TokenURL       string        `yaml:"tokenUrl" validate:"required,url"`
	ProfileURL     string        `yaml:"profileUrl" validate:"required,url"`
	Scope          string        `yaml:"scope" validate:"required"`
	TokenTimeout   time.Duration `yaml:"tokenTimeout" validate:"gt=0"`
	ProfileTimeout time.Duration `yaml:"profileTimeout" validate:"gt=0"`
	AuthTimeout    time.Duration `yaml:"authTimeout" validate:"gt=0"`
	AllowedDomains []string      `yaml:"allowedDomains" validate:"min=1,dive,required,fqdn"`
	// RejectSuperseded ends a replaced sign-in immediately instead of at its deadline.
	RejectSuperseded bool `yaml:"rejectSuperseded"`
}

// WorkItemsConfig configures the Azure DevOps client. Work-item commands
// are disabled when OrganizationURL is empty.
type WorkItemsConfig struct {
	OrganizationURL string        `yaml:"organizationUrl" validate:"omitempty,url"`
	Project         string        `yaml:"project" validate:"required_with=OrganizationURL"`
	Token           string        `yaml:"token"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Enabled reports whether a work-item backend is configured.
func (w WorkItemsConfig) Enabled() bool { return w.OrganizationURL != "" }

// StoreConfig selects where session data lives.
type StoreConfig struct {
	Backend string      `yaml:"backend" validate:"oneof=memory redis"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"gte=0"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"keyPrefix"`
}

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url" validate:"required_if=Enabled true"`
	InboundSubject string `yaml:"inboundSubject"`
	OutboundPrefix string `yaml:"outboundPrefix"`
	QueueGroup     string `yaml:"queueGroup"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}
