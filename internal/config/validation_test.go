package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.OAuth.AppID = "app"
	cfg.OAuth.AppSecret = "secret"
	cfg.OAuth.CallbackURL = "https://bot.example.com/oauth/callback"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"callback path", func(c *Config) { c.Server.CallbackPath = "callback" }, "Server.CallbackPath"},
		{"callback rate", func(c *Config) { c.Server.CallbackRate = 0 }, "Server.CallbackRate"},
		{"callback url", func(c *Config) { c.OAuth.CallbackURL = "not a url" }, "OAuth.CallbackURL"},
		{"no domains", func(c *Config) { c.OAuth.AllowedDomains = nil }, "OAuth.AllowedDomains"},
		{"bad domain", func(c *Config) { c.OAuth.AllowedDomains = []string{"not a domain"} }, "OAuth.AllowedDomains[0]"},
		{"store backend", func(c *Config) { c.Store.Backend = "etcd" }, "Store.Backend"},
		{"redis addr", func(c *Config) {
			c.Store.Backend = StoreRedis
			c.Store.Redis.Addr = ""
		}, "store.redis.addr"},
		{"nats url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = ""
		}, "NATS.URL"},
		{"workitems project", func(c *Config) { c.WorkItems.OrganizationURL = "https://dev.azure.com/org" }, "WorkItems.Project"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "Logging.Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)

			var fields []string
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidate_RedisAddrIgnoredForMemory(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Redis.Addr = ""
	assert.NoError(t, Validate(cfg))
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is required")
	assert.Equal(t, "field 'a': is required", errs.Error())

	errs.Add("b", "must be a URL")
	assert.Equal(t, "validation failed: field 'a': is required; field 'b': must be a URL", errs.Error())
}
