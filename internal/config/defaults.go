package config

import "time"

// Default returns the configuration used before the file and the
// environment are applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":3978",
			CallbackPath:  "/oauth/callback",
			CallbackRate:  1,
			CallbackBurst: 5,
			Ingress:       true,
		},
		OAuth: OAuthConfig{
			AuthorizeURL:   "https://app.vssps.visualstudio.com/oauth2/authorize",
			TokenURL:       "https://app.vssps.visualstudio.com/oauth2/token",
			ProfileURL:     "https://app.vssps.visualstudio.com/_apis/profile/profiles/me?api-version=1.0",
			Scope:          "vso.profile",
			TokenTimeout:   time.Second,
			ProfileTimeout: 5 * time.Second,
			AuthTimeout:    60 * time.Second,
			AllowedDomains: []string{"microsoft.com", "skype.com"},
		},
		WorkItems: WorkItemsConfig{
			Timeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				TTL:       30 * 24 * time.Hour,
				KeyPrefix: "taskbot:",
			},
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			InboundSubject: "taskbot.activities",
			OutboundPrefix: "taskbot.outbound",
			QueueGroup:     "taskbot",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}
