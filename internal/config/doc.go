// Package config loads taskbot's configuration.
//
// Configuration is read from a YAML file (by default
// ~/.config/taskbot/config.yaml). Defaults are applied first, then the file,
// then environment variables:
//
//	OauthAppId               oauth.appId
//	OauthAppSecret           oauth.appSecret
//	OauthCallbackURL         oauth.callbackUrl
//	TASKBOT_ALLOWED_DOMAINS  oauth.allowedDomains (comma separated)
//	TASKBOT_WORKITEMS_TOKEN  workItems.token
//	TASKBOT_REDIS_ADDR       store.redis.addr (and selects the redis backend)
//	TASKBOT_NATS_URL         nats.url (and enables NATS)
//
// The result is validated before use. Watch reports later edits of the file
// so the allow-list and message overrides can change without a restart.
package config
