package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

// ClientConfig covers how the client talks to the fitness API.
type ClientConfig interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetVerifyOnStartup() bool
	GetRemoteLogout() bool
}

// StoreConfig selects and configures the token store.
type StoreConfig interface {
	GetTokenStore() StoreKind
	GetTokenFile() string
	GetTokenKey() (*[32]byte, error)
	GetRedisAddr() string
	GetRedisPrefix() string
	GetRedisTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	Client
	Store
}

func New() Config {
	return mainConfig{}
}
