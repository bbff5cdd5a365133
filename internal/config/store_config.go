package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	tokenStoreVar  = "FITNESS_TOKEN_STORE"
	tokenFileVar   = "FITNESS_TOKEN_FILE"
	tokenKeyVar    = "FITNESS_TOKEN_KEY"
	redisAddrVar   = "FITNESS_REDIS_ADDR"
	redisPrefixVar = "FITNESS_REDIS_PREFIX"
	redisTTLVar    = "FITNESS_REDIS_TTL"
)

// StoreKind names a token store backend.
type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

// Valid reports whether k names a known backend.
func (k StoreKind) Valid() bool {
	switch k {
	case StoreFile, StoreMemory, StoreRedis:
		return true
	}
	return false
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetTokenStore() StoreKind {
	return StoreKind(GetEnv(tokenStoreVar, string(StoreFile)))
}

// GetTokenFile defaults to fitness/session.json under the user config directory.
func (Store) GetTokenFile() string {
	if path := GetEnv(tokenFileVar, ""); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fitness", "session.json")
}

// GetTokenKey decodes the hex encoded 32 byte key used to encrypt the token file.
// It returns nil when no key is configured.
func (Store) GetTokenKey() (*[32]byte, error) {
	raw := GetEnv(tokenKeyVar, "")
	if raw == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "[config.GetTokenKey] %s is not hex", tokenKeyVar)
	}
	if len(b) != 32 {
		return nil, errors.Errorf("[config.GetTokenKey] %s must be 32 bytes, got %d", tokenKeyVar, len(b))
	}
	var key [32]byte
	copy(key[:], b)
	return &key, nil
}

func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (Store) GetRedisPrefix() string {
	return GetEnv(redisPrefixVar, "fitness")
}

// GetRedisTTL bounds how long a token lives in redis. Zero means no expiry.
func (Store) GetRedisTTL() time.Duration {
	return GetEnvDuration(redisTTLVar, 0)
}
