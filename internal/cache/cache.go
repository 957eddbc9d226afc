package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/tinthat/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey builds a namespaced key from the hashed parts
func CacheKey(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "tinthat:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the configured cache stack: memory, then disk and redis when set.
// It returns nil when caching is disabled.
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	layers := []Cache{NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)}
	if cfg.DiskDir != "" {
		layers = append(layers, NewDiskCache(cfg.DiskDir, cfg.DiskTTL))
	}
	if cfg.RedisAddr != "" {
		rc, err := NewRedisCache(cfg.RedisAddr, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		layers = append(layers, rc)
	}

	if len(layers) == 1 {
		return layers[0], nil
	}
	return NewLayeredCache(layers...), nil
}
