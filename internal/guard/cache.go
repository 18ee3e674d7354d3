package guard

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/common/config"
	"golang.org/x/crypto/sha3"
)

// Cache holds resolved principals keyed by session-token hash. Entries are
// indexed by user so a mutation can drop every session of that user.
//
// Each user has a generation that InvalidateUser bumps. Callers read the
// generation before resolving and pass it to Set; a Set whose generation
// is stale is dropped, so a principal resolved before a mutation is never
// cached after it.
type Cache interface {
	Get(ctx context.Context, key string) (*authz.Principal, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, key string, p *authz.Principal, ttl time.Duration, gen int64) error
	InvalidateUser(ctx context.Context, userID string) error
}

// NewCache creates the cache selected by cfg.Type.
func NewCache(cfg config.GuardCacheConfig) (Cache, error) {
	switch cfg.Type {
	case "", "none":
		return NopCache{}, nil
	case "memory":
		return NewMemoryCache(), nil
	case "redis":
		return NewRedisCache(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported guard cache type: %s", cfg.Type)
	}
}

// TokenKey hashes a raw session token so tokens never reach the cache.
func TokenKey(token string) string {
	sum := sha3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*authz.Principal, bool, error) { return nil, false, nil }
func (NopCache) Generation(context.Context, string) (int64, error)           { return 0, nil }
func (NopCache) Set(context.Context, string, *authz.Principal, time.Duration, int64) error {
	return nil
}
func (NopCache) InvalidateUser(context.Context, string) error { return nil }

func clonePrincipal(p *authz.Principal) *authz.Principal {
	if p == nil {
		return nil
	}
	cp := *p
	cp.RoleSlugs = append([]string(nil), p.RoleSlugs...)
	cp.Permissions = make(map[string]bool, len(p.Permissions))
	for k, v := range p.Permissions {
		cp.Permissions[k] = v
	}
	return &cp
}
