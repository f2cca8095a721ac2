package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avelardo/cryptomart-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// balanceCacheStore is the slice of the redis client the cached projector needs.
type balanceCacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	BalanceKey(userID string) string
}

// CachedProjector decorates balance projection with a TTL cache. A cache miss
// or cache read error always falls through to a fresh projection; a projection
// failure is surfaced as-is and never papered over with a stale entry.
type CachedProjector struct {
	svc   Service
	store balanceCacheStore
	logg  *logger.Logger
	ttl   time.Duration
}

// NewCachedProjector builds a cached projector around the ledger service.
func NewCachedProjector(svc Service, store balanceCacheStore, logg *logger.Logger, ttl time.Duration) (*CachedProjector, error) {
	if svc == nil {
		return nil, errors.New("ledger service required")
	}
	if store == nil {
		return nil, errors.New("cache store required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedProjector{svc: svc, store: store, logg: logg, ttl: ttl}, nil
}

// Project returns the cached balance when fresh, otherwise re-projects.
func (p *CachedProjector) Project(ctx context.Context, userID uuid.UUID) (Balance, error) {
	key := p.store.BalanceKey(userID.String())

	raw, err := p.store.Get(ctx, key)
	if err == nil {
		var cached Balance
		if unmarshalErr := json.Unmarshal([]byte(raw), &cached); unmarshalErr == nil {
			return cached, nil
		}
		// corrupt entry: drop it and re-project
		_ = p.store.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) && p.logg != nil {
		p.logg.Warn(ctx, "balance cache read failed, projecting fresh")
	}

	balance, err := p.svc.Project(ctx, userID)
	if err != nil {
		return Balance{}, err
	}

	if encoded, marshalErr := json.Marshal(balance); marshalErr == nil {
		if setErr := p.store.Set(ctx, key, string(encoded), p.ttl); setErr != nil && p.logg != nil {
			p.logg.Warn(ctx, "balance cache write failed")
		}
	}
	return balance, nil
}

// Invalidate drops the cached balance for the user.
func (p *CachedProjector) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return p.store.Del(ctx, p.store.BalanceKey(userID.String()))
}
