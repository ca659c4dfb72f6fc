// Package cache keeps service catalog entries in redis in front of a
// BookingRepository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

// KV is the subset of redis.Cmdable the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type Config struct {
	TTL    time.Duration
	Prefix string
}

type ServiceCache struct {
	store.BookingRepository

	kv     KV
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

// WithServiceCache serves GetService from redis when possible. Redis
// failures fall through to repo.
func WithServiceCache(repo store.BookingRepository, kv KV, cfg Config, log *slog.Logger) *ServiceCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "salon:service"
	}
	if log == nil {
		log = slog.Default()
	}
	return &ServiceCache{
		BookingRepository: repo,
		kv:                kv,
		ttl:               cfg.TTL,
		prefix:            prefix,
		log:               log.With(slog.String("component", "cache.services")),
	}
}

func (c *ServiceCache) key(id int64) string {
	return c.prefix + ":" + strconv.FormatInt(id, 10)
}

type cachedService struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Duration int     `json:"duration"`
	Price    float64 `json:"price"`
}

func (c *ServiceCache) GetService(ctx context.Context, serviceID int64) (domain.Service, error) {
	key := c.key(serviceID)

	raw, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v cachedService
		if err := json.Unmarshal(raw, &v); err == nil {
			return domain.Service{ID: v.ID, Name: v.Name, DurationMinutes: v.Duration, Price: v.Price}, nil
		}
		c.log.Warn("discarding malformed cache entry", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("redis get failed", slog.String("key", key), slog.Any("err", err))
	}

	svc, err := c.BookingRepository.GetService(ctx, serviceID)
	if err != nil {
		return domain.Service{}, err
	}

	body, err := json.Marshal(cachedService{ID: svc.ID, Name: svc.Name, Duration: svc.DurationMinutes, Price: svc.Price})
	if err == nil {
		if err := c.kv.Set(ctx, key, body, c.ttl).Err(); err != nil {
			c.log.Warn("redis set failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	return svc, nil
}

var _ store.BookingRepository = (*ServiceCache)(nil)
