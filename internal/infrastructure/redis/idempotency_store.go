// Package redis guarda llaves de idempotencia para que un doble clic en
// "Autorizar" o "Solicitar autorización" no ejecute la transición dos veces.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/pkg/config"
)

const keyPrefix = "cotizaciones:idem:"

// IdempotencyStore reserva llaves con SET NX y TTL.
type IdempotencyStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewClient abre el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w: %w", domain.ErrUnavailable, err)
	}
	return rdb, nil
}

func NewIdempotencyStore(rdb *goredis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Claim reserva key. Devuelve false si ya estaba reservada (envío duplicado).
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency claim: %w: %w", domain.ErrUnavailable, err)
	}
	return ok, nil
}

// Release libera key para permitir el reintento cuando la operación falló.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}
