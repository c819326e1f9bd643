package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/config"
)

// NewIdempotencyStore creates the idempotency store for projection handlers.
// Redis is preferred; when it is unreachable and fallback is allowed, an
// in-process store is used instead. The fallback cannot detect duplicates
// delivered to a different instance, hence the warning.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger, allowMemoryFallback bool) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		logger.Info("using Redis idempotency store", zap.String("addr", cfg.Addr()))
		return store, nil
	}

	if !allowMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err))
	return NewMemoryIdempotencyStore(), nil
}
