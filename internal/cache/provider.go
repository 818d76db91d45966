package cache

// Package cache backs webhook idempotency and exchange-rate lookups.

import (
	"context"
	"fmt"
	"time"
)

// Provider is a small TTL'd key/value store.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// WebhookKey dedupes provider notifications by notification id.
func WebhookKey(source, notificationID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, notificationID)
}

// RateKey caches a resolved exchange rate per target currency.
func RateKey(currency string) string {
	return fmt.Sprintf("rate:USD:%s", currency)
}

// EmailKey dedupes order confirmation emails per order.
func EmailKey(orderID string) string {
	return fmt.Sprintf("email:order:%s", orderID)
}
