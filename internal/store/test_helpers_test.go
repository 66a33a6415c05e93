package store

import (
	"context"
	"testing"
	"time"

	"belote-lobby/internal/testutil"

	"github.com/go-redis/redis/v8"
)

func openActionLog(t *testing.T) (*ActionLog, context.Context, func()) {
	t.Helper()
	dsn, dropSchema := testutil.OpenTestPostgres(t)
	ctx := context.Background()
	log, err := NewActionLog(ctx, dsn)
	if err != nil {
		dropSchema()
		t.Fatalf("open action log: %v", err)
	}
	if err := log.EnsureSchema(ctx); err != nil {
		log.Close()
		dropSchema()
		t.Fatalf("apply schema: %v", err)
	}
	return log, ctx, func() {
		log.Close()
		dropSchema()
	}
}

func openRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *redis.Client, context.Context) {
	t.Helper()
	client, prefix := testutil.OpenTestRedis(t)
	return NewRedisStore(client, prefix, ttl), client, context.Background()
}
