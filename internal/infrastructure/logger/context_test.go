package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAndFromContext(t *testing.T) {
	base := zap.NewNop()
	ctx := WithContext(context.Background(), base)

	assert.Same(t, base, FromContext(ctx))
}

func TestFromContextReturnsNopWhenMissing(t *testing.T) {
	l := FromContext(context.Background())

	assert.NotNil(t, l)
	// A no-op logger must not panic on use.
	l.Info("ignored")
}

func TestWithRequestIDEnrichesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), base, "req-123")
	enriched.Info("hello")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestWithTenantAndUserID(t *testing.T) {
	base := zap.NewNop()
	ctx := context.Background()

	ctx, _ = WithTenantID(ctx, base, "tenant-1")
	ctx, _ = WithUserID(ctx, base, "user-9")

	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "user-9", GetUserID(ctx))
}

func TestGettersReturnEmptyWhenMissing(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestLInjectsScopeFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = context.WithValue(ctx, RequestIDKey, "req-7")
	ctx = context.WithValue(ctx, TenantIDKey, "tenant-7")
	ctx = context.WithValue(ctx, UserIDKey, "user-7")

	L(ctx).Info("scoped")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "tenant-7", fields["tenant_id"])
	assert.Equal(t, "user-7", fields["user_id"])
}

func TestLWithoutScopeFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	L(ctx).Info("bare")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Empty(t, entries[0].ContextMap())
}
