package utils

import (
	"context"
	"testing"
	"time"
)

func TestReleaseClaimScriptInitialized(t *testing.T) {
	if releaseClaimScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestClaimOnce_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := ClaimOnce(ctx, nil, "k", "t", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ReleaseClaim(ctx, nil, "k", "t"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisConfigDefaults(t *testing.T) {
	c := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if c.PoolSize != 20 || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
