package cache

import (
	"testing"

	"github.com/andresuchdata/mediasync/internal/config"
)

func TestBuildRedisOptions(t *testing.T) {
	t.Run("url wins", func(t *testing.T) {
		opts, err := buildRedisOptions(config.LockConfig{RedisURL: "redis://:secret@cache.internal:6380/2", RedisHost: "ignored"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "cache.internal:6380" || opts.Password != "secret" || opts.DB != 2 {
			t.Fatalf("unexpected options: addr=%s db=%d", opts.Addr, opts.DB)
		}
	})

	t.Run("host and port defaults", func(t *testing.T) {
		opts, err := buildRedisOptions(config.LockConfig{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "127.0.0.1:6379" {
			t.Fatalf("addr = %s", opts.Addr)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		if _, err := buildRedisOptions(config.LockConfig{RedisURL: "http://nope"}); err == nil {
			t.Fatal("expected error for a non-redis url")
		}
	})
}
