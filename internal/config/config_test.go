package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if cfg.Allocator.Floor != 100000 {
		t.Fatalf("floor = %d, want 100000", cfg.Allocator.Floor)
	}
	if cfg.Allocator.MaxAttempts != 10 {
		t.Fatalf("max attempts = %d, want 10", cfg.Allocator.MaxAttempts)
	}
	if cfg.Allocator.RetryBaseDelay != 10*time.Millisecond {
		t.Fatalf("retry delay = %v, want 10ms", cfg.Allocator.RetryBaseDelay)
	}
	if cfg.Allocator.PageSize != 10 {
		t.Fatalf("page size = %d, want 10", cfg.Allocator.PageSize)
	}
	if cfg.Purchases.InsertAttempts != 3 {
		t.Fatalf("insert attempts = %d, want 3", cfg.Purchases.InsertAttempts)
	}
	if cfg.Cache.Driver != "noop" {
		t.Fatalf("cache driver = %q, want noop", cfg.Cache.Driver)
	}
	if cfg.Purchases.LockEnabled {
		t.Fatalf("lock must be disabled without redis")
	}
	if cfg.Messaging.Driver != "noop" {
		t.Fatalf("messaging driver = %q, want noop", cfg.Messaging.Driver)
	}
	if cfg.Database.ReaderDSN != cfg.Database.WriterDSN {
		t.Fatalf("reader DSN should default to writer DSN")
	}
}

func TestNewAllocatorOverrides(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("ORDER_NUMBER_FLOOR", "500")
	t.Setenv("ORDER_NUMBER_MAX_ATTEMPTS", "0")
	t.Setenv("ORDER_NUMBER_RETRY_DELAY", "25ms")
	t.Setenv("ORDER_NUMBER_PAGE_SIZE", "-1")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Allocator.Floor != 500 {
		t.Fatalf("floor = %d, want 500", cfg.Allocator.Floor)
	}
	if cfg.Allocator.MaxAttempts != 10 {
		t.Fatalf("max attempts = %d, want fallback 10", cfg.Allocator.MaxAttempts)
	}
	if cfg.Allocator.RetryBaseDelay != 25*time.Millisecond {
		t.Fatalf("retry delay = %v, want 25ms", cfg.Allocator.RetryBaseDelay)
	}
	if cfg.Allocator.PageSize != 10 {
		t.Fatalf("page size = %d, want fallback 10", cfg.Allocator.PageSize)
	}
}

func TestNewRejectsInvalidFloor(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("ORDER_NUMBER_FLOOR", "0")

	if _, err := New(); err == nil {
		t.Fatal("expected error for zero floor")
	}
}

func TestNewRejectsUnknownCacheDriver(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memcached")
	t.Setenv("MESSAGING_ENABLED", "false")

	if _, err := New(); err == nil {
		t.Fatal("expected error for unsupported cache driver")
	}
}

func TestGetEnvAsStringSlice(t *testing.T) {
	t.Setenv("TEST_BROKERS", " a:1, ,b:2 ")
	got := getEnvAsStringSlice("TEST_BROKERS", nil)
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("got %v", got)
	}
}

func TestEnvParsersFallBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_ATTEMPTS", "three")
	t.Setenv("TEST_FLOOR", " 250000 ")
	t.Setenv("TEST_DELAY", "soon")

	if got := getEnvAsInt("TEST_ATTEMPTS", 10); got != 10 {
		t.Fatalf("int = %d, want default", got)
	}
	if got := getEnvAsInt64("TEST_FLOOR", 100000); got != 250000 {
		t.Fatalf("int64 = %d", got)
	}
	if got := getEnvAsDuration("TEST_DELAY", 10*time.Millisecond); got != 10*time.Millisecond {
		t.Fatalf("duration = %v, want default", got)
	}
	if got := getEnvAsBool("TEST_UNSET_FLAG", true); !got {
		t.Fatal("unset bool should keep default")
	}
}
