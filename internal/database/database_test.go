package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/propdesk/internal/config"
)

func sqliteConfig(t *testing.T, slow time.Duration) config.Database {
	t.Helper()
	return config.Database{
		Driver:       "sqlite",
		WriterDSN:    filepath.Join(t.TempDir(), "propdesk.db"),
		MaxOpenConns: 1,
		SlowQuery:    slow,
	}
}

func TestOpenLogsSlowQueries(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := sqliteConfig(t, time.Nanosecond)
	db, err := open(cfg, cfg.WriterDSN, "writer", zap.New(core))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	conns := NewConnections(db, nil)
	t.Cleanup(func() { _ = conns.Close() })

	var n int
	if err := db.NewRaw("SELECT 1").Scan(context.Background(), &n); err != nil {
		t.Fatalf("select: %v", err)
	}

	entries := logs.FilterMessage("slow query").All()
	if len(entries) == 0 {
		t.Fatal("expected a slow query log entry")
	}
	if got := entries[0].ContextMap()["pool"]; got != "writer" {
		t.Fatalf("pool = %v", got)
	}
}

func TestOpenWithoutThresholdAddsNoHook(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := sqliteConfig(t, 0)
	db, err := open(cfg, cfg.WriterDSN, "writer", zap.New(core))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected logs: %v", logs.All())
	}
}

func TestConnectionsSharedReader(t *testing.T) {
	cfg := sqliteConfig(t, 0)
	db, err := open(cfg, cfg.WriterDSN, "writer", zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	conns := NewConnections(db, nil)
	if conns.Reader != conns.Writer {
		t.Fatal("nil reader should fall back to the writer")
	}
	if err := conns.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := conns.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conns.Ping(context.Background()); err == nil {
		t.Fatal("Ping after Close should fail")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := open(config.Database{Driver: "oracle"}, "dsn", "writer", zap.NewNop()); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := open(config.Database{Driver: "sqlite"}, "", "writer", zap.NewNop()); err == nil {
		t.Fatal("expected empty DSN error")
	}
}
