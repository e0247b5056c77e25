package app

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/database"
)

func TestAppRunShutsDownOnCancel(t *testing.T) {
	cfg := &config.Config{
		AccountStoreDriver: config.StoreDriverSQLite,
		DatabaseURL:        filepath.Join(t.TempDir(), "accounts.db"),
		ShutdownTimeout:    2 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := database.OpenAccountStore(context.Background(), cfg, logger, true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	a := New(cfg, logger, srv, nil, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			_ = conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never started: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	if err := store.Accounts.Ping(context.Background()); err == nil {
		t.Fatal("expected store to be closed")
	}
}

func TestDurationOr(t *testing.T) {
	if durationOr(0, time.Second) != time.Second || durationOr(2*time.Second, time.Second) != 2*time.Second {
		t.Fatal("unexpected durationOr result")
	}
}
