// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"context"
	"testing"

	"reelscraper/pkg/config"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/store"
)

// New returns a migrated in-memory sqlite store closed at test cleanup.
// The pool is pinned to one connection so every query sees the same
// database.
func New(t testing.TB) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), config.DatabaseConfig{
		URL:             "sqlite://:memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnectAttempts: 1,
	}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
