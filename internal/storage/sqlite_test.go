package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/oskarvik/kontosort/internal/model"
)

func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func addTestCategory(t *testing.T, store *SQLiteStorage, name string) {
	t.Helper()
	if _, err := store.AddCategory(context.Background(), name); err != nil {
		t.Fatalf("Failed to add category %s: %v", name, err)
	}
}

func addTestTransaction(t *testing.T, store *SQLiteStorage, description, category string, amount float64) int64 {
	t.Helper()
	id, err := store.AddTransaction(context.Background(), model.Transaction{
		Description: description,
		Category:    category,
		Amount:      amount,
		Date:        time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Failed to add transaction %s: %v", description, err)
	}
	return id
}

func TestNewSQLiteStorageEmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage(""); err == nil {
		t.Fatal("Expected error for empty path")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}

	var version int
	if err := store.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Schema version is %d, want %d", version, ExpectedSchemaVersion)
	}
}
