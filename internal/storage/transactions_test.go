package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/model"
)

func TestAddCategoryIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.AddCategory(ctx, "Mat")
	if err != nil {
		t.Fatalf("Failed to add category: %v", err)
	}
	second, err := store.AddCategory(ctx, "Mat")
	if err != nil {
		t.Fatalf("Failed to re-add category: %v", err)
	}
	if first != second {
		t.Errorf("Re-adding a category returned id %d, want %d", second, first)
	}

	categories, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("Failed to get categories: %v", err)
	}
	if len(categories) != 1 {
		t.Errorf("Got %d categories, want 1", len(categories))
	}

	rows, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatalf("Failed to list categories: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Mat" || rows[0].ID != int(first) {
		t.Errorf("Got %+v, want one Mat row with id %d", rows, first)
	}
}

func TestGetUncategorized(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	addTestCategory(t, store, "Mat")
	addTestCategory(t, store, model.UncategorizedName)

	addTestTransaction(t, store, "ICA KVANTUM", "Mat", -300)
	addTestTransaction(t, store, "OKÄND 1", "", -100)
	addTestTransaction(t, store, "OKÄND 2", model.UncategorizedName, -200)

	uncategorized, err := store.GetUncategorized(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Failed to get uncategorized: %v", err)
	}
	if len(uncategorized) != 2 {
		t.Fatalf("Got %d uncategorized, want 2 (NULL and sentinel)", len(uncategorized))
	}
	for _, txn := range uncategorized {
		if !txn.IsUncategorized() {
			t.Errorf("Transaction %q is not uncategorized", txn.Description)
		}
	}
}

func TestGetUncategorizedLimit(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		addTestTransaction(t, store, "OKÄND", "", -100)
	}

	limited, err := store.GetUncategorized(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Failed to get uncategorized: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Got %d transactions, want 2", len(limited))
	}

	count, err := store.CountUncategorized(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 5 {
		t.Errorf("Count is %d, want 5", count)
	}
}

func TestReclassifyTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	addTestCategory(t, store, "Mat")
	id := addTestTransaction(t, store, "ICA KVANTUM", "", -300)

	if err := store.ReclassifyTransaction(ctx, id, "Mat", 0.95, "rules"); err != nil {
		t.Fatalf("Failed to reclassify: %v", err)
	}

	count, err := store.CountUncategorized(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count is %d after reclassify, want 0", count)
	}

	var confidence float64
	var method string
	err = store.db.QueryRow(
		`SELECT confidence, classification_method FROM transactions WHERE id = ?`, id).
		Scan(&confidence, &method)
	if err != nil {
		t.Fatalf("Failed to read back transaction: %v", err)
	}
	if confidence != 0.95 || method != "rules" {
		t.Errorf("Got (%.2f, %s), want (0.95, rules)", confidence, method)
	}
}

func TestReclassifyUnknownCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id := addTestTransaction(t, store, "ICA KVANTUM", "", -300)

	err := store.ReclassifyTransaction(ctx, id, "Okänd", 0.9, "rules")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Got %v, want ErrNotFound", err)
	}
}

func TestReclassifyUnknownTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	addTestCategory(t, store, "Mat")

	err := store.ReclassifyTransaction(ctx, 9999, "Mat", 0.9, "rules")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Got %v, want ErrNotFound", err)
	}
}

func TestGetClassifiedForPatterns(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	addTestCategory(t, store, "Mat")
	addTestCategory(t, store, model.UncategorizedName)
	addTestTransaction(t, store, "ICA KVANTUM", "Mat", -300)
	addTestTransaction(t, store, "COOP KONSUM", "Mat", -200)
	addTestTransaction(t, store, "OKÄND", "", -100)
	addTestTransaction(t, store, "OKÄND 2", model.UncategorizedName, -50)

	classified, err := store.GetClassifiedForPatterns(ctx)
	if err != nil {
		t.Fatalf("Failed to get classified: %v", err)
	}
	if len(classified) != 2 {
		t.Fatalf("Got %d classified, want 2", len(classified))
	}
	for _, ct := range classified {
		if ct.Category != "Mat" {
			t.Errorf("Got category %q, want Mat", ct.Category)
		}
		if ct.Year != 2024 || ct.Month != 8 {
			t.Errorf("Got year/month %d/%d, want 2024/8", ct.Year, ct.Month)
		}
	}
}
