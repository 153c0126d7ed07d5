package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/model"
)

// AddCategory creates a category, returning its id. Adding an existing name
// returns the existing row's id.
func (s *SQLiteStorage) AddCategory(ctx context.Context, name string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("category name cannot be empty")
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return result.LastInsertId()
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to look up category: %w", err)
	}
	return id, nil
}

// GetCategories returns all category names, alphabetically.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListCategories returns the full category rows, alphabetically.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AddTransaction inserts a ledger row. category may be empty for an
// unclassified transaction.
func (s *SQLiteStorage) AddTransaction(ctx context.Context, txn model.Transaction) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var categoryID any
	if txn.Category != "" && txn.Category != model.UncategorizedName {
		id, err := s.categoryID(ctx, txn.Category)
		if err != nil {
			return 0, err
		}
		categoryID = id
	}

	year, month := txn.Year, txn.Month
	if year == 0 {
		year, month = txn.Date.Year(), int(txn.Date.Month())
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (verification_number, date, description, amount, category_id, year, month)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txn.VerificationNumber, txn.Date, txn.Description, txn.Amount, categoryID, year, month)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return result.LastInsertId()
}

// GetUncategorized returns transactions with no category (NULL category_id or
// the Uncategorized sentinel), oldest first. limit <= 0 means no limit.
func (s *SQLiteStorage) GetUncategorized(ctx context.Context, limit, offset int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, COALESCE(t.verification_number, ''), t.date, t.description, t.amount,
		        COALESCE(c.name, ''), t.year, t.month
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.category_id IS NULL OR c.name = ?
		 ORDER BY t.date, t.id
		 LIMIT ? OFFSET ?`,
		model.UncategorizedName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query uncategorized transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.VerificationNumber, &t.Date, &t.Description,
			&t.Amount, &t.Category, &t.Year, &t.Month); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// CountUncategorized returns how many transactions still need a category.
func (s *SQLiteStorage) CountUncategorized(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.category_id IS NULL OR c.name = ?`,
		model.UncategorizedName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count uncategorized transactions: %w", err)
	}
	return count, nil
}

// GetClassifiedForPatterns returns every classified transaction as the slim
// tuple the learned classifier trains on.
func (s *SQLiteStorage) GetClassifiedForPatterns(ctx context.Context) ([]model.ClassifiedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.description, t.amount, c.name, t.year, t.month
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE c.name != ?`,
		model.UncategorizedName)
	if err != nil {
		return nil, fmt.Errorf("failed to query classified transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var classified []model.ClassifiedTransaction
	for rows.Next() {
		var ct model.ClassifiedTransaction
		if err := rows.Scan(&ct.Description, &ct.Amount, &ct.Category, &ct.Year, &ct.Month); err != nil {
			return nil, fmt.Errorf("failed to scan classified transaction: %w", err)
		}
		classified = append(classified, ct)
	}
	return classified, rows.Err()
}

// ReclassifyTransaction assigns a category to a transaction, recording the
// confidence and the classification method that produced it.
func (s *SQLiteStorage) ReclassifyTransaction(ctx context.Context, id int64, category string, confidence float64, method string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	categoryID, err := s.categoryID(ctx, category)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET category_id = ?, confidence = ?, classification_method = ?
		 WHERE id = ?`,
		categoryID, confidence, method, id)
	if err != nil {
		return fmt.Errorf("failed to reclassify transaction: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) categoryID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up category: %w", err)
	}
	return id, nil
}
