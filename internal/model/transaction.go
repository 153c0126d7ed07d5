// Package model defines the core domain models used throughout the application.
package model

import "time"

// UncategorizedName is the sentinel category for transactions that have not
// been classified yet. A NULL category is treated the same way.
const UncategorizedName = "Uncategorized"

// Transaction represents a single financial transaction from the ledger.
// The classification core reads transactions; it never creates or deletes them.
type Transaction struct {
	Date               time.Time
	Description        string
	VerificationNumber string
	Category           string // empty or UncategorizedName means unclassified
	Amount             float64
	ID                 int64
	Year               int
	Month              int
}

// IsUncategorized reports whether the transaction still needs classification.
func (t *Transaction) IsUncategorized() bool {
	return t.Category == "" || t.Category == UncategorizedName
}

// ClassifiedTransaction is the slim projection the learned classifier trains
// on: one row per already-classified transaction.
type ClassifiedTransaction struct {
	Description string
	Category    string
	Amount      float64
	Year        int
	Month       int
}
