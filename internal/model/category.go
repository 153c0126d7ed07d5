package model

import "time"

// Category represents a budget category a transaction can be classified into.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int
}
