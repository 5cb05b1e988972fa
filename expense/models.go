// Package expense defines the gym expense ledger.
package expense

import (
	"time"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/types"
)

// Category classifies an expense.
type Category string

const (
	CategoryEquipment   Category = "equipment"
	CategoryUtilities   Category = "utilities"
	CategoryRent        Category = "rent"
	CategorySalary      Category = "salary"
	CategoryMaintenance Category = "maintenance"
	CategoryOther       Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEquipment, CategoryUtilities, CategoryRent,
		CategorySalary, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}

// Expense is a single outgoing cost recorded against a gym. Expenses share
// no invariants with the fee ledger; they are a plain supplemental ledger.
type Expense struct {
	types.Entity
	ID          id.ExpenseID `json:"id"`
	GymID       id.GymID     `json:"gym_id"`
	UserID      id.UserID    `json:"user_id"` // who recorded it
	Description string       `json:"description"`
	Amount      types.Money  `json:"amount"`
	Category    Category     `json:"category"`
	Date        time.Time    `json:"date"`
}
