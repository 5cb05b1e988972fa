package expense

import (
	"context"
	"time"

	"github.com/xraph/dues/id"
)

// Store is the persistence contract for expenses.
type Store interface {
	Create(ctx context.Context, e *Expense) error
	Get(ctx context.Context, expenseID id.ExpenseID) (*Expense, error)
	List(ctx context.Context, opts ListOpts) ([]*Expense, error)
	Delete(ctx context.Context, expenseID id.ExpenseID) error
}

// ListOpts filters and paginates expense listings.
type ListOpts struct {
	GymID    id.GymID
	Category Category
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}
