package dues

import (
	"context"
	"strings"

	"github.com/xraph/dues/expense"
	"github.com/xraph/dues/gym"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/identity"
	"github.com/xraph/dues/types"
	"github.com/xraph/dues/user"
)

// defaultMonthlyFee is applied to gyms created without one.
var defaultMonthlyFee = types.PKR(3000)

// ──────────────────────────────────────────────────
// Gym Management
// ──────────────────────────────────────────────────

// CreateGym registers a gym. A zero monthly fee defaults to Rs 3000.
func (e *Engine) CreateGym(ctx context.Context, g *gym.Gym) (*gym.Gym, error) {
	if strings.TrimSpace(g.Name) == "" {
		return nil, ValidationError{Field: "name", Message: "required"}
	}
	if g.OwnerID.IsNil() {
		if ident, ok := identity.FromContext(ctx); ok {
			g.OwnerID = ident.UserID
		}
	}
	if g.OwnerID.IsNil() {
		return nil, ValidationError{Field: "owner_id", Message: "required"}
	}

	if g.ID.IsNil() {
		g.ID = id.NewGymID()
	}
	g.Entity = types.NewEntityAt(e.now())
	if g.MonthlyFee.IsZero() {
		g.MonthlyFee = defaultMonthlyFee
	}
	if g.SubscriptionStatus == "" {
		g.SubscriptionStatus = gym.SubscriptionActive
	}

	if err := e.store.CreateGym(ctx, g); err != nil {
		return nil, err
	}

	e.logger.Info("gym created", "gym_id", g.ID, "owner_id", g.OwnerID)
	return g, nil
}

// GetGym retrieves a gym by ID.
func (e *Engine) GetGym(ctx context.Context, gymID id.GymID) (*gym.Gym, error) {
	return e.store.GetGym(ctx, gymID)
}

// ListGymsForOwner lists the gyms owned by a user.
func (e *Engine) ListGymsForOwner(ctx context.Context, ownerID id.UserID) ([]*gym.Gym, error) {
	return e.store.ListGymsForOwner(ctx, ownerID)
}

// UpdateGym persists changes to a gym. Changing MonthlyFee here does not
// reprice existing fees; use UpsertSettings or ApplyNewDefaultAmount for
// that.
func (e *Engine) UpdateGym(ctx context.Context, g *gym.Gym) (*gym.Gym, error) {
	if g.ID.IsNil() {
		return nil, ValidationError{Field: "id", Message: "required"}
	}

	g.TouchAt(e.now())
	if err := e.store.UpdateGym(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ──────────────────────────────────────────────────
// User Management
// ──────────────────────────────────────────────────

// CreateUser registers an account user. Password hashing and login
// mechanics live with the embedding application.
func (e *Engine) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	if strings.TrimSpace(u.Name) == "" {
		return nil, ValidationError{Field: "name", Message: "required"}
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ValidationError{Field: "email", Message: "invalid address"}
	}

	if u.ID.IsNil() {
		u.ID = id.NewUserID()
	}
	u.Entity = types.NewEntityAt(e.now())
	u.Email = email
	if u.Role == "" {
		u.Role = user.RoleStaff
	}

	if err := e.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by ID.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return e.store.GetUser(ctx, userID)
}

// GetUserByEmail retrieves a user by email.
func (e *Engine) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return e.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ──────────────────────────────────────────────────
// Expense Management
// ──────────────────────────────────────────────────

// RecordExpense records an outgoing cost against a gym.
func (e *Engine) RecordExpense(ctx context.Context, exp *expense.Expense) (*expense.Expense, error) {
	if exp.GymID.IsNil() {
		if ident, ok := identity.FromContext(ctx); ok {
			exp.GymID = ident.GymID
		}
	}
	if exp.GymID.IsNil() {
		return nil, ValidationError{Field: "gym_id", Message: "required"}
	}
	if strings.TrimSpace(exp.Description) == "" {
		return nil, ValidationError{Field: "description", Message: "required"}
	}
	if !exp.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !exp.Category.Valid() {
		return nil, ErrInvalidCategory
	}

	now := e.now()
	if exp.ID.IsNil() {
		exp.ID = id.NewExpenseID()
	}
	exp.Entity = types.NewEntityAt(now)
	if exp.Date.IsZero() {
		exp.Date = now
	}
	if exp.UserID.IsNil() {
		if ident, ok := identity.FromContext(ctx); ok {
			exp.UserID = ident.UserID
		}
	}

	if err := e.store.CreateExpense(ctx, exp); err != nil {
		return nil, err
	}

	e.plugins.EmitExpenseRecorded(ctx, exp)
	return exp, nil
}

// GetExpense retrieves an expense by ID.
func (e *Engine) GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	return e.store.GetExpense(ctx, expenseID)
}

// ListExpenses lists expenses.
func (e *Engine) ListExpenses(ctx context.Context, opts expense.ListOpts) ([]*expense.Expense, error) {
	return e.store.ListExpenses(ctx, opts)
}

// DeleteExpense removes an expense record.
func (e *Engine) DeleteExpense(ctx context.Context, expenseID id.ExpenseID) error {
	return e.store.DeleteExpense(ctx, expenseID)
}
