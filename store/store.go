package store

import (
	"context"
	"time"

	"github.com/xraph/dues/expense"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/gym"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/settings"
	"github.com/xraph/dues/types"
	"github.com/xraph/dues/user"
)

// Store is the unified storage interface for all Dues entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Two constraints are load-bearing for the engine and every driver enforces
// them: members.email is unique, and fees are unique per (member_id, period).
// Duplicate-key violations surface as conflict errors the engine resolves by
// re-reading. UpdateMember is version-checked: the write matches the stored
// Version and increments it, reporting a conflict on mismatch.
type Store interface {
	// Member methods
	CreateMember(ctx context.Context, m *member.Member) error
	GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*member.Member, error)
	ListMembers(ctx context.Context, opts member.ListOpts) ([]*member.Member, error)
	UpdateMember(ctx context.Context, m *member.Member) error
	DeleteMember(ctx context.Context, memberID id.MemberID) error
	AppendFeeHistory(ctx context.Context, memberID id.MemberID, entry member.FeeHistoryEntry) error
	RepriceOpenFeeHistory(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error)

	// Fee methods
	CreateFee(ctx context.Context, f *fee.Fee) error
	GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error)
	GetFeeByPeriod(ctx context.Context, memberID id.MemberID, p period.Label) (*fee.Fee, error)
	ListFees(ctx context.Context, opts fee.ListOpts) ([]*fee.Fee, error)
	UpdateFee(ctx context.Context, f *fee.Fee) error
	DeleteFee(ctx context.Context, feeID id.FeeID) error
	MarkFeePaid(ctx context.Context, feeID id.FeeID, paidAt time.Time) error
	RepriceOpenFees(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error)

	// Gym methods
	CreateGym(ctx context.Context, g *gym.Gym) error
	GetGym(ctx context.Context, gymID id.GymID) (*gym.Gym, error)
	ListGymsForOwner(ctx context.Context, ownerID id.UserID) ([]*gym.Gym, error)
	UpdateGym(ctx context.Context, g *gym.Gym) error

	// Settings methods
	UpsertSettings(ctx context.Context, s *settings.Settings) error
	GetSettingsByUser(ctx context.Context, userID id.UserID) (*settings.Settings, error)
	DeleteSettingsByUser(ctx context.Context, userID id.UserID) error

	// User methods
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, userID id.UserID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	// Expense methods
	CreateExpense(ctx context.Context, e *expense.Expense) error
	GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error)
	ListExpenses(ctx context.Context, opts expense.ListOpts) ([]*expense.Expense, error)
	DeleteExpense(ctx context.Context, expenseID id.ExpenseID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
