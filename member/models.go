// Package member defines the gym member model, including the denormalized
// per-member fee history that mirrors the fee ledger.
package member

import (
	"time"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// Status is the membership status.
type Status string

const (
	StatusActive Status = "active"
	StatusLeft   Status = "left"
)

// FeeStatus is the payment state of a fee as seen from the member side. It
// is used both for the member-level summary (Member.FeeStatus) and for
// individual history entries.
type FeeStatus string

const (
	FeePaid    FeeStatus = "paid"
	FeePending FeeStatus = "pending"
	FeeOverdue FeeStatus = "overdue"
)

// FeeHistoryEntry is one period's fee as cached on the member document. It
// mirrors a record in the fee ledger; the ledger is the system of record
// for payment state.
type FeeHistoryEntry struct {
	FeeID    id.FeeID     `json:"fee_id,omitempty"` // back-reference, may be unset for legacy data
	Period   period.Label `json:"period"`
	Amount   types.Money  `json:"amount"`
	DueDate  time.Time    `json:"due_date"`
	Status   FeeStatus    `json:"status"`
	PaidDate *time.Time   `json:"paid_date,omitempty"`
}

// Member is a gym member. FeeHistory holds at most one entry per period
// label; the member-level FeeStatus, LastPayment, and FeeHistory are a
// denormalized read model over the fee ledger.
type Member struct {
	types.Entity
	ID          id.MemberID       `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"` // unique across all members
	Phone       string            `json:"phone,omitempty"`
	Gender      string            `json:"gender,omitempty"`
	JoinDate    time.Time         `json:"join_date"`
	Status      Status            `json:"status"`
	FeeStatus   FeeStatus         `json:"fee_status"`
	LastPayment *time.Time        `json:"last_payment,omitempty"`
	FeeHistory  []FeeHistoryEntry `json:"fee_history"`
	GymID       id.GymID          `json:"gym_id"`
	UserID      id.UserID         `json:"user_id,omitempty"` // linked account, if any
	Version     int64             `json:"version"`           // optimistic concurrency token
}

// HistoryIndex returns the index of the history entry for p, or -1.
func (m *Member) HistoryIndex(p period.Label) int {
	for i := range m.FeeHistory {
		if m.FeeHistory[i].Period == p {
			return i
		}
	}
	return -1
}

// HistoryFor returns a pointer to the history entry for p, or nil.
func (m *Member) HistoryFor(p period.Label) *FeeHistoryEntry {
	if i := m.HistoryIndex(p); i >= 0 {
		return &m.FeeHistory[i]
	}
	return nil
}

// HasPeriod reports whether a history entry exists for p.
func (m *Member) HasPeriod(p period.Label) bool {
	return m.HistoryIndex(p) >= 0
}

// Update carries a partial member update. Nil fields are left unchanged.
type Update struct {
	Name     *string    `json:"name,omitempty"`
	Email    *string    `json:"email,omitempty"`
	Phone    *string    `json:"phone,omitempty"`
	Gender   *string    `json:"gender,omitempty"`
	JoinDate *time.Time `json:"join_date,omitempty"`
	Status   *Status    `json:"status,omitempty"`
	GymID    *id.GymID  `json:"gym_id,omitempty"`
	UserID   *id.UserID `json:"user_id,omitempty"`
}
