// Package fee defines the fee ledger record, the system of record for a
// member's payment state in each billing period.
package fee

import (
	"time"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// Status is the payment state of a fee.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"

	// StatusOverdue exists for data imported from systems that wrote it.
	// Dues itself never sets it; a fee past its due date stays pending and
	// the member-level summary carries the past-due signal.
	StatusOverdue Status = "overdue"
)

// Fee is one billing period's charge for one member. At most one Fee exists
// per (member, period) pair; the stores enforce this with a unique index.
type Fee struct {
	types.Entity
	ID       id.FeeID     `json:"id"`
	MemberID id.MemberID  `json:"member_id"`
	GymID    id.GymID     `json:"gym_id"`
	Amount   types.Money  `json:"amount"`
	Period   period.Label `json:"period"`
	DueDate  time.Time    `json:"due_date"`
	Status   Status       `json:"status"`
	PaidDate *time.Time   `json:"paid_date,omitempty"`
}

// IsPaid reports whether the fee has been paid.
func (f *Fee) IsPaid() bool { return f.Status == StatusPaid }
