// Package gym defines the gym (organization) model.
package gym

import (
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/types"
)

// SubscriptionStatus is the gym's standing with the platform.
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionBlocked SubscriptionStatus = "blocked"
)

// Gym is a member-holding organization. MonthlyFee is the default fee
// amount for its members; an owner-level settings override takes
// precedence. Changing the default propagates to open fees through
// repricing, never by mutating the gym's existing fee records in place.
type Gym struct {
	types.Entity
	ID                 id.GymID           `json:"id"`
	Name               string             `json:"name"`
	Location           string             `json:"location,omitempty"`
	OwnerID            id.UserID          `json:"owner_id"`
	MonthlyFee         types.Money        `json:"monthly_fee"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
}
