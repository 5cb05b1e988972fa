// Package settings defines the per-user fee configuration.
package settings

import (
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/types"
)

// Settings is a user's fee configuration. One document per user; upserts
// replace the monthly fee in place. An owner's settings override the
// default fee of every gym they own.
type Settings struct {
	types.Entity
	ID         id.SettingsID `json:"id"`
	UserID     id.UserID     `json:"user_id"` // unique
	MonthlyFee types.Money   `json:"monthly_fee"`
}
