// Package user defines the account user model.
package user

import (
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/types"
)

// Role is the user's role within a gym.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// User is an account holder: a gym owner or a staff member. Credential
// verification and session mechanics live outside Dues; the engine stores
// users only as identity collaborators (settings ownership, gym ownership,
// expense attribution).
type User struct {
	types.Entity
	ID           id.UserID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // unique
	PasswordHash string    `json:"-"`
	GymID        id.GymID  `json:"gym_id,omitempty"`
	Role         Role      `json:"role"`
	Authorized   bool      `json:"authorized"`
}
