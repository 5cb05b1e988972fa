package user

import (
	"context"

	"github.com/xraph/dues/id"
)

// Store is the persistence contract for users.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, userID id.UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
