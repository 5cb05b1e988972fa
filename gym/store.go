package gym

import (
	"context"

	"github.com/xraph/dues/id"
)

// Store is the persistence contract for gyms.
type Store interface {
	Create(ctx context.Context, g *Gym) error
	Get(ctx context.Context, gymID id.GymID) (*Gym, error)
	ListForOwner(ctx context.Context, ownerID id.UserID) ([]*Gym, error)
	Update(ctx context.Context, g *Gym) error
}
