package settings

import (
	"context"

	"github.com/xraph/dues/id"
)

// Store is the persistence contract for fee settings.
type Store interface {
	// Upsert creates the user's settings document or replaces its monthly
	// fee, keyed by UserID.
	Upsert(ctx context.Context, s *Settings) error
	GetByUser(ctx context.Context, userID id.UserID) (*Settings, error)
	DeleteByUser(ctx context.Context, userID id.UserID) error
}
