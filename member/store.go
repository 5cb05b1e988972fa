package member

import (
	"context"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/types"
)

// Store is the persistence contract for members.
//
// Update is version-checked: the write must match the member's stored
// Version and increment it, reporting a conflict on mismatch.
type Store interface {
	Create(ctx context.Context, m *Member) error
	Get(ctx context.Context, memberID id.MemberID) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	List(ctx context.Context, opts ListOpts) ([]*Member, error)
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, memberID id.MemberID) error

	// AppendFeeHistory pushes a single history entry without rewriting the
	// whole member document, failing if an entry for the same period exists.
	AppendFeeHistory(ctx context.Context, memberID id.MemberID, entry FeeHistoryEntry) error

	// RepriceOpenFeeHistory sets the amount on every non-paid history entry
	// of every member of the gym. Returns the number of members touched.
	RepriceOpenFeeHistory(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error)
}

// ListOpts filters and paginates member listings.
type ListOpts struct {
	GymID     id.GymID
	Status    Status
	FeeStatus FeeStatus
	Limit     int
	Offset    int
}
