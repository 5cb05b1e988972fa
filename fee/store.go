package fee

import (
	"context"
	"time"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// Store is the persistence contract for fee ledger records.
type Store interface {
	Create(ctx context.Context, f *Fee) error
	Get(ctx context.Context, feeID id.FeeID) (*Fee, error)
	GetByPeriod(ctx context.Context, memberID id.MemberID, p period.Label) (*Fee, error)
	List(ctx context.Context, opts ListOpts) ([]*Fee, error)
	Update(ctx context.Context, f *Fee) error
	Delete(ctx context.Context, feeID id.FeeID) error

	// MarkPaid transitions the fee to paid with the given payment time.
	MarkPaid(ctx context.Context, feeID id.FeeID, paidAt time.Time) error

	// RepriceOpen sets the amount on every non-paid fee of the gym.
	// Returns the number of fees touched.
	RepriceOpen(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error)
}

// ListOpts filters and paginates fee listings.
type ListOpts struct {
	MemberID id.MemberID
	GymID    id.GymID
	Status   Status
	Period   period.Label
	Limit    int
	Offset   int
}
