package dues

import (
	"context"
	"time"

	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// ──────────────────────────────────────────────────
// Fee Management
// ──────────────────────────────────────────────────

// EnsureCurrentFee idempotently creates the member's fee for the current
// period plus the matching history entry. A concurrent duplicate insert
// resolves by re-reading the winner, never by a second record.
func (e *Engine) EnsureCurrentFee(ctx context.Context, memberID id.MemberID) (*fee.Fee, error) {
	m, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	p := period.Current(now)

	if existing, err := e.store.GetFeeByPeriod(ctx, memberID, p); err == nil {
		e.ensureHistoryEntry(ctx, m, existing)
		return existing, nil
	} else if !IsNotFound(err) {
		return nil, err
	}

	f := &fee.Fee{
		Entity:   types.NewEntityAt(now),
		ID:       id.NewFeeID(),
		MemberID: m.ID,
		GymID:    m.GymID,
		Amount:   e.resolveAmount(ctx, m),
		Period:   p,
		DueDate:  dueDateIn(p, m.JoinDate),
		Status:   fee.StatusPending,
	}

	if err := e.store.CreateFee(ctx, f); err != nil {
		if IsConflict(err) {
			// Lost the creation race; the winner's record stands.
			winner, gerr := e.store.GetFeeByPeriod(ctx, memberID, p)
			if gerr != nil {
				return nil, gerr
			}
			e.ensureHistoryEntry(ctx, m, winner)
			return winner, nil
		}
		return nil, err
	}

	e.plugins.EmitFeeCreated(ctx, f)
	e.ensureHistoryEntry(ctx, m, f)

	return f, nil
}

// CreateFee creates a fee record for an explicit period, mirroring it into
// the member's history. Most callers want EnsureCurrentFee instead.
func (e *Engine) CreateFee(ctx context.Context, f *fee.Fee) (*fee.Fee, error) {
	if f.MemberID.IsNil() {
		return nil, ValidationError{Field: "member_id", Message: "required"}
	}
	if _, err := period.Parse(f.Period.String()); err != nil {
		return nil, ValidationError{Field: "period", Message: "want YYYY-MM"}
	}
	if f.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	m, err := e.store.GetMember(ctx, f.MemberID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if f.ID.IsNil() {
		f.ID = id.NewFeeID()
	}
	f.Entity = types.NewEntityAt(now)
	if f.GymID.IsNil() {
		f.GymID = m.GymID
	}
	if f.DueDate.IsZero() {
		f.DueDate = dueDateIn(f.Period, m.JoinDate)
	}
	if f.Status == "" {
		f.Status = fee.StatusPending
	}

	if err := e.store.CreateFee(ctx, f); err != nil {
		return nil, err
	}

	e.plugins.EmitFeeCreated(ctx, f)
	e.ensureHistoryEntry(ctx, m, f)

	return f, nil
}

// GetFee retrieves a fee by ID.
func (e *Engine) GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error) {
	return e.store.GetFee(ctx, feeID)
}

// ListFees lists fee records. Listing by member first runs drift repair, so
// the returned ledger reflects any history-only entries and vice versa.
func (e *Engine) ListFees(ctx context.Context, opts fee.ListOpts) ([]*fee.Fee, error) {
	if !opts.MemberID.IsNil() {
		if err := e.SyncMemberFees(ctx, opts.MemberID); err != nil {
			e.logger.Warn("pre-list fee sync failed",
				"member_id", opts.MemberID, "error", err)
		}
	}
	return e.store.ListFees(ctx, opts)
}

// DeleteFee removes a fee record.
func (e *Engine) DeleteFee(ctx context.Context, feeID id.FeeID) error {
	return e.store.DeleteFee(ctx, feeID)
}

// RecordPayment marks the fee paid and rolls the member to the next period.
//
// The fee is looked up strictly by its own identity. Paying an already-paid
// fee is a no-op returning the fee unchanged. The ledger write lands first;
// every member-side mutation (history entry, last payment, fee status, and
// for active members the next period's history entry) is computed in memory
// and persisted as one version-checked write. The next period is derived
// from the paid fee's period label and its due date's day-of-month, so a
// late payment does not shift the schedule. Member-side failures are logged
// and left to drift repair, never surfaced as the payment's failure.
func (e *Engine) RecordPayment(ctx context.Context, feeID id.FeeID, paidAt *time.Time) (*fee.Fee, error) {
	f, err := e.store.GetFee(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if f.IsPaid() {
		e.logger.Debug("payment ignored, fee already paid", "fee_id", feeID)
		return f, nil
	}

	when := e.now()
	if paidAt != nil {
		when = paidAt.UTC()
	}

	if err := e.store.MarkFeePaid(ctx, feeID, when); err != nil {
		return nil, err
	}
	f.Status = fee.StatusPaid
	f.PaidDate = &when
	e.plugins.EmitFeePaid(ctx, f)

	// Spawn the next period's ledger record for active members before the
	// member write, so the history entry it mirrors always has a record.
	var next *fee.Fee
	memberActive := false
	if m, merr := e.store.GetMember(ctx, f.MemberID); merr == nil {
		memberActive = m.Status == member.StatusActive
	} else {
		e.logger.Warn("member lookup after payment failed",
			"member_id", f.MemberID, "error", merr)
	}
	if memberActive {
		next = e.rolloverFee(ctx, f)
	}

	_, err = e.mutateMember(ctx, f.MemberID, func(m *member.Member) error {
		if entry := m.HistoryFor(f.Period); entry != nil {
			entry.FeeID = f.ID
			entry.Amount = f.Amount
			entry.Status = member.FeePaid
			entry.PaidDate = &when
		} else {
			m.FeeHistory = append(m.FeeHistory, historyEntryFromFee(f))
		}

		m.LastPayment = &when
		m.FeeStatus = member.FeePaid

		if next != nil && !m.HasPeriod(next.Period) {
			m.FeeHistory = append(m.FeeHistory, historyEntryFromFee(next))
		}

		m.TouchAt(when)
		return nil
	})
	if err != nil {
		e.logger.Warn("member update after payment failed, deferring to repair",
			"member_id", f.MemberID, "fee_id", feeID, "error", err)
	}

	if next != nil {
		e.plugins.EmitFeeRolledOver(ctx, f, next)
	}

	e.logger.Info("payment recorded",
		"fee_id", feeID, "member_id", f.MemberID,
		"period", f.Period, "amount", f.Amount.String(),
		"rolled_over", next != nil)

	return f, nil
}

// rolloverFee creates the fee for the period after paid, carrying the paid
// amount forward. Returns nil when the record could not be created and no
// existing record was found; repair picks it up later.
func (e *Engine) rolloverFee(ctx context.Context, paid *fee.Fee) *fee.Fee {
	nextPeriod, nextDue, err := period.Next(paid.Period, paid.DueDate)
	if err != nil {
		e.logger.Warn("rollover period derivation failed",
			"fee_id", paid.ID, "period", paid.Period, "error", err)
		return nil
	}

	next := &fee.Fee{
		Entity:   types.NewEntityAt(e.now()),
		ID:       id.NewFeeID(),
		MemberID: paid.MemberID,
		GymID:    paid.GymID,
		Amount:   paid.Amount,
		Period:   nextPeriod,
		DueDate:  nextDue,
		Status:   fee.StatusPending,
	}

	if err := e.store.CreateFee(ctx, next); err != nil {
		if IsConflict(err) {
			existing, gerr := e.store.GetFeeByPeriod(ctx, paid.MemberID, nextPeriod)
			if gerr == nil {
				return existing
			}
		}
		e.logger.Warn("rollover fee creation failed, deferring to repair",
			"member_id", paid.MemberID, "period", nextPeriod, "error", err)
		return nil
	}

	e.plugins.EmitFeeCreated(ctx, next)
	return next
}

// ──────────────────────────────────────────────────
// Amount resolution
// ──────────────────────────────────────────────────

// resolveAmount determines a member's fee amount: the gym owner's settings
// override, then the gym's default, then the member's own linked user's
// override, then zero. Lookups are scoped to the member's own gym and owner
// chain. Store unavailability degrades to zero so fee creation never fails
// on a pricing lookup.
func (e *Engine) resolveAmount(ctx context.Context, m *member.Member) types.Money {
	g, err := e.store.GetGym(ctx, m.GymID)
	if err != nil {
		if !IsNotFound(err) {
			e.logger.Warn("gym lookup during amount resolution failed",
				"gym_id", m.GymID, "error", err)
		}
		g = nil
	}

	if g != nil {
		if cfg, err := e.store.GetSettingsByUser(ctx, g.OwnerID); err == nil && cfg.MonthlyFee.IsPositive() {
			return cfg.MonthlyFee
		}
		if g.MonthlyFee.IsPositive() {
			return g.MonthlyFee
		}
	}

	if !m.UserID.IsNil() && (g == nil || m.UserID != g.OwnerID) {
		if cfg, err := e.store.GetSettingsByUser(ctx, m.UserID); err == nil && cfg.MonthlyFee.IsPositive() {
			return cfg.MonthlyFee
		}
	}

	if g != nil && g.MonthlyFee.Currency != "" {
		return types.Zero(g.MonthlyFee.Currency)
	}
	return types.Zero("pkr")
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// ensureHistoryEntry mirrors f into the member's history when the entry is
// missing. Best effort: a failure is logged and left to drift repair.
func (e *Engine) ensureHistoryEntry(ctx context.Context, m *member.Member, f *fee.Fee) {
	if m.HasPeriod(f.Period) {
		return
	}

	err := e.store.AppendFeeHistory(ctx, m.ID, historyEntryFromFee(f))
	if err != nil && !IsConflict(err) {
		e.logger.Warn("history append failed, deferring to repair",
			"member_id", m.ID, "period", f.Period, "error", err)
	}
}

func historyEntryFromFee(f *fee.Fee) member.FeeHistoryEntry {
	entry := member.FeeHistoryEntry{
		FeeID:   f.ID,
		Period:  f.Period,
		Amount:  f.Amount,
		DueDate: f.DueDate,
		Status:  member.FeeStatus(f.Status),
	}
	if f.PaidDate != nil {
		t := *f.PaidDate
		entry.PaidDate = &t
	}
	return entry
}

// dueDateIn places ref's day-of-month inside p, clamped to the last valid
// day, keeping ref's time-of-day. Used to seed a member's first due date
// from their join date.
func dueDateIn(p period.Label, ref time.Time) time.Time {
	start, err := p.Start()
	if err != nil {
		return ref.UTC()
	}

	ref = ref.UTC()
	day := ref.Day()
	last := start.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}

	return time.Date(start.Year(), start.Month(), day,
		ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), time.UTC)
}
