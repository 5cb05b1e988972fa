package dues

import (
	"context"
	"fmt"

	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/settings"
	"github.com/xraph/dues/types"
)

// ──────────────────────────────────────────────────
// Drift repair
// ──────────────────────────────────────────────────

// SyncMemberFees repairs existence drift between the fee ledger and the
// member's history, in both directions: history entries without a ledger
// record get one created from the cached fields, ledger records without a
// history entry get one appended, and entries missing their FeeID
// back-reference are back-filled. A member with no fees at all is seeded
// with the current period. Amount or status differences between entries
// that exist on both sides are not touched; the payment path converges
// those in place.
//
// Safe to run concurrently: record creation is guarded by the (member,
// period) unique constraint and the member write is version-checked.
func (e *Engine) SyncMemberFees(ctx context.Context, memberID id.MemberID) error {
	m, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return err
	}

	fees, err := e.store.ListFees(ctx, fee.ListOpts{MemberID: memberID})
	if err != nil {
		return err
	}

	feeByPeriod := make(map[period.Label]*fee.Fee, len(fees))
	for _, f := range fees {
		feeByPeriod[f.Period] = f
	}

	// Seed brand-new active members lazily.
	if len(m.FeeHistory) == 0 && len(fees) == 0 {
		if m.Status != member.StatusActive {
			return nil
		}
		_, err := e.EnsureCurrentFee(ctx, memberID)
		return err
	}

	// History entries with no ledger record: recreate the record from the
	// cached fields. The unique constraint makes concurrent repairs collapse
	// onto one winner.
	created := 0
	for i := range m.FeeHistory {
		entry := &m.FeeHistory[i]
		if _, ok := feeByPeriod[entry.Period]; ok {
			continue
		}

		f := &fee.Fee{
			Entity:   types.NewEntityAt(e.now()),
			ID:       id.NewFeeID(),
			MemberID: m.ID,
			GymID:    m.GymID,
			Amount:   entry.Amount,
			Period:   entry.Period,
			DueDate:  entry.DueDate,
			Status:   fee.Status(entry.Status),
		}
		if entry.PaidDate != nil {
			t := *entry.PaidDate
			f.PaidDate = &t
		}

		if cerr := e.store.CreateFee(ctx, f); cerr != nil {
			if !IsConflict(cerr) {
				return fmt.Errorf("recreate fee for period %s: %w", entry.Period, cerr)
			}
			winner, gerr := e.store.GetFeeByPeriod(ctx, memberID, entry.Period)
			if gerr != nil {
				return gerr
			}
			f = winner
		} else {
			created++
		}
		feeByPeriod[entry.Period] = f
	}

	// Member-side fixes in one version-checked write: append entries for
	// orphan ledger records and back-fill missing FeeIDs.
	appended := 0
	_, err = e.mutateMember(ctx, memberID, func(m *member.Member) error {
		appended = 0
		changed := false

		for _, f := range fees {
			if !m.HasPeriod(f.Period) {
				m.FeeHistory = append(m.FeeHistory, historyEntryFromFee(f))
				appended++
				changed = true
			}
		}
		for i := range m.FeeHistory {
			entry := &m.FeeHistory[i]
			if entry.FeeID.IsNil() {
				if f, ok := feeByPeriod[entry.Period]; ok {
					entry.FeeID = f.ID
					changed = true
				}
			}
		}

		if !changed {
			return errSkipWrite
		}
		m.TouchAt(e.now())
		return nil
	})
	if err != nil {
		return err
	}

	if created > 0 || appended > 0 {
		e.plugins.EmitDriftRepaired(ctx, memberID.String(), created, appended)
		e.logger.Debug("fee drift repaired",
			"member_id", memberID, "records_created", created, "entries_appended", appended)
	}

	return nil
}

// ──────────────────────────────────────────────────
// Status refresh
// ──────────────────────────────────────────────────

// refreshFeeStatus promotes an active, currently-paid member to pending
// once a pending history entry's due date has arrived. The promotion is
// applied to m in place and persisted best-effort; a failed write only
// delays the promotion until the next read.
func (e *Engine) refreshFeeStatus(ctx context.Context, m *member.Member) {
	if m.Status != member.StatusActive || m.FeeStatus == member.FeePending {
		return
	}

	now := e.now()
	due := false
	for i := range m.FeeHistory {
		entry := &m.FeeHistory[i]
		if entry.Status != member.FeePaid && !entry.DueDate.After(now) {
			due = true
			break
		}
	}
	if !due {
		return
	}

	from := m.FeeStatus
	m.FeeStatus = member.FeePending

	_, err := e.mutateMember(ctx, m.ID, func(stored *member.Member) error {
		if stored.FeeStatus == member.FeePending {
			return errSkipWrite
		}
		stored.FeeStatus = member.FeePending
		stored.TouchAt(now)
		return nil
	})
	if err != nil {
		e.logger.Warn("fee status refresh write failed",
			"member_id", m.ID, "error", err)
		return
	}

	e.plugins.EmitStatusRefreshed(ctx, m.ID.String(), string(from), string(member.FeePending))
}

// ──────────────────────────────────────────────────
// Repricing
// ──────────────────────────────────────────────────

// ApplyNewDefaultAmount sets a new amount on every non-paid fee and every
// non-paid history entry across all gyms of the owner. Paid records keep
// the amount they were settled at. The two bulk writes per gym fail
// independently; a partial failure can leave amount drift between ledger
// and history, which drift repair deliberately does not reconcile — rerun
// this operation to converge. Per-gym errors are collected, not fail-fast.
func (e *Engine) ApplyNewDefaultAmount(ctx context.Context, ownerID id.UserID, amount types.Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	gyms, err := e.store.ListGymsForOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	var merr MultiError
	for _, g := range gyms {
		feesTouched, ferr := e.store.RepriceOpenFees(ctx, g.ID, amount)
		if ferr != nil {
			merr.Add(fmt.Errorf("reprice fees for gym %s: %w", g.ID, ferr))
		}

		membersTouched, herr := e.store.RepriceOpenFeeHistory(ctx, g.ID, amount)
		if herr != nil {
			merr.Add(fmt.Errorf("reprice fee history for gym %s: %w", g.ID, herr))
		}

		e.plugins.EmitFeesRepriced(ctx, g.ID.String(), feesTouched, membersTouched)
		e.logger.Info("open fees repriced",
			"gym_id", g.ID, "amount", amount.String(),
			"fees", feesTouched, "members", membersTouched)
	}

	if merr.HasErrors() {
		return merr
	}
	return nil
}

// ──────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────

// UpsertSettings creates or replaces the user's monthly-fee override. A
// changed amount propagates to the owner's open fees through
// ApplyNewDefaultAmount; propagation failures are logged, not returned, so
// the settings write itself is never lost.
func (e *Engine) UpsertSettings(ctx context.Context, userID id.UserID, monthlyFee types.Money) (*settings.Settings, error) {
	if userID.IsNil() {
		return nil, ValidationError{Field: "user_id", Message: "required"}
	}
	if !monthlyFee.IsPositive() {
		return nil, ErrInvalidAmount
	}

	changed := true
	if existing, err := e.store.GetSettingsByUser(ctx, userID); err == nil {
		changed = !existing.MonthlyFee.Equal(monthlyFee)
	}

	cfg := &settings.Settings{
		Entity:     types.NewEntityAt(e.now()),
		ID:         id.NewSettingsID(),
		UserID:     userID,
		MonthlyFee: monthlyFee,
	}
	if err := e.store.UpsertSettings(ctx, cfg); err != nil {
		return nil, err
	}

	e.plugins.EmitSettingsUpdated(ctx, cfg)

	if changed && e.repriceOnSettings {
		if err := e.ApplyNewDefaultAmount(ctx, userID, monthlyFee); err != nil {
			e.logger.Warn("repricing after settings change failed",
				"user_id", userID, "error", err)
		}
	}

	return cfg, nil
}

// GetSettingsForUser retrieves a user's fee settings.
func (e *Engine) GetSettingsForUser(ctx context.Context, userID id.UserID) (*settings.Settings, error) {
	return e.store.GetSettingsByUser(ctx, userID)
}

// DeleteSettingsForUser removes a user's fee settings. Existing fees keep
// their amounts; future fees fall back to the gym default.
func (e *Engine) DeleteSettingsForUser(ctx context.Context, userID id.UserID) error {
	return e.store.DeleteSettingsByUser(ctx, userID)
}
