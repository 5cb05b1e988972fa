package dues_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/dues"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/gym"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/types"
	"github.com/xraph/dues/user"
)

func TestEnsureCurrentFeeIdempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "idem@example.com")

	first, err := fx.engine.EnsureCurrentFee(ctx, m.ID)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := fx.engine.EnsureCurrentFee(ctx, m.ID)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ensure created a second record: %v vs %v", first.ID, second.ID)
	}

	fees, err := fx.engine.ListFees(ctx, fee.ListOpts{MemberID: m.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(fees) != 1 {
		t.Errorf("fee count = %d, want 1", len(fees))
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	if len(got.FeeHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(got.FeeHistory))
	}
}

func TestEnsureCurrentFeeConcurrent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "race@example.com")

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.engine.EnsureCurrentFee(ctx, m.ID)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}

	fees, err := fx.engine.ListFees(ctx, fee.ListOpts{MemberID: m.ID, Period: "2025-01"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(fees) != 1 {
		t.Fatalf("fee count = %d, want exactly 1 per (member, period)", len(fees))
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	count := 0
	for _, entry := range got.FeeHistory {
		if entry.Period == "2025-01" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("history entries for 2025-01 = %d, want 1", count)
	}
}

func TestRecordPaymentRollsOver(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "pay@example.com")
	feeID := m.FeeHistory[0].FeeID

	// Payment arrives five days late.
	fx.clock.Set(time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC))

	paid, err := fx.engine.RecordPayment(ctx, feeID, nil)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != fee.StatusPaid {
		t.Errorf("status = %q, want paid", paid.Status)
	}
	if paid.PaidDate == nil || paid.PaidDate.Day() != 20 {
		t.Errorf("paid date = %v, want Jan 20", paid.PaidDate)
	}

	got, err := fx.engine.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if got.FeeStatus != member.FeePaid {
		t.Errorf("member fee status = %q, want paid", got.FeeStatus)
	}
	if got.LastPayment == nil || !got.LastPayment.Equal(*paid.PaidDate) {
		t.Errorf("last payment = %v, want %v", got.LastPayment, paid.PaidDate)
	}

	jan := got.HistoryFor("2025-01")
	if jan == nil || jan.Status != member.FeePaid || jan.PaidDate == nil {
		t.Errorf("january entry not settled: %+v", jan)
	}

	feb := got.HistoryFor("2025-02")
	if feb == nil {
		t.Fatal("payment should roll the member into 2025-02")
	}
	if feb.Status != member.FeePending {
		t.Errorf("february status = %q, want pending", feb.Status)
	}
	if feb.Amount.Amount != 3000 {
		t.Errorf("february amount = %d, want paid amount carried forward", feb.Amount.Amount)
	}
	// Due day follows the original schedule, not the payment date.
	if feb.DueDate.Day() != 15 {
		t.Errorf("february due day = %d, want 15", feb.DueDate.Day())
	}

	next, err := fx.engine.GetFee(ctx, feb.FeeID)
	if err != nil {
		t.Fatalf("next ledger record: %v", err)
	}
	if next.Period != "2025-02" || next.Status != fee.StatusPending {
		t.Errorf("next fee = %+v", next)
	}
}

func TestRecordPaymentIdempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "twice@example.com")
	feeID := m.FeeHistory[0].FeeID

	first, err := fx.engine.RecordPayment(ctx, feeID, nil)
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	second, err := fx.engine.RecordPayment(ctx, feeID, nil)
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if !second.PaidDate.Equal(*first.PaidDate) {
		t.Errorf("second payment changed paid date: %v vs %v", second.PaidDate, first.PaidDate)
	}

	fees, _ := fx.engine.ListFees(ctx, fee.ListOpts{MemberID: m.ID})
	if len(fees) != 2 {
		t.Errorf("fee count = %d, want 2 (paid + one rollover)", len(fees))
	}
}

func TestRecordPaymentUnknownFee(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.engine.RecordPayment(context.Background(), id.NewFeeID(), nil)
	if !errors.Is(err, dues.ErrFeeNotFound) {
		t.Errorf("want ErrFeeNotFound, got %v", err)
	}
}

func TestRolloverClampsDueDay(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// Join on the 31st: January's fee is due the 31st.
	fx.clock.Set(time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC))
	m := fx.newMember(t, "eom@example.com")
	if m.FeeHistory[0].DueDate.Day() != 31 {
		t.Fatalf("setup: due day = %d, want 31", m.FeeHistory[0].DueDate.Day())
	}

	if _, err := fx.engine.RecordPayment(ctx, m.FeeHistory[0].FeeID, nil); err != nil {
		t.Fatalf("pay: %v", err)
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	feb := got.HistoryFor("2025-02")
	if feb == nil {
		t.Fatal("no rollover")
	}
	if feb.DueDate.Day() != 28 {
		t.Errorf("february due day = %d, want clamped 28", feb.DueDate.Day())
	}
}

func TestLatePaymentAnchoredToPeriod(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "late@example.com")
	feeID := m.FeeHistory[0].FeeID

	// The january fee is paid in March. The next fee is still February's:
	// rollover anchors to the paid fee's period, not the payment date.
	fx.clock.Set(time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC))

	if _, err := fx.engine.RecordPayment(ctx, feeID, nil); err != nil {
		t.Fatalf("pay: %v", err)
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	if !got.HasPeriod("2025-02") {
		t.Error("expected 2025-02 fee from january payment")
	}
	if got.HasPeriod("2025-03") {
		t.Error("late payment must not skip to the payment month")
	}
	feb := got.HistoryFor("2025-02")
	if feb.DueDate.Day() != 15 || feb.DueDate.Month() != time.February {
		t.Errorf("february due = %v, want Feb 15", feb.DueDate)
	}
}

func TestRolloverSkippedForLeftMember(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "leaving@example.com")
	feeID := m.FeeHistory[0].FeeID

	left := member.StatusLeft
	if _, err := fx.engine.UpdateMember(ctx, m.ID, member.Update{Status: &left}); err != nil {
		t.Fatalf("leave: %v", err)
	}

	// Settle the outstanding fee after leaving; no new period spawns.
	if _, err := fx.engine.RecordPayment(ctx, feeID, nil); err != nil {
		t.Fatalf("pay: %v", err)
	}

	fees, _ := fx.engine.ListFees(ctx, fee.ListOpts{MemberID: m.ID})
	if len(fees) != 1 {
		t.Errorf("fee count = %d, want 1 (no rollover for left member)", len(fees))
	}
}

func TestRecordPaymentExplicitTime(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "backdate@example.com")

	when := time.Date(2025, time.January, 16, 9, 30, 0, 0, time.UTC)
	paid, err := fx.engine.RecordPayment(ctx, m.FeeHistory[0].FeeID, &when)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !paid.PaidDate.Equal(when) {
		t.Errorf("paid date = %v, want %v", paid.PaidDate, when)
	}
}

func TestAmountResolutionPrecedence(t *testing.T) {
	ctx := context.Background()

	t.Run("owner settings override gym default", func(t *testing.T) {
		fx := newFixture(t)
		if _, err := fx.engine.UpsertSettings(ctx, fx.owner.ID, types.PKR(5000)); err != nil {
			t.Fatalf("settings: %v", err)
		}
		m := fx.newMember(t, "override@example.com")
		if m.FeeHistory[0].Amount.Amount != 5000 {
			t.Errorf("amount = %d, want owner override 5000", m.FeeHistory[0].Amount.Amount)
		}
	})

	t.Run("gym default when no override", func(t *testing.T) {
		fx := newFixture(t)
		m := fx.newMember(t, "default@example.com")
		if m.FeeHistory[0].Amount.Amount != 3000 {
			t.Errorf("amount = %d, want gym default 3000", m.FeeHistory[0].Amount.Amount)
		}
	})

	t.Run("member's own user override when gym has none", func(t *testing.T) {
		fx := newFixture(t)

		// A gym with no usable default.
		bare, err := fx.engine.CreateGym(ctx, &gym.Gym{
			Name:       "Bare Gym",
			OwnerID:    fx.owner.ID,
			MonthlyFee: types.Zero("pkr"),
		})
		if err != nil {
			t.Fatalf("gym: %v", err)
		}
		// CreateGym defaults a zero fee; force it back to zero.
		bare.MonthlyFee = types.Zero("pkr")
		if _, err := fx.engine.UpdateGym(ctx, bare); err != nil {
			t.Fatalf("update gym: %v", err)
		}

		linked, err := fx.engine.CreateUser(ctx, &user.User{
			Name: "Linked", Email: "linked@example.com", Role: user.RoleStaff,
		})
		if err != nil {
			t.Fatalf("user: %v", err)
		}
		if _, err := fx.engine.UpsertSettings(ctx, linked.ID, types.PKR(2500)); err != nil {
			t.Fatalf("settings: %v", err)
		}

		m, err := fx.engine.CreateMember(ctx, &member.Member{
			Name:   "Self Priced",
			Email:  "selfpriced@example.com",
			GymID:  bare.ID,
			UserID: linked.ID,
		})
		if err != nil {
			t.Fatalf("member: %v", err)
		}
		if m.FeeHistory[0].Amount.Amount != 2500 {
			t.Errorf("amount = %d, want member's own override 2500", m.FeeHistory[0].Amount.Amount)
		}
	})

	t.Run("zero when nothing resolves", func(t *testing.T) {
		fx := newFixture(t)

		bare, err := fx.engine.CreateGym(ctx, &gym.Gym{Name: "Zero Gym", OwnerID: fx.owner.ID})
		if err != nil {
			t.Fatalf("gym: %v", err)
		}
		bare.MonthlyFee = types.Zero("pkr")
		if _, err := fx.engine.UpdateGym(ctx, bare); err != nil {
			t.Fatalf("update gym: %v", err)
		}

		m, err := fx.engine.CreateMember(ctx, &member.Member{
			Name: "Unpriced", Email: "unpriced@example.com", GymID: bare.ID,
		})
		if err != nil {
			t.Fatalf("member: %v", err)
		}
		if !m.FeeHistory[0].Amount.IsZero() {
			t.Errorf("amount = %d, want 0", m.FeeHistory[0].Amount.Amount)
		}
	})
}

func TestCreateFeeManual(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "manual@example.com")

	f, err := fx.engine.CreateFee(ctx, &fee.Fee{
		MemberID: m.ID,
		Amount:   types.PKR(1500),
		Period:   "2024-12",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.Status != fee.StatusPending {
		t.Errorf("status = %q, want pending", f.Status)
	}
	if f.GymID != fx.gym.ID {
		t.Errorf("gym not defaulted from member")
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	if !got.HasPeriod("2024-12") {
		t.Error("manual fee should mirror into history")
	}

	// Same period again conflicts.
	_, err = fx.engine.CreateFee(ctx, &fee.Fee{
		MemberID: m.ID, Amount: types.PKR(1500), Period: "2024-12",
	})
	if !dues.IsConflict(err) {
		t.Errorf("want conflict, got %v", err)
	}

	// Bad period label.
	_, err = fx.engine.CreateFee(ctx, &fee.Fee{
		MemberID: m.ID, Amount: types.PKR(1500), Period: "12-2024",
	})
	if err == nil {
		t.Error("expected validation error for bad period")
	}
}
