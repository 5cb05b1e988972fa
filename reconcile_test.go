package dues_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/dues"
	"github.com/xraph/dues/expense"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/types"
)

func TestSyncRecreatesLedgerFromHistory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "orphan-history@example.com")

	// A history entry with no backing ledger record and no back-reference,
	// as a crashed December write would leave behind.
	due := time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC)
	err := fx.store.AppendFeeHistory(ctx, m.ID, member.FeeHistoryEntry{
		Period:  "2024-12",
		Amount:  types.PKR(3000),
		DueDate: due,
		Status:  member.FeePending,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := fx.engine.SyncMemberFees(ctx, m.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	fees, err := fx.store.ListFees(ctx, fee.ListOpts{MemberID: m.ID, Period: "2024-12"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(fees) != 1 {
		t.Fatalf("ledger records for 2024-12 = %d, want 1", len(fees))
	}
	f := fees[0]
	if f.Amount.Amount != 3000 || !f.DueDate.Equal(due) || f.Status != fee.StatusPending {
		t.Errorf("recreated record = %+v", f)
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	entry := got.HistoryFor("2024-12")
	if entry == nil {
		t.Fatal("history entry lost")
	}
	if entry.FeeID != f.ID {
		t.Errorf("FeeID not back-filled: %v, want %v", entry.FeeID, f.ID)
	}
}

func TestSyncRecreatesPaidLedgerRecord(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "paid-orphan@example.com")

	paidAt := time.Date(2024, time.December, 18, 0, 0, 0, 0, time.UTC)
	err := fx.store.AppendFeeHistory(ctx, m.ID, member.FeeHistoryEntry{
		Period:   "2024-12",
		Amount:   types.PKR(3000),
		DueDate:  time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC),
		Status:   member.FeePaid,
		PaidDate: &paidAt,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := fx.engine.SyncMemberFees(ctx, m.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	fees, _ := fx.store.ListFees(ctx, fee.ListOpts{MemberID: m.ID, Period: "2024-12"})
	if len(fees) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(fees))
	}
	if fees[0].Status != fee.StatusPaid || fees[0].PaidDate == nil || !fees[0].PaidDate.Equal(paidAt) {
		t.Errorf("paid state not carried into recreated record: %+v", fees[0])
	}
}

func TestSyncAppendsHistoryFromLedger(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "orphan-ledger@example.com")

	// A ledger record the member's cache never saw.
	f := &fee.Fee{
		Entity:   types.NewEntity(),
		ID:       id.NewFeeID(),
		MemberID: m.ID,
		GymID:    fx.gym.ID,
		Amount:   types.PKR(3000),
		Period:   "2024-11",
		DueDate:  time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC),
		Status:   fee.StatusPending,
	}
	if err := fx.store.CreateFee(ctx, f); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := fx.engine.SyncMemberFees(ctx, m.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	entry := got.HistoryFor("2024-11")
	if entry == nil {
		t.Fatal("ledger record not mirrored into history")
	}
	if entry.FeeID != f.ID || !entry.Amount.Equal(f.Amount) {
		t.Errorf("mirrored entry = %+v", entry)
	}
}

func TestSyncSeedsEmptyActiveMember(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// A member written around the engine, with no fees at all.
	m := &member.Member{
		Entity:    types.NewEntity(),
		ID:        id.NewMemberID(),
		Name:      "Raw Row",
		Email:     "raw@example.com",
		JoinDate:  jan15,
		Status:    member.StatusActive,
		FeeStatus: member.FeePending,
		GymID:     fx.gym.ID,
	}
	if err := fx.store.CreateMember(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := fx.engine.SyncMemberFees(ctx, m.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	if !got.HasPeriod("2025-01") {
		t.Error("sync should seed the current period for an active member")
	}
	fees, _ := fx.store.ListFees(ctx, fee.ListOpts{MemberID: m.ID})
	if len(fees) != 1 {
		t.Errorf("fee count = %d, want 1", len(fees))
	}
}

func TestListFeesByMemberSelfHeals(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "selfheal@example.com")

	err := fx.store.AppendFeeHistory(ctx, m.ID, member.FeeHistoryEntry{
		Period:  "2024-10",
		Amount:  types.PKR(3000),
		DueDate: time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC),
		Status:  member.FeePending,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// No explicit sync: the member-scoped list runs repair itself.
	fees, err := fx.engine.ListFees(ctx, fee.ListOpts{MemberID: m.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(fees) != 2 {
		t.Errorf("fee count = %d, want 2 after self-heal", len(fees))
	}
}

func TestFeeStatusRefreshOnRead(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "duesoon@example.com")

	if _, err := fx.engine.RecordPayment(ctx, m.FeeHistory[0].FeeID, nil); err != nil {
		t.Fatalf("pay: %v", err)
	}

	// Paid through January; February's fee exists, due the 15th.
	got, _ := fx.engine.GetMember(ctx, m.ID)
	if got.FeeStatus != member.FeePaid {
		t.Fatalf("fee status = %q, want paid", got.FeeStatus)
	}

	// Before the due date nothing changes.
	fx.clock.Set(time.Date(2025, time.February, 14, 0, 0, 0, 0, time.UTC))
	got, _ = fx.engine.GetMember(ctx, m.ID)
	if got.FeeStatus != member.FeePaid {
		t.Errorf("fee status = %q before due date, want paid", got.FeeStatus)
	}

	// On the due date the read promotes, and the promotion persists.
	fx.clock.Set(time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC))
	got, _ = fx.engine.GetMember(ctx, m.ID)
	if got.FeeStatus != member.FeePending {
		t.Errorf("fee status = %q on due date, want pending", got.FeeStatus)
	}
	stored, _ := fx.store.GetMember(ctx, m.ID)
	if stored.FeeStatus != member.FeePending {
		t.Errorf("promotion not persisted: %q", stored.FeeStatus)
	}
}

func TestFeeStatusRefreshSkipsLeftMember(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "paidandgone@example.com")

	if _, err := fx.engine.RecordPayment(ctx, m.FeeHistory[0].FeeID, nil); err != nil {
		t.Fatalf("pay: %v", err)
	}
	left := member.StatusLeft
	if _, err := fx.engine.UpdateMember(ctx, m.ID, member.Update{Status: &left}); err != nil {
		t.Fatalf("leave: %v", err)
	}

	fx.clock.Set(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	got, _ := fx.engine.GetMember(ctx, m.ID)
	if got.FeeStatus != member.FeePaid {
		t.Errorf("left member promoted to %q, want paid untouched", got.FeeStatus)
	}
}

func TestSettingsChangeRepricesOpenFees(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	payer := fx.newMember(t, "payer@example.com")
	debtor := fx.newMember(t, "debtor@example.com")

	paid, err := fx.engine.RecordPayment(ctx, payer.FeeHistory[0].FeeID, nil)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	// The owner raises the default. Repricing rides on the settings write.
	if _, err := fx.engine.UpsertSettings(ctx, fx.owner.ID, types.PKR(4000)); err != nil {
		t.Fatalf("settings: %v", err)
	}

	// The settled fee keeps its amount.
	after, _ := fx.engine.GetFee(ctx, paid.ID)
	if after.Amount.Amount != 3000 {
		t.Errorf("paid fee repriced to %d, want 3000", after.Amount.Amount)
	}

	// The debtor's open fee moves, ledger and history both.
	openFee, _ := fx.engine.GetFee(ctx, debtor.FeeHistory[0].FeeID)
	if openFee.Amount.Amount != 4000 {
		t.Errorf("open fee = %d, want 4000", openFee.Amount.Amount)
	}
	gotDebtor, _ := fx.engine.GetMember(ctx, debtor.ID)
	if gotDebtor.FeeHistory[0].Amount.Amount != 4000 {
		t.Errorf("open history entry = %d, want 4000", gotDebtor.FeeHistory[0].Amount.Amount)
	}

	// The payer's rolled-over February fee is open, so it moves too, while
	// the settled January entry stays.
	gotPayer, _ := fx.engine.GetMember(ctx, payer.ID)
	if jan := gotPayer.HistoryFor("2025-01"); jan.Amount.Amount != 3000 {
		t.Errorf("settled entry repriced to %d, want 3000", jan.Amount.Amount)
	}
	if feb := gotPayer.HistoryFor("2025-02"); feb == nil || feb.Amount.Amount != 4000 {
		t.Errorf("rolled-over entry = %+v, want 4000", gotPayer.HistoryFor("2025-02"))
	}

	// New members pick up the override.
	late := fx.newMember(t, "latecomer@example.com")
	if late.FeeHistory[0].Amount.Amount != 4000 {
		t.Errorf("new member amount = %d, want 4000", late.FeeHistory[0].Amount.Amount)
	}
}

func TestApplyNewDefaultAmountValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	err := fx.engine.ApplyNewDefaultAmount(ctx, fx.owner.ID, types.Zero("pkr"))
	if !errors.Is(err, dues.ErrInvalidAmount) {
		t.Errorf("zero amount: want ErrInvalidAmount, got %v", err)
	}

	if _, err := fx.engine.UpsertSettings(ctx, id.UserID{}, types.PKR(4000)); err == nil {
		t.Error("nil user: expected validation error")
	}
	if _, err := fx.engine.UpsertSettings(ctx, fx.owner.ID, types.PKR(-5)); !errors.Is(err, dues.ErrInvalidAmount) {
		t.Errorf("negative amount: want ErrInvalidAmount, got %v", err)
	}
}

func TestSettingsLifecycle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.engine.GetSettingsForUser(ctx, fx.owner.ID); !dues.IsNotFound(err) {
		t.Errorf("want not-found before upsert, got %v", err)
	}

	cfg, err := fx.engine.UpsertSettings(ctx, fx.owner.ID, types.PKR(4500))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if cfg.MonthlyFee.Amount != 4500 {
		t.Errorf("amount = %d", cfg.MonthlyFee.Amount)
	}

	// Upsert replaces, it does not duplicate.
	if _, err := fx.engine.UpsertSettings(ctx, fx.owner.ID, types.PKR(4800)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := fx.engine.GetSettingsForUser(ctx, fx.owner.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MonthlyFee.Amount != 4800 {
		t.Errorf("amount = %d, want 4800", got.MonthlyFee.Amount)
	}

	if err := fx.engine.DeleteSettingsForUser(ctx, fx.owner.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fx.engine.GetSettingsForUser(ctx, fx.owner.ID); !dues.IsNotFound(err) {
		t.Errorf("want not-found after delete, got %v", err)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	exp, err := fx.engine.RecordExpense(ctx, &expense.Expense{
		GymID:       fx.gym.ID,
		UserID:      fx.owner.ID,
		Description: "Treadmill belt replacement",
		Amount:      types.PKR(12000),
		Category:    expense.CategoryMaintenance,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if exp.Date.IsZero() {
		t.Error("date should default to now")
	}

	if _, err := fx.engine.RecordExpense(ctx, &expense.Expense{
		GymID:       fx.gym.ID,
		Description: "Mystery",
		Amount:      types.PKR(100),
		Category:    expense.Category("gambling"),
	}); !errors.Is(err, dues.ErrInvalidCategory) {
		t.Errorf("want ErrInvalidCategory, got %v", err)
	}

	list, err := fx.engine.ListExpenses(ctx, expense.ListOpts{
		GymID:    fx.gym.ID,
		Category: expense.CategoryMaintenance,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expense count = %d, want 1", len(list))
	}

	if err := fx.engine.DeleteExpense(ctx, exp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fx.engine.GetExpense(ctx, exp.ID); !dues.IsNotFound(err) {
		t.Errorf("want not-found after delete, got %v", err)
	}
}
