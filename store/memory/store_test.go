package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/dues"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/store/memory"
	"github.com/xraph/dues/types"
)

func newMember(gymID id.GymID, email string) *member.Member {
	return &member.Member{
		Entity:    types.NewEntity(),
		ID:        id.NewMemberID(),
		Name:      "Test Member",
		Email:     email,
		JoinDate:  time.Now().UTC(),
		Status:    member.StatusActive,
		FeeStatus: member.FeePending,
		GymID:     gymID,
	}
}

func TestMemberEmailUnique(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	gymID := id.NewGymID()

	if err := s.CreateMember(ctx, newMember(gymID, "a@example.com")); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := s.CreateMember(ctx, newMember(gymID, "A@Example.com"))
	if !errors.Is(err, dues.ErrDuplicateMember) {
		t.Errorf("want ErrDuplicateMember, got %v", err)
	}
}

func TestFeePeriodUnique(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	memberID := id.NewMemberID()

	f := &fee.Fee{
		Entity:   types.NewEntity(),
		ID:       id.NewFeeID(),
		MemberID: memberID,
		GymID:    id.NewGymID(),
		Amount:   types.PKR(3000),
		Period:   "2025-01",
		DueDate:  time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Status:   fee.StatusPending,
	}
	if err := s.CreateFee(ctx, f); err != nil {
		t.Fatalf("first create: %v", err)
	}

	dup := *f
	dup.ID = id.NewFeeID()
	if err := s.CreateFee(ctx, &dup); !errors.Is(err, dues.ErrDuplicateFee) {
		t.Errorf("want ErrDuplicateFee, got %v", err)
	}

	// A different period for the same member is fine.
	next := *f
	next.ID = id.NewFeeID()
	next.Period = "2025-02"
	if err := s.CreateFee(ctx, &next); err != nil {
		t.Errorf("different period: %v", err)
	}
}

func TestUpdateMemberVersionCheck(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	m := newMember(id.NewGymID(), "v@example.com")
	if err := s.CreateMember(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := s.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, _ := s.GetMember(ctx, m.ID)

	first.Name = "First Writer"
	if err := s.UpdateMember(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second.Name = "Second Writer"
	if err := s.UpdateMember(ctx, second); !errors.Is(err, dues.ErrVersionConflict) {
		t.Errorf("want ErrVersionConflict, got %v", err)
	}

	// The winning writer's copy carries the incremented version.
	if err := s.UpdateMember(ctx, first); err != nil {
		t.Errorf("second update with fresh version: %v", err)
	}
}

func TestAppendFeeHistoryRejectsDuplicatePeriod(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	m := newMember(id.NewGymID(), "h@example.com")
	if err := s.CreateMember(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	entry := member.FeeHistoryEntry{
		Period:  "2025-01",
		Amount:  types.PKR(3000),
		DueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Status:  member.FeePending,
	}
	if err := s.AppendFeeHistory(ctx, m.ID, entry); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.AppendFeeHistory(ctx, m.ID, entry); !errors.Is(err, dues.ErrAlreadyExists) {
		t.Errorf("want ErrAlreadyExists, got %v", err)
	}

	got, err := s.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.FeeHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(got.FeeHistory))
	}
}

func TestRepriceSkipsPaid(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	gymID := id.NewGymID()
	memberID := id.NewMemberID()

	paid := &fee.Fee{
		Entity: types.NewEntity(), ID: id.NewFeeID(), MemberID: memberID, GymID: gymID,
		Amount: types.PKR(3000), Period: "2025-01",
		DueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Status:  fee.StatusPaid,
	}
	open := &fee.Fee{
		Entity: types.NewEntity(), ID: id.NewFeeID(), MemberID: memberID, GymID: gymID,
		Amount: types.PKR(3000), Period: "2025-02",
		DueDate: time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC),
		Status:  fee.StatusPending,
	}
	for _, f := range []*fee.Fee{paid, open} {
		if err := s.CreateFee(ctx, f); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	touched, err := s.RepriceOpenFees(ctx, gymID, types.PKR(4000))
	if err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if touched != 1 {
		t.Errorf("touched = %d, want 1", touched)
	}

	gotPaid, _ := s.GetFee(ctx, paid.ID)
	if gotPaid.Amount.Amount != 3000 {
		t.Errorf("paid fee repriced to %d", gotPaid.Amount.Amount)
	}
	gotOpen, _ := s.GetFee(ctx, open.ID)
	if gotOpen.Amount.Amount != 4000 {
		t.Errorf("open fee = %d, want 4000", gotOpen.Amount.Amount)
	}
}

func TestDeepCopies(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	m := newMember(id.NewGymID(), "copy@example.com")
	m.FeeHistory = []member.FeeHistoryEntry{{
		Period: "2025-01", Amount: types.PKR(3000), Status: member.FeePending,
	}}
	if err := s.CreateMember(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := s.GetMember(ctx, m.ID)
	got.FeeHistory[0].Status = member.FeePaid
	got.Name = "Mutated"

	again, _ := s.GetMember(ctx, m.ID)
	if again.FeeHistory[0].Status != member.FeePending {
		t.Error("mutating a returned member leaked into the store")
	}
	if again.Name != "Test Member" {
		t.Error("mutating a returned member leaked into the store")
	}
}

func TestClosedStore(t *testing.T) {
	s := memory.New()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping before close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, dues.ErrStoreClosed) {
		t.Errorf("want ErrStoreClosed, got %v", err)
	}
	if _, err := s.GetMember(context.Background(), id.NewMemberID()); !errors.Is(err, dues.ErrStoreClosed) {
		t.Errorf("want ErrStoreClosed, got %v", err)
	}
}
