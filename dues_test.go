package dues_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/dues"
	"github.com/xraph/dues/gym"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/identity"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/store/memory"
	"github.com/xraph/dues/types"
	"github.com/xraph/dues/user"
)

// testClock is a settable engine clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fixture is a started engine over a memory store with one gym and owner.
type fixture struct {
	engine *dues.Engine
	store  *memory.Store
	clock  *testClock
	owner  *user.User
	gym    *gym.Gym
}

// jan15 is the reference start time for most tests: the gym's fees come due
// on the 15th.
var jan15 = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	clock := &testClock{now: jan15}
	st := memory.New()
	engine := dues.New(st, dues.WithClock(clock.Now))
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = engine.Stop() })

	owner, err := engine.CreateUser(ctx, &user.User{
		Name:  "Owner",
		Email: "owner@example.com",
		Role:  user.RoleOwner,
	})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}

	g, err := engine.CreateGym(ctx, &gym.Gym{
		Name:       "Iron Works",
		Location:   "Lahore",
		OwnerID:    owner.ID,
		MonthlyFee: types.PKR(3000),
	})
	if err != nil {
		t.Fatalf("create gym: %v", err)
	}

	return &fixture{engine: engine, store: st, clock: clock, owner: owner, gym: g}
}

func (fx *fixture) newMember(t *testing.T, email string) *member.Member {
	t.Helper()
	m, err := fx.engine.CreateMember(context.Background(), &member.Member{
		Name:  "Member " + email,
		Email: email,
		GymID: fx.gym.ID,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

func TestCreateMemberSeedsCurrentFee(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	m := fx.newMember(t, "asad@example.com")

	if m.Status != member.StatusActive {
		t.Errorf("status = %q, want active", m.Status)
	}
	if m.FeeStatus != member.FeePending {
		t.Errorf("fee status = %q, want pending", m.FeeStatus)
	}
	if len(m.FeeHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(m.FeeHistory))
	}

	entry := m.FeeHistory[0]
	if entry.Period != "2025-01" {
		t.Errorf("period = %q, want 2025-01", entry.Period)
	}
	if entry.Amount.Amount != 3000 {
		t.Errorf("amount = %d, want gym default 3000", entry.Amount.Amount)
	}
	if entry.DueDate.Day() != 15 {
		t.Errorf("due day = %d, want 15 (join date day)", entry.DueDate.Day())
	}
	if entry.FeeID.IsNil() {
		t.Error("history entry should back-reference its fee record")
	}

	f, err := fx.engine.GetFee(ctx, entry.FeeID)
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if f.Period != entry.Period || !f.Amount.Equal(entry.Amount) {
		t.Errorf("ledger/history mismatch: fee %+v vs entry %+v", f, entry)
	}
}

func TestCreateMemberGymFromIdentity(t *testing.T) {
	fx := newFixture(t)

	ctx := identity.NewContext(context.Background(), &identity.Identity{
		UserID: fx.owner.ID,
		GymID:  fx.gym.ID,
		Role:   identity.RoleOwner,
	})

	m, err := fx.engine.CreateMember(ctx, &member.Member{
		Name:  "No Gym Given",
		Email: "implicit@example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.GymID != fx.gym.ID {
		t.Errorf("gym = %v, want caller's gym %v", m.GymID, fx.gym.ID)
	}
}

func TestCreateMemberValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		m    member.Member
	}{
		{"missing name", member.Member{Email: "x@example.com", GymID: fx.gym.ID}},
		{"missing email", member.Member{Name: "X", GymID: fx.gym.ID}},
		{"bad email", member.Member{Name: "X", Email: "not-an-address", GymID: fx.gym.ID}},
		{"missing gym", member.Member{Name: "X", Email: "x@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.m
			if _, err := fx.engine.CreateMember(ctx, &m); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateMemberDuplicateEmail(t *testing.T) {
	fx := newFixture(t)
	fx.newMember(t, "dup@example.com")

	_, err := fx.engine.CreateMember(context.Background(), &member.Member{
		Name:  "Second",
		Email: "Dup@Example.com",
		GymID: fx.gym.ID,
	})
	if !errors.Is(err, dues.ErrDuplicateMember) {
		t.Errorf("want ErrDuplicateMember, got %v", err)
	}
}

func TestUpdateMemberReactivation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "return@example.com")

	left := member.StatusLeft
	if _, err := fx.engine.UpdateMember(ctx, m.ID, member.Update{Status: &left}); err != nil {
		t.Fatalf("leave: %v", err)
	}

	// Two months pass while the member is away; no fees accrue.
	fx.clock.Set(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC))
	away, err := fx.engine.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(away.FeeHistory) != 1 {
		t.Fatalf("left member accrued fees: history length = %d, want 1", len(away.FeeHistory))
	}

	active := member.StatusActive
	back, err := fx.engine.UpdateMember(ctx, m.ID, member.Update{Status: &active})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	if back.FeeStatus != member.FeePending {
		t.Errorf("fee status = %q, want pending", back.FeeStatus)
	}
	if !back.HasPeriod("2025-03") {
		t.Error("reactivation should seed the current period's fee")
	}
	if back.HasPeriod("2025-02") {
		t.Error("reactivation must not backfill skipped months")
	}
}

func TestLeftMemberAccruesNothing(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "gone@example.com")

	left := member.StatusLeft
	if _, err := fx.engine.UpdateMember(ctx, m.ID, member.Update{Status: &left}); err != nil {
		t.Fatalf("leave: %v", err)
	}

	fx.clock.Set(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	if err := fx.engine.SyncMemberFees(ctx, m.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, _ := fx.engine.GetMember(ctx, m.ID)
	if len(got.FeeHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(got.FeeHistory))
	}
}

func TestUpdateMemberFields(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "fields@example.com")

	name := "Renamed"
	phone := "+92-300-0000000"
	got, err := fx.engine.UpdateMember(ctx, m.ID, member.Update{Name: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Renamed" || got.Phone != phone {
		t.Errorf("update not applied: %+v", got)
	}
	if got.Status != member.StatusActive {
		t.Errorf("status changed unexpectedly: %q", got.Status)
	}
}

func TestDeleteMemberKeepsLedger(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	m := fx.newMember(t, "delete@example.com")
	feeID := m.FeeHistory[0].FeeID

	if err := fx.engine.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fx.engine.GetMember(ctx, m.ID); !errors.Is(err, dues.ErrMemberNotFound) {
		t.Errorf("want ErrMemberNotFound, got %v", err)
	}
	if _, err := fx.engine.GetFee(ctx, feeID); err != nil {
		t.Errorf("ledger record should survive member deletion: %v", err)
	}
}

func TestLookupUserDirectory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	ident, err := fx.engine.LookupUser(ctx, fx.owner.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ident.UserID != fx.owner.ID || ident.Role != identity.RoleOwner {
		t.Errorf("identity = %+v", ident)
	}

	if _, err := fx.engine.LookupUser(ctx, id.NewUserID()); !errors.Is(err, dues.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}
