package dues

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/identity"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/plugin"
	"github.com/xraph/dues/store"
	"github.com/xraph/dues/types"
)

// Engine is the membership-dues engine. It keeps the fee ledger (system of
// record) and the per-member fee history (denormalized cache) consistent
// without transactions: writes order ledger-first, reads self-heal drift.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// nowFn is the clock all period math and timestamps flow through.
	nowFn func() time.Time

	// repriceOnSettings controls whether a settings change triggers bulk
	// repricing of the owner's open fees.
	repriceOnSettings bool
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		nowFn:             time.Now,
		repriceOnSettings: true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock overrides the engine clock. Tests use this to pin the current
// period and payment timestamps.
func WithClock(nowFn func() time.Time) Option {
	return func(e *Engine) {
		e.nowFn = nowFn
	}
}

// WithRepriceOnSettings controls whether UpsertSettings triggers bulk
// repricing of the owner's open fees. Enabled by default.
func WithRepriceOnSettings(enabled bool) Option {
	return func(e *Engine) {
		e.repriceOnSettings = enabled
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("dues engine started", "plugins", e.plugins.Count())
	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// now returns the engine's current time in UTC.
func (e *Engine) now() time.Time {
	return e.nowFn().UTC()
}

// ──────────────────────────────────────────────────
// Member Management
// ──────────────────────────────────────────────────

// CreateMember registers a new member and seeds their current-period fee.
// When GymID is unset it is taken from the resolved caller identity in ctx.
// The member is returned re-read so callers see the seeded fee history.
func (e *Engine) CreateMember(ctx context.Context, m *member.Member) (*member.Member, error) {
	if m.GymID.IsNil() {
		if ident, ok := identity.FromContext(ctx); ok {
			m.GymID = ident.GymID
		}
	}

	if err := validateNewMember(m); err != nil {
		return nil, err
	}

	now := e.now()
	if m.ID.IsNil() {
		m.ID = id.NewMemberID()
	}
	m.Entity = types.NewEntityAt(now)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	if m.JoinDate.IsZero() {
		m.JoinDate = now
	}
	if m.Status == "" {
		m.Status = member.StatusActive
	}
	m.FeeStatus = member.FeePending
	if m.FeeHistory == nil {
		m.FeeHistory = []member.FeeHistoryEntry{}
	}
	m.Version = 0

	if err := e.store.CreateMember(ctx, m); err != nil {
		return nil, err
	}

	e.plugins.EmitMemberCreated(ctx, m)

	// Seed the current period. Failure here never fails member creation;
	// the next read repairs it.
	if _, err := e.EnsureCurrentFee(ctx, m.ID); err != nil {
		e.logger.Warn("seeding current fee failed, deferring to repair",
			"member_id", m.ID, "error", err)
	}

	return e.store.GetMember(ctx, m.ID)
}

// GetMember retrieves a member. The read refreshes the member's fee status
// (paid members whose next fee has come due are promoted to pending).
func (e *Engine) GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	m, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	e.refreshFeeStatus(ctx, m)
	return m, nil
}

// ListMembers lists members, refreshing each member's fee status.
func (e *Engine) ListMembers(ctx context.Context, opts member.ListOpts) ([]*member.Member, error) {
	members, err := e.store.ListMembers(ctx, opts)
	if err != nil {
		return nil, err
	}

	for _, m := range members {
		e.refreshFeeStatus(ctx, m)
	}
	return members, nil
}

// UpdateMember applies a partial update. A stored-left member updated to
// active is reactivated: their current-period fee is ensured and their fee
// status reset to pending. A member who stays left accrues nothing.
func (e *Engine) UpdateMember(ctx context.Context, memberID id.MemberID, upd member.Update) (*member.Member, error) {
	reactivated := false

	m, err := e.mutateMember(ctx, memberID, func(m *member.Member) error {
		reactivated = m.Status == member.StatusLeft &&
			upd.Status != nil && *upd.Status == member.StatusActive

		applyUpdate(m, upd)
		if reactivated {
			m.FeeStatus = member.FeePending
		}
		m.TouchAt(e.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reactivated {
		if _, err := e.EnsureCurrentFee(ctx, memberID); err != nil {
			e.logger.Warn("seeding fee after reactivation failed",
				"member_id", memberID, "error", err)
		}
		e.plugins.EmitMemberReactivated(ctx, m)
		e.logger.Info("member reactivated", "member_id", memberID)

		return e.store.GetMember(ctx, memberID)
	}

	return m, nil
}

// DeleteMember removes a member. Their fee ledger records are kept.
func (e *Engine) DeleteMember(ctx context.Context, memberID id.MemberID) error {
	return e.store.DeleteMember(ctx, memberID)
}

// ──────────────────────────────────────────────────
// Identity directory
// ──────────────────────────────────────────────────

// LookupUser implements identity.Directory over the engine's user store, so
// an identity.TokenResolver can be wired directly to the engine.
func (e *Engine) LookupUser(ctx context.Context, userID id.UserID) (*identity.Identity, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &identity.Identity{
		UserID: u.ID,
		GymID:  u.GymID,
		Role:   identity.Role(u.Role),
	}, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// errSkipWrite signals from a mutateMember closure that no write is needed.
var errSkipWrite = errors.New("dues: skip write")

// mutateMember reads the member, applies fn to the copy, and writes it back
// version-checked. A concurrent-write conflict is resolved by one re-read
// and re-apply.
func (e *Engine) mutateMember(ctx context.Context, memberID id.MemberID, fn func(*member.Member) error) (*member.Member, error) {
	for attempt := 0; ; attempt++ {
		m, err := e.store.GetMember(ctx, memberID)
		if err != nil {
			return nil, err
		}

		if err := fn(m); err != nil {
			if errors.Is(err, errSkipWrite) {
				return m, nil
			}
			return nil, err
		}

		err = e.store.UpdateMember(ctx, m)
		if err == nil {
			return m, nil
		}
		if !IsRetryable(err) || attempt >= 1 {
			return nil, err
		}

		e.logger.Debug("member write conflicted, retrying",
			"member_id", memberID, "attempt", attempt+1)
	}
}

func validateNewMember(m *member.Member) error {
	if strings.TrimSpace(m.Name) == "" {
		return ValidationError{Field: "name", Message: "required"}
	}
	if strings.TrimSpace(m.Email) == "" {
		return ValidationError{Field: "email", Message: "required"}
	}
	if !strings.Contains(m.Email, "@") {
		return ValidationError{Field: "email", Message: "invalid address"}
	}
	if m.GymID.IsNil() {
		return ValidationError{Field: "gym_id", Message: "required"}
	}
	if m.Status != "" && m.Status != member.StatusActive && m.Status != member.StatusLeft {
		return ValidationError{Field: "status", Message: "unknown status"}
	}
	return nil
}

func applyUpdate(m *member.Member, upd member.Update) {
	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.Email != nil {
		m.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Phone != nil {
		m.Phone = *upd.Phone
	}
	if upd.Gender != nil {
		m.Gender = *upd.Gender
	}
	if upd.JoinDate != nil {
		m.JoinDate = *upd.JoinDate
	}
	if upd.Status != nil {
		m.Status = *upd.Status
	}
	if upd.GymID != nil {
		m.GymID = *upd.GymID
	}
	if upd.UserID != nil {
		m.UserID = *upd.UserID
	}
}
