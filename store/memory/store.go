// Package memory provides an in-memory store for tests and single-process
// embeddings. It enforces the same unique constraints as the database
// drivers (member email, one fee per member and period) and hands out deep
// copies so callers never share memory with the store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/dues"
	"github.com/xraph/dues/expense"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/gym"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/settings"
	"github.com/xraph/dues/types"
	"github.com/xraph/dues/user"
)

type Store struct {
	mu     sync.RWMutex
	closed bool

	members  map[string]*member.Member
	fees     map[string]*fee.Fee
	gyms     map[string]*gym.Gym
	settings map[string]*settings.Settings // keyed by user ID
	users    map[string]*user.User
	expenses map[string]*expense.Expense
}

func New() *Store {
	return &Store{
		members:  make(map[string]*member.Member),
		fees:     make(map[string]*fee.Fee),
		gyms:     make(map[string]*gym.Gym),
		settings: make(map[string]*settings.Settings),
		users:    make(map[string]*user.User),
		expenses: make(map[string]*expense.Expense),
	}
}

// Member Store implementation

func (s *Store) CreateMember(_ context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, exists := s.members[m.ID.String()]; exists {
		return dues.ErrAlreadyExists
	}
	for _, existing := range s.members {
		if strings.EqualFold(existing.Email, m.Email) {
			return dues.ErrDuplicateMember
		}
	}

	s.members[m.ID.String()] = copyMember(m)
	return nil
}

func (s *Store) GetMember(_ context.Context, memberID id.MemberID) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	if m, ok := s.members[memberID.String()]; ok {
		return copyMember(m), nil
	}
	return nil, dues.ErrMemberNotFound
}

func (s *Store) GetMemberByEmail(_ context.Context, email string) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	for _, m := range s.members {
		if strings.EqualFold(m.Email, email) {
			return copyMember(m), nil
		}
	}
	return nil, dues.ErrMemberNotFound
}

func (s *Store) ListMembers(_ context.Context, opts member.ListOpts) ([]*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}

	result := make([]*member.Member, 0)
	for _, m := range s.members {
		if !opts.GymID.IsNil() && m.GymID != opts.GymID {
			continue
		}
		if opts.Status != "" && m.Status != opts.Status {
			continue
		}
		if opts.FeeStatus != "" && m.FeeStatus != opts.FeeStatus {
			continue
		}
		result = append(result, copyMember(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateMember(_ context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	stored, exists := s.members[m.ID.String()]
	if !exists {
		return dues.ErrMemberNotFound
	}
	if stored.Version != m.Version {
		return dues.ErrVersionConflict
	}

	m.Version++
	s.members[m.ID.String()] = copyMember(m)
	return nil
}

func (s *Store) DeleteMember(_ context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	delete(s.members, memberID.String())
	return nil
}

func (s *Store) AppendFeeHistory(_ context.Context, memberID id.MemberID, entry member.FeeHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	m, exists := s.members[memberID.String()]
	if !exists {
		return dues.ErrMemberNotFound
	}
	if m.HasPeriod(entry.Period) {
		return dues.ErrAlreadyExists
	}

	m.FeeHistory = append(m.FeeHistory, entry)
	m.Touch()
	return nil
}

func (s *Store) RepriceOpenFeeHistory(_ context.Context, gymID id.GymID, amount types.Money) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return 0, err
	}

	var touched int64
	for _, m := range s.members {
		if m.GymID != gymID {
			continue
		}
		changed := false
		for i := range m.FeeHistory {
			if m.FeeHistory[i].Status != member.FeePaid && !m.FeeHistory[i].Amount.Equal(amount) {
				m.FeeHistory[i].Amount = amount
				changed = true
			}
		}
		if changed {
			m.Touch()
			touched++
		}
	}
	return touched, nil
}

// Fee Store implementation

func (s *Store) CreateFee(_ context.Context, f *fee.Fee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, exists := s.fees[f.ID.String()]; exists {
		return dues.ErrAlreadyExists
	}
	for _, existing := range s.fees {
		if existing.MemberID == f.MemberID && existing.Period == f.Period {
			return dues.ErrDuplicateFee
		}
	}

	s.fees[f.ID.String()] = copyFee(f)
	return nil
}

func (s *Store) GetFee(_ context.Context, feeID id.FeeID) (*fee.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	if f, ok := s.fees[feeID.String()]; ok {
		return copyFee(f), nil
	}
	return nil, dues.ErrFeeNotFound
}

func (s *Store) GetFeeByPeriod(_ context.Context, memberID id.MemberID, p period.Label) (*fee.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	for _, f := range s.fees {
		if f.MemberID == memberID && f.Period == p {
			return copyFee(f), nil
		}
	}
	return nil, dues.ErrFeeNotFound
}

func (s *Store) ListFees(_ context.Context, opts fee.ListOpts) ([]*fee.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}

	result := make([]*fee.Fee, 0)
	for _, f := range s.fees {
		if !opts.MemberID.IsNil() && f.MemberID != opts.MemberID {
			continue
		}
		if !opts.GymID.IsNil() && f.GymID != opts.GymID {
			continue
		}
		if opts.Status != "" && f.Status != opts.Status {
			continue
		}
		if opts.Period != "" && f.Period != opts.Period {
			continue
		}
		result = append(result, copyFee(f))
	}
	// Period labels sort chronologically.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Period != result[j].Period {
			return result[i].Period < result[j].Period
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateFee(_ context.Context, f *fee.Fee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, exists := s.fees[f.ID.String()]; !exists {
		return dues.ErrFeeNotFound
	}
	s.fees[f.ID.String()] = copyFee(f)
	return nil
}

func (s *Store) DeleteFee(_ context.Context, feeID id.FeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	delete(s.fees, feeID.String())
	return nil
}

func (s *Store) MarkFeePaid(_ context.Context, feeID id.FeeID, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	f, exists := s.fees[feeID.String()]
	if !exists {
		return dues.ErrFeeNotFound
	}

	f.Status = fee.StatusPaid
	paid := paidAt
	f.PaidDate = &paid
	f.Touch()
	return nil
}

func (s *Store) RepriceOpenFees(_ context.Context, gymID id.GymID, amount types.Money) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return 0, err
	}

	var touched int64
	for _, f := range s.fees {
		if f.GymID == gymID && f.Status != fee.StatusPaid && !f.Amount.Equal(amount) {
			f.Amount = amount
			f.Touch()
			touched++
		}
	}
	return touched, nil
}

// Gym Store implementation

func (s *Store) CreateGym(_ context.Context, g *gym.Gym) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, exists := s.gyms[g.ID.String()]; exists {
		return dues.ErrAlreadyExists
	}
	cp := *g
	s.gyms[g.ID.String()] = &cp
	return nil
}

func (s *Store) GetGym(_ context.Context, gymID id.GymID) (*gym.Gym, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	if g, ok := s.gyms[gymID.String()]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, dues.ErrGymNotFound
}

func (s *Store) ListGymsForOwner(_ context.Context, ownerID id.UserID) ([]*gym.Gym, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}

	result := make([]*gym.Gym, 0)
	for _, g := range s.gyms {
		if g.OwnerID == ownerID {
			cp := *g
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (s *Store) UpdateGym(_ context.Context, g *gym.Gym) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, exists := s.gyms[g.ID.String()]; !exists {
		return dues.ErrGymNotFound
	}
	cp := *g
	s.gyms[g.ID.String()] = &cp
	return nil
}

// Settings Store implementation

func (s *Store) UpsertSettings(_ context.Context, cfg *settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}

	key := cfg.UserID.String()
	if existing, ok := s.settings[key]; ok {
		existing.MonthlyFee = cfg.MonthlyFee
		existing.Touch()
		*cfg = *existing
		return nil
	}

	cp := *cfg
	s.settings[key] = &cp
	return nil
}

func (s *Store) GetSettingsByUser(_ context.Context, userID id.UserID) (*settings.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	if cfg, ok := s.settings[userID.String()]; ok {
		cp := *cfg
		return &cp, nil
	}
	return nil, dues.ErrSettingsNotFound
}

func (s *Store) DeleteSettingsByUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	delete(s.settings, userID.String())
	return nil
}

// User Store implementation

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, exists := s.users[u.ID.String()]; exists {
		return dues.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return dues.ErrDuplicateUser
		}
	}
	cp := *u
	s.users[u.ID.String()] = &cp
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	if u, ok := s.users[userID.String()]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, dues.ErrUserNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, dues.ErrUserNotFound
}

// Expense Store implementation

func (s *Store) CreateExpense(_ context.Context, e *expense.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, exists := s.expenses[e.ID.String()]; exists {
		return dues.ErrAlreadyExists
	}
	cp := *e
	s.expenses[e.ID.String()] = &cp
	return nil
}

func (s *Store) GetExpense(_ context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	if e, ok := s.expenses[expenseID.String()]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, dues.ErrExpenseNotFound
}

func (s *Store) ListExpenses(_ context.Context, opts expense.ListOpts) ([]*expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}

	result := make([]*expense.Expense, 0)
	for _, e := range s.expenses {
		if !opts.GymID.IsNil() && e.GymID != opts.GymID {
			continue
		}
		if opts.Category != "" && e.Category != opts.Category {
			continue
		}
		if !opts.Start.IsZero() && e.Date.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && e.Date.After(opts.End) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) DeleteExpense(_ context.Context, expenseID id.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	delete(s.expenses, expenseID.String())
	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guard()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Helper functions

func (s *Store) guard() error {
	if s.closed {
		return dues.ErrStoreClosed
	}
	return nil
}

func copyMember(m *member.Member) *member.Member {
	cp := *m
	if m.LastPayment != nil {
		t := *m.LastPayment
		cp.LastPayment = &t
	}
	cp.FeeHistory = make([]member.FeeHistoryEntry, len(m.FeeHistory))
	for i, entry := range m.FeeHistory {
		cp.FeeHistory[i] = entry
		if entry.PaidDate != nil {
			t := *entry.PaidDate
			cp.FeeHistory[i].PaidDate = &t
		}
	}
	return &cp
}

func copyFee(f *fee.Fee) *fee.Fee {
	cp := *f
	if f.PaidDate != nil {
		t := *f.PaidDate
		cp.PaidDate = &t
	}
	return &cp
}

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
