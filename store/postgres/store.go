package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	dues "github.com/xraph/dues"
	"github.com/xraph/dues/expense"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/gym"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/settings"
	duesstore "github.com/xraph/dues/store"
	"github.com/xraph/dues/types"
	"github.com/xraph/dues/user"
)

// compile-time interface check
var _ duesstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("dues/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("dues/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Member Store ====================

func (s *Store) CreateMember(ctx context.Context, m *member.Member) error {
	model, err := toMemberModel(m)
	if err != nil {
		return err
	}
	if _, err := s.pg.NewInsert(model).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return dues.ErrDuplicateMember
		}
		return err
	}
	return nil
}

func (s *Store) GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	m := new(memberModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", memberID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrMemberNotFound
		}
		return nil, err
	}
	return fromMemberModel(m)
}

func (s *Store) GetMemberByEmail(ctx context.Context, email string) (*member.Member, error) {
	m := new(memberModel)
	err := s.pg.NewSelect(m).
		Where("email = $1", email).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrMemberNotFound
		}
		return nil, err
	}
	return fromMemberModel(m)
}

func (s *Store) ListMembers(ctx context.Context, opts member.ListOpts) ([]*member.Member, error) {
	var models []memberModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.GymID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("gym_id = $%d", argIdx), opts.GymID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.FeeStatus != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("fee_status = $%d", argIdx), string(opts.FeeStatus))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*member.Member, len(models))
	for i := range models {
		m, err := fromMemberModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = m
	}
	return result, nil
}

// UpdateMember rewrites the member row if the stored version matches,
// incrementing it. A version mismatch surfaces as ErrVersionConflict.
func (s *Store) UpdateMember(ctx context.Context, m *member.Member) error {
	model, err := toMemberModel(m)
	if err != nil {
		return err
	}
	t := now()

	res, err := s.pg.NewUpdate((*memberModel)(nil)).
		Set("name = $1", model.Name).
		Set("email = $2", model.Email).
		Set("phone = $3", model.Phone).
		Set("gender = $4", model.Gender).
		Set("join_date = $5", model.JoinDate).
		Set("status = $6", model.Status).
		Set("fee_status = $7", model.FeeStatus).
		Set("last_payment = $8", model.LastPayment).
		Set("fee_history = $9", model.FeeHistory).
		Set("gym_id = $10", model.GymID).
		Set("user_id = $11", model.UserID).
		Set("version = $12", m.Version+1).
		Set("updated_at = $13", t).
		Where("id = $14", model.ID).
		Where("version = $15", m.Version).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return dues.ErrDuplicateMember
		}
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, gerr := s.GetMember(ctx, m.ID); gerr != nil {
			return dues.ErrMemberNotFound
		}
		return dues.ErrVersionConflict
	}

	m.Version++
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, memberID id.MemberID) error {
	res, err := s.pg.NewDelete((*memberModel)(nil)).
		Where("id = $1", memberID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dues.ErrMemberNotFound
	}
	return nil
}

// AppendFeeHistory pushes one history entry in a single statement. The guard
// predicate skips members that already carry the period, so a duplicate
// append reports a conflict instead of doubling the entry.
func (s *Store) AppendFeeHistory(ctx context.Context, memberID id.MemberID, entry member.FeeHistoryEntry) error {
	raw, err := json.Marshal([]member.FeeHistoryEntry{entry})
	if err != nil {
		return fmt.Errorf("dues/postgres: encode fee history entry: %w", err)
	}
	t := now()

	res, err := s.pg.NewUpdate((*memberModel)(nil)).
		Set("fee_history = fee_history || $1::jsonb", raw).
		Set("updated_at = $2", t).
		Where("id = $3", memberID.String()).
		Where("NOT EXISTS (SELECT 1 FROM jsonb_array_elements(fee_history) entry WHERE entry->>'period' = $4)",
			entry.Period.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, gerr := s.GetMember(ctx, memberID); gerr != nil {
			return dues.ErrMemberNotFound
		}
		return dues.ErrAlreadyExists
	}
	return nil
}

// RepriceOpenFeeHistory rewrites the amount on every non-paid history entry
// of the gym's members. The JSON column is transformed in Go, one member row
// at a time; a rerun converges any row a partial failure skipped.
func (s *Store) RepriceOpenFeeHistory(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error) {
	var models []memberModel
	err := s.pg.NewSelect(&models).
		Where("gym_id = $1", gymID.String()).
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	var touched int64
	for i := range models {
		m, err := fromMemberModel(&models[i])
		if err != nil {
			return touched, err
		}

		changed := false
		for j := range m.FeeHistory {
			entry := &m.FeeHistory[j]
			if entry.Status == member.FeePaid || entry.Amount.Equal(amount) {
				continue
			}
			entry.Amount = amount
			changed = true
		}
		if !changed {
			continue
		}

		raw, err := json.Marshal(m.FeeHistory)
		if err != nil {
			return touched, fmt.Errorf("dues/postgres: encode fee history: %w", err)
		}
		_, err = s.pg.NewUpdate((*memberModel)(nil)).
			Set("fee_history = $1", json.RawMessage(raw)).
			Set("updated_at = $2", now()).
			Where("id = $3", models[i].ID).
			Exec(ctx)
		if err != nil {
			return touched, err
		}
		touched++
	}
	return touched, nil
}

// ==================== Fee Store ====================

func (s *Store) CreateFee(ctx context.Context, f *fee.Fee) error {
	m := toFeeModel(f)
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return dues.ErrDuplicateFee
		}
		return err
	}
	return nil
}

func (s *Store) GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error) {
	m := new(feeModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", feeID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrFeeNotFound
		}
		return nil, err
	}
	return fromFeeModel(m)
}

func (s *Store) GetFeeByPeriod(ctx context.Context, memberID id.MemberID, p period.Label) (*fee.Fee, error) {
	m := new(feeModel)
	err := s.pg.NewSelect(m).
		Where("member_id = $1", memberID.String()).
		Where("period = $2", p.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrFeeNotFound
		}
		return nil, err
	}
	return fromFeeModel(m)
}

func (s *Store) ListFees(ctx context.Context, opts fee.ListOpts) ([]*fee.Fee, error) {
	var models []feeModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.MemberID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("member_id = $%d", argIdx), opts.MemberID.String())
	}
	if !opts.GymID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("gym_id = $%d", argIdx), opts.GymID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Period != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("period = $%d", argIdx), opts.Period.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("period ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*fee.Fee, len(models))
	for i := range models {
		f, err := fromFeeModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = f
	}
	return result, nil
}

func (s *Store) UpdateFee(ctx context.Context, f *fee.Fee) error {
	m := toFeeModel(f)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dues.ErrFeeNotFound
	}
	return nil
}

func (s *Store) DeleteFee(ctx context.Context, feeID id.FeeID) error {
	res, err := s.pg.NewDelete((*feeModel)(nil)).
		Where("id = $1", feeID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dues.ErrFeeNotFound
	}
	return nil
}

func (s *Store) MarkFeePaid(ctx context.Context, feeID id.FeeID, paidAt time.Time) error {
	t := now()
	res, err := s.pg.NewUpdate((*feeModel)(nil)).
		Set("status = $1", string(fee.StatusPaid)).
		Set("paid_date = $2", paidAt).
		Set("updated_at = $3", t).
		Where("id = $4", feeID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dues.ErrFeeNotFound
	}
	return nil
}

func (s *Store) RepriceOpenFees(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error) {
	t := now()
	res, err := s.pg.NewUpdate((*feeModel)(nil)).
		Set("amount_minor = $1", amount.Amount).
		Set("amount_currency = $2", amount.Currency).
		Set("updated_at = $3", t).
		Where("gym_id = $4", gymID.String()).
		Where("status != $5", string(fee.StatusPaid)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ==================== Gym Store ====================

func (s *Store) CreateGym(ctx context.Context, g *gym.Gym) error {
	m := toGymModel(g)
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return dues.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) GetGym(ctx context.Context, gymID id.GymID) (*gym.Gym, error) {
	m := new(gymModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", gymID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrGymNotFound
		}
		return nil, err
	}
	return fromGymModel(m)
}

func (s *Store) ListGymsForOwner(ctx context.Context, ownerID id.UserID) ([]*gym.Gym, error) {
	var models []gymModel
	err := s.pg.NewSelect(&models).
		Where("owner_id = $1", ownerID.String()).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*gym.Gym, len(models))
	for i := range models {
		g, err := fromGymModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = g
	}
	return result, nil
}

func (s *Store) UpdateGym(ctx context.Context, g *gym.Gym) error {
	m := toGymModel(g)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dues.ErrGymNotFound
	}
	return nil
}

// ==================== Settings Store ====================

func (s *Store) UpsertSettings(ctx context.Context, cfg *settings.Settings) error {
	m := toSettingsModel(cfg)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(user_id) DO UPDATE").
		Set("monthly_fee_minor = EXCLUDED.monthly_fee_minor").
		Set("monthly_fee_currency = EXCLUDED.monthly_fee_currency").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetSettingsByUser(ctx context.Context, userID id.UserID) (*settings.Settings, error) {
	m := new(settingsModel)
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrSettingsNotFound
		}
		return nil, err
	}
	return fromSettingsModel(m)
}

func (s *Store) DeleteSettingsByUser(ctx context.Context, userID id.UserID) error {
	_, err := s.pg.NewDelete((*settingsModel)(nil)).
		Where("user_id = $1", userID.String()).
		Exec(ctx)
	return err
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return dues.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", userID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	m := new(userModel)
	err := s.pg.NewSelect(m).
		Where("email = $1", email).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

// ==================== Expense Store ====================

func (s *Store) CreateExpense(ctx context.Context, e *expense.Expense) error {
	m := toExpenseModel(e)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	m := new(expenseModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", expenseID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, dues.ErrExpenseNotFound
		}
		return nil, err
	}
	return fromExpenseModel(m)
}

func (s *Store) ListExpenses(ctx context.Context, opts expense.ListOpts) ([]*expense.Expense, error) {
	var models []expenseModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.GymID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("gym_id = $%d", argIdx), opts.GymID.String())
	}
	if opts.Category != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("category = $%d", argIdx), string(opts.Category))
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("date >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("date <= $%d", argIdx), opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("date DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*expense.Expense, len(models))
	for i := range models {
		e, err := fromExpenseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) DeleteExpense(ctx context.Context, expenseID id.ExpenseID) error {
	res, err := s.pg.NewDelete((*expenseModel)(nil)).
		Where("id = $1", expenseID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dues.ErrExpenseNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
