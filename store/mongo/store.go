package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colMembers  = "dues_members"
	colFees     = "dues_fees"
	colGyms     = "dues_gyms"
	colSettings = "dues_settings"
	colUsers    = "dues_users"
	colExpenses = "dues_expenses"
)

// compile-time interface check
var _ duesstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all dues collections. The unique indexes on
// members.email and fees (member_id, period) are what the engine's conflict
// resolution depends on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("dues/mongo: migrate %s indexes: %w", col, err)
		}
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
	model := toMemberModel(m)
	_, err := s.mdb.NewInsert(model).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dues.ErrDuplicateMember
		}
		return fmt.Errorf("dues/mongo: create member: %w", err)
	}
	return nil
}

func (s *Store) GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	var m memberModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": memberID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrMemberNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get member: %w", err)
	}
	return fromMemberModel(&m)
}

func (s *Store) GetMemberByEmail(ctx context.Context, email string) (*member.Member, error) {
	var m memberModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"email": email}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrMemberNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get member by email: %w", err)
	}
	return fromMemberModel(&m)
}

func (s *Store) ListMembers(ctx context.Context, opts member.ListOpts) ([]*member.Member, error) {
	var models []memberModel

	filter := bson.M{}
	if !opts.GymID.IsNil() {
		filter["gym_id"] = opts.GymID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.FeeStatus != "" {
		filter["fee_status"] = string(opts.FeeStatus)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("dues/mongo: list members: %w", err)
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

// UpdateMember replaces the member document if the stored version matches,
// incrementing it. A version mismatch surfaces as ErrVersionConflict.
func (s *Store) UpdateMember(ctx context.Context, m *member.Member) error {
	model := toMemberModel(m)
	model.UpdatedAt = now()
	model.Version = m.Version + 1

	res, err := s.mdb.NewUpdate(model).
		Filter(bson.M{"_id": model.ID, "version": m.Version}).
		Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dues.ErrDuplicateMember
		}
		return fmt.Errorf("dues/mongo: update member: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, gerr := s.GetMember(ctx, m.ID); gerr != nil {
			return dues.ErrMemberNotFound
		}
		return dues.ErrVersionConflict
	}

	m.Version = model.Version
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, memberID id.MemberID) error {
	res, err := s.mdb.NewDelete((*memberModel)(nil)).
		Filter(bson.M{"_id": memberID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: delete member: %w", err)
	}
	if res.DeletedCount() == 0 {
		return dues.ErrMemberNotFound
	}
	return nil
}

// AppendFeeHistory pushes one history entry without rewriting the document.
// The filter excludes members that already carry the period, so a duplicate
// append reports a conflict instead of doubling the entry.
func (s *Store) AppendFeeHistory(ctx context.Context, memberID id.MemberID, entry member.FeeHistoryEntry) error {
	model := toFeeHistoryEntryModel(entry)
	t := now()

	res, err := s.mdb.Collection(colMembers).UpdateOne(ctx,
		bson.M{
			"_id":                memberID.String(),
			"fee_history.period": bson.M{"$ne": model.Period},
		},
		bson.M{
			"$push": bson.M{"fee_history": model},
			"$set":  bson.M{"updated_at": t},
		},
	)
	if err != nil {
		return fmt.Errorf("dues/mongo: append fee history: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetMember(ctx, memberID); gerr != nil {
			return dues.ErrMemberNotFound
		}
		return dues.ErrAlreadyExists
	}
	return nil
}

// RepriceOpenFeeHistory rewrites the amount on every non-paid history entry
// of the gym's members in one bulk update with an array filter.
func (s *Store) RepriceOpenFeeHistory(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error) {
	t := now()

	res, err := s.mdb.Collection(colMembers).UpdateMany(ctx,
		bson.M{
			"gym_id":             gymID.String(),
			"fee_history.status": bson.M{"$ne": string(member.FeePaid)},
		},
		bson.M{
			"$set": bson.M{
				"fee_history.$[open].amount_minor":    amount.Amount,
				"fee_history.$[open].amount_currency": amount.Currency,
				"updated_at":                          t,
			},
		},
		options.UpdateMany().SetArrayFilters([]interface{}{
			bson.M{"open.status": bson.M{"$ne": string(member.FeePaid)}},
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("dues/mongo: reprice fee history: %w", err)
	}
	return res.ModifiedCount, nil
}

// ==================== Fee Store ====================

func (s *Store) CreateFee(ctx context.Context, f *fee.Fee) error {
	model := toFeeModel(f)
	_, err := s.mdb.NewInsert(model).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dues.ErrDuplicateFee
		}
		return fmt.Errorf("dues/mongo: create fee: %w", err)
	}
	return nil
}

func (s *Store) GetFee(ctx context.Context, feeID id.FeeID) (*fee.Fee, error) {
	var m feeModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": feeID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrFeeNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get fee: %w", err)
	}
	return fromFeeModel(&m)
}

func (s *Store) GetFeeByPeriod(ctx context.Context, memberID id.MemberID, p period.Label) (*fee.Fee, error) {
	var m feeModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"member_id": memberID.String(), "period": p.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrFeeNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get fee by period: %w", err)
	}
	return fromFeeModel(&m)
}

func (s *Store) ListFees(ctx context.Context, opts fee.ListOpts) ([]*fee.Fee, error) {
	var models []feeModel

	filter := bson.M{}
	if !opts.MemberID.IsNil() {
		filter["member_id"] = opts.MemberID.String()
	}
	if !opts.GymID.IsNil() {
		filter["gym_id"] = opts.GymID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Period != "" {
		filter["period"] = opts.Period.String()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "period", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("dues/mongo: list fees: %w", err)
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
	model := toFeeModel(f)
	model.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(model).
		Filter(bson.M{"_id": model.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: update fee: %w", err)
	}
	if res.MatchedCount() == 0 {
		return dues.ErrFeeNotFound
	}
	return nil
}

func (s *Store) DeleteFee(ctx context.Context, feeID id.FeeID) error {
	res, err := s.mdb.NewDelete((*feeModel)(nil)).
		Filter(bson.M{"_id": feeID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: delete fee: %w", err)
	}
	if res.DeletedCount() == 0 {
		return dues.ErrFeeNotFound
	}
	return nil
}

func (s *Store) MarkFeePaid(ctx context.Context, feeID id.FeeID, paidAt time.Time) error {
	t := now()
	res, err := s.mdb.NewUpdate((*feeModel)(nil)).
		Filter(bson.M{"_id": feeID.String()}).
		Set("status", string(fee.StatusPaid)).
		Set("paid_date", paidAt).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: mark fee paid: %w", err)
	}
	if res.MatchedCount() == 0 {
		return dues.ErrFeeNotFound
	}
	return nil
}

func (s *Store) RepriceOpenFees(ctx context.Context, gymID id.GymID, amount types.Money) (int64, error) {
	t := now()

	res, err := s.mdb.Collection(colFees).UpdateMany(ctx,
		bson.M{
			"gym_id": gymID.String(),
			"status": bson.M{"$ne": string(fee.StatusPaid)},
		},
		bson.M{"$set": bson.M{
			"amount_minor":    amount.Amount,
			"amount_currency": amount.Currency,
			"updated_at":      t,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("dues/mongo: reprice fees: %w", err)
	}
	return res.ModifiedCount, nil
}

// ==================== Gym Store ====================

func (s *Store) CreateGym(ctx context.Context, g *gym.Gym) error {
	model := toGymModel(g)
	_, err := s.mdb.NewInsert(model).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dues.ErrAlreadyExists
		}
		return fmt.Errorf("dues/mongo: create gym: %w", err)
	}
	return nil
}

func (s *Store) GetGym(ctx context.Context, gymID id.GymID) (*gym.Gym, error) {
	var m gymModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": gymID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrGymNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get gym: %w", err)
	}
	return fromGymModel(&m)
}

func (s *Store) ListGymsForOwner(ctx context.Context, ownerID id.UserID) ([]*gym.Gym, error) {
	var models []gymModel

	err := s.mdb.NewFind(&models).
		Filter(bson.M{"owner_id": ownerID.String()}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("dues/mongo: list gyms: %w", err)
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
	model := toGymModel(g)
	model.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(model).
		Filter(bson.M{"_id": model.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: update gym: %w", err)
	}
	if res.MatchedCount() == 0 {
		return dues.ErrGymNotFound
	}
	return nil
}

// ==================== Settings Store ====================

func (s *Store) UpsertSettings(ctx context.Context, cfg *settings.Settings) error {
	model := toSettingsModel(cfg)
	t := now()

	_, err := s.mdb.Collection(colSettings).UpdateOne(ctx,
		bson.M{"user_id": model.UserID},
		bson.M{
			"$set": bson.M{
				"user_id":              model.UserID,
				"monthly_fee_minor":    model.MonthlyFeeMinor,
				"monthly_fee_currency": model.MonthlyFeeCurrency,
				"updated_at":           t,
			},
			"$setOnInsert": bson.M{
				"_id":        model.ID,
				"created_at": model.CreatedAt,
			},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("dues/mongo: upsert settings: %w", err)
	}
	return nil
}

func (s *Store) GetSettingsByUser(ctx context.Context, userID id.UserID) (*settings.Settings, error) {
	var m settingsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get settings: %w", err)
	}
	return fromSettingsModel(&m)
}

func (s *Store) DeleteSettingsByUser(ctx context.Context, userID id.UserID) error {
	_, err := s.mdb.NewDelete((*settingsModel)(nil)).
		Filter(bson.M{"user_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: delete settings: %w", err)
	}
	return nil
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	model := toUserModel(u)
	_, err := s.mdb.NewInsert(model).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dues.ErrDuplicateUser
		}
		return fmt.Errorf("dues/mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrUserNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get user: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"email": email}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrUserNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get user by email: %w", err)
	}
	return fromUserModel(&m)
}

// ==================== Expense Store ====================

func (s *Store) CreateExpense(ctx context.Context, e *expense.Expense) error {
	model := toExpenseModel(e)
	_, err := s.mdb.NewInsert(model).Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: create expense: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, expenseID id.ExpenseID) (*expense.Expense, error) {
	var m expenseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": expenseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get expense: %w", err)
	}
	return fromExpenseModel(&m)
}

func (s *Store) ListExpenses(ctx context.Context, opts expense.ListOpts) ([]*expense.Expense, error) {
	var models []expenseModel

	filter := bson.M{}
	if !opts.GymID.IsNil() {
		filter["gym_id"] = opts.GymID.String()
	}
	if opts.Category != "" {
		filter["category"] = string(opts.Category)
	}
	if !opts.Start.IsZero() {
		filter["date"] = bson.M{"$gte": opts.Start}
	}
	if !opts.End.IsZero() {
		if d, ok := filter["date"].(bson.M); ok {
			d["$lte"] = opts.End
		} else {
			filter["date"] = bson.M{"$lte": opts.End}
		}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "date", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("dues/mongo: list expenses: %w", err)
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
	res, err := s.mdb.NewDelete((*expenseModel)(nil)).
		Filter(bson.M{"_id": expenseID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("dues/mongo: delete expense: %w", err)
	}
	if res.DeletedCount() == 0 {
		return dues.ErrExpenseNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all dues collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colMembers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "gym_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "gym_id", Value: 1}, {Key: "fee_status", Value: 1}}},
		},
		colFees: {
			{
				Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "period", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "gym_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "due_date", Value: 1}}},
		},
		colGyms: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colSettings: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colExpenses: {
			{Keys: bson.D{{Key: "gym_id", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "gym_id", Value: 1}, {Key: "category", Value: 1}}},
		},
	}
}
