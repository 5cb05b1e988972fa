package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

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

// ==================== Member models ====================

type memberModel struct {
	grove.BaseModel `grove:"table:dues_members"`

	ID          string          `grove:"id,pk"`
	Name        string          `grove:"name"`
	Email       string          `grove:"email"`
	Phone       string          `grove:"phone"`
	Gender      string          `grove:"gender"`
	JoinDate    time.Time       `grove:"join_date"`
	Status      string          `grove:"status"`
	FeeStatus   string          `grove:"fee_status"`
	LastPayment *time.Time      `grove:"last_payment"`
	FeeHistory  json.RawMessage `grove:"fee_history,type:jsonb"`
	GymID       string          `grove:"gym_id"`
	UserID      string          `grove:"user_id"`
	Version     int64           `grove:"version"`
	CreatedAt   time.Time       `grove:"created_at"`
	UpdatedAt   time.Time       `grove:"updated_at"`
}

func toMemberModel(m *member.Member) (*memberModel, error) {
	history := m.FeeHistory
	if history == nil {
		history = []member.FeeHistoryEntry{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("dues/postgres: encode fee history: %w", err)
	}

	out := &memberModel{
		ID:          m.ID.String(),
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone,
		Gender:      m.Gender,
		JoinDate:    m.JoinDate,
		Status:      string(m.Status),
		FeeStatus:   string(m.FeeStatus),
		LastPayment: copyTime(m.LastPayment),
		FeeHistory:  raw,
		GymID:       m.GymID.String(),
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if !m.UserID.IsNil() {
		out.UserID = m.UserID.String()
	}
	return out, nil
}

func fromMemberModel(m *memberModel) (*member.Member, error) {
	memberID, err := id.ParseMemberID(m.ID)
	if err != nil {
		return nil, err
	}
	gymID, err := id.ParseGymID(m.GymID)
	if err != nil {
		return nil, err
	}

	var userID id.UserID
	if m.UserID != "" {
		userID, err = id.ParseUserID(m.UserID)
		if err != nil {
			return nil, err
		}
	}

	history := []member.FeeHistoryEntry{}
	if len(m.FeeHistory) > 0 {
		if err := json.Unmarshal(m.FeeHistory, &history); err != nil {
			return nil, fmt.Errorf("dues/postgres: decode fee history: %w", err)
		}
	}

	return &member.Member{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          memberID,
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone,
		Gender:      m.Gender,
		JoinDate:    m.JoinDate,
		Status:      member.Status(m.Status),
		FeeStatus:   member.FeeStatus(m.FeeStatus),
		LastPayment: copyTime(m.LastPayment),
		FeeHistory:  history,
		GymID:       gymID,
		UserID:      userID,
		Version:     m.Version,
	}, nil
}

// ==================== Fee models ====================

type feeModel struct {
	grove.BaseModel `grove:"table:dues_fees"`

	ID             string     `grove:"id,pk"`
	MemberID       string     `grove:"member_id"`
	GymID          string     `grove:"gym_id"`
	AmountMinor    int64      `grove:"amount_minor"`
	AmountCurrency string     `grove:"amount_currency"`
	Period         string     `grove:"period"`
	DueDate        time.Time  `grove:"due_date"`
	Status         string     `grove:"status"`
	PaidDate       *time.Time `grove:"paid_date"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toFeeModel(f *fee.Fee) *feeModel {
	return &feeModel{
		ID:             f.ID.String(),
		MemberID:       f.MemberID.String(),
		GymID:          f.GymID.String(),
		AmountMinor:    f.Amount.Amount,
		AmountCurrency: f.Amount.Currency,
		Period:         f.Period.String(),
		DueDate:        f.DueDate,
		Status:         string(f.Status),
		PaidDate:       copyTime(f.PaidDate),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func fromFeeModel(m *feeModel) (*fee.Fee, error) {
	feeID, err := id.ParseFeeID(m.ID)
	if err != nil {
		return nil, err
	}
	memberID, err := id.ParseMemberID(m.MemberID)
	if err != nil {
		return nil, err
	}
	gymID, err := id.ParseGymID(m.GymID)
	if err != nil {
		return nil, err
	}

	return &fee.Fee{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       feeID,
		MemberID: memberID,
		GymID:    gymID,
		Amount:   types.Money{Amount: m.AmountMinor, Currency: m.AmountCurrency},
		Period:   period.Label(m.Period),
		DueDate:  m.DueDate,
		Status:   fee.Status(m.Status),
		PaidDate: copyTime(m.PaidDate),
	}, nil
}

// ==================== Gym models ====================

type gymModel struct {
	grove.BaseModel `grove:"table:dues_gyms"`

	ID                 string    `grove:"id,pk"`
	Name               string    `grove:"name"`
	Location           string    `grove:"location"`
	OwnerID            string    `grove:"owner_id"`
	MonthlyFeeMinor    int64     `grove:"monthly_fee_minor"`
	MonthlyFeeCurrency string    `grove:"monthly_fee_currency"`
	SubscriptionStatus string    `grove:"subscription_status"`
	CreatedAt          time.Time `grove:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"`
}

func toGymModel(g *gym.Gym) *gymModel {
	return &gymModel{
		ID:                 g.ID.String(),
		Name:               g.Name,
		Location:           g.Location,
		OwnerID:            g.OwnerID.String(),
		MonthlyFeeMinor:    g.MonthlyFee.Amount,
		MonthlyFeeCurrency: g.MonthlyFee.Currency,
		SubscriptionStatus: string(g.SubscriptionStatus),
		CreatedAt:          g.CreatedAt,
		UpdatedAt:          g.UpdatedAt,
	}
}

func fromGymModel(m *gymModel) (*gym.Gym, error) {
	gymID, err := id.ParseGymID(m.ID)
	if err != nil {
		return nil, err
	}
	ownerID, err := id.ParseUserID(m.OwnerID)
	if err != nil {
		return nil, err
	}

	return &gym.Gym{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 gymID,
		Name:               m.Name,
		Location:           m.Location,
		OwnerID:            ownerID,
		MonthlyFee:         types.Money{Amount: m.MonthlyFeeMinor, Currency: m.MonthlyFeeCurrency},
		SubscriptionStatus: gym.SubscriptionStatus(m.SubscriptionStatus),
	}, nil
}

// ==================== Settings models ====================

type settingsModel struct {
	grove.BaseModel `grove:"table:dues_settings"`

	ID                 string    `grove:"id,pk"`
	UserID             string    `grove:"user_id"`
	MonthlyFeeMinor    int64     `grove:"monthly_fee_minor"`
	MonthlyFeeCurrency string    `grove:"monthly_fee_currency"`
	CreatedAt          time.Time `grove:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"`
}

func toSettingsModel(s *settings.Settings) *settingsModel {
	return &settingsModel{
		ID:                 s.ID.String(),
		UserID:             s.UserID.String(),
		MonthlyFeeMinor:    s.MonthlyFee.Amount,
		MonthlyFeeCurrency: s.MonthlyFee.Currency,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSettingsModel(m *settingsModel) (*settings.Settings, error) {
	settingsID, err := id.ParseSettingsID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}

	return &settings.Settings{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         settingsID,
		UserID:     userID,
		MonthlyFee: types.Money{Amount: m.MonthlyFeeMinor, Currency: m.MonthlyFeeCurrency},
	}, nil
}

// ==================== User models ====================

type userModel struct {
	grove.BaseModel `grove:"table:dues_users"`

	ID           string    `grove:"id,pk"`
	Name         string    `grove:"name"`
	Email        string    `grove:"email"`
	PasswordHash string    `grove:"password_hash"`
	GymID        string    `grove:"gym_id"`
	Role         string    `grove:"role"`
	Authorized   bool      `grove:"authorized"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	out := &userModel{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Authorized:   u.Authorized,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if !u.GymID.IsNil() {
		out.GymID = u.GymID.String()
	}
	return out
}

func fromUserModel(m *userModel) (*user.User, error) {
	userID, err := id.ParseUserID(m.ID)
	if err != nil {
		return nil, err
	}

	var gymID id.GymID
	if m.GymID != "" {
		gymID, err = id.ParseGymID(m.GymID)
		if err != nil {
			return nil, err
		}
	}

	return &user.User{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           userID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		GymID:        gymID,
		Role:         user.Role(m.Role),
		Authorized:   m.Authorized,
	}, nil
}

// ==================== Expense models ====================

type expenseModel struct {
	grove.BaseModel `grove:"table:dues_expenses"`

	ID             string    `grove:"id,pk"`
	GymID          string    `grove:"gym_id"`
	UserID         string    `grove:"user_id"`
	Description    string    `grove:"description"`
	AmountMinor    int64     `grove:"amount_minor"`
	AmountCurrency string    `grove:"amount_currency"`
	Category       string    `grove:"category"`
	Date           time.Time `grove:"date"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toExpenseModel(e *expense.Expense) *expenseModel {
	out := &expenseModel{
		ID:             e.ID.String(),
		GymID:          e.GymID.String(),
		Description:    e.Description,
		AmountMinor:    e.Amount.Amount,
		AmountCurrency: e.Amount.Currency,
		Category:       string(e.Category),
		Date:           e.Date,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if !e.UserID.IsNil() {
		out.UserID = e.UserID.String()
	}
	return out
}

func fromExpenseModel(m *expenseModel) (*expense.Expense, error) {
	expenseID, err := id.ParseExpenseID(m.ID)
	if err != nil {
		return nil, err
	}
	gymID, err := id.ParseGymID(m.GymID)
	if err != nil {
		return nil, err
	}

	var userID id.UserID
	if m.UserID != "" {
		userID, err = id.ParseUserID(m.UserID)
		if err != nil {
			return nil, err
		}
	}

	return &expense.Expense{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          expenseID,
		GymID:       gymID,
		UserID:      userID,
		Description: m.Description,
		Amount:      types.Money{Amount: m.AmountMinor, Currency: m.AmountCurrency},
		Category:    expense.Category(m.Category),
		Date:        m.Date,
	}, nil
}

// ==================== Helpers ====================

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
