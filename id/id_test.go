package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/dues/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"MemberID", id.NewMemberID, "mbr_"},
		{"FeeID", id.NewFeeID, "fee_"},
		{"GymID", id.NewGymID, "gym_"},
		{"UserID", id.NewUserID, "usr_"},
		{"SettingsID", id.NewSettingsID, "cfg_"},
		{"ExpenseID", id.NewExpenseID, "exp_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixMember)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixMember {
		t.Errorf("expected prefix %q, got %q", id.PrefixMember, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"MemberID", id.NewMemberID, id.ParseMemberID},
		{"FeeID", id.NewFeeID, id.ParseFeeID},
		{"GymID", id.NewGymID, id.ParseGymID},
		{"UserID", id.NewUserID, id.ParseUserID},
		{"SettingsID", id.NewSettingsID, id.ParseSettingsID},
		{"ExpenseID", id.NewExpenseID, id.ParseExpenseID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseMemberID rejects fee_", id.NewFeeID().String(), id.ParseMemberID},
		{"ParseFeeID rejects gym_", id.NewGymID().String(), id.ParseFeeID},
		{"ParseGymID rejects usr_", id.NewUserID().String(), id.ParseGymID},
		{"ParseUserID rejects cfg_", id.NewSettingsID().String(), id.ParseUserID},
		{"ParseSettingsID rejects exp_", id.NewExpenseID().String(), id.ParseSettingsID},
		{"ParseExpenseID rejects mbr_", id.NewMemberID().String(), id.ParseExpenseID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewMemberID(),
		id.NewFeeID(),
		id.NewGymID(),
		id.NewUserID(),
		id.NewSettingsID(),
		id.NewExpenseID(),
	}

	for _, original := range ids {
		parsed, err := id.ParseAny(original.String())
		if err != nil {
			t.Fatalf("ParseAny(%q) failed: %v", original.String(), err)
		}
		if parsed.String() != original.String() {
			t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
		}
	}
}

func TestNilID(t *testing.T) {
	var nilID id.ID

	if !nilID.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if nilID.String() != "" {
		t.Errorf("nil ID should stringify to empty, got %q", nilID.String())
	}
	if nilID.Prefix() != "" {
		t.Errorf("nil ID should have empty prefix, got %q", nilID.Prefix())
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{"", "not-a-typeid", "mbr_", "_01h2xcejqtf2nbrexx3vqjhp41"}

	for _, input := range inputs {
		if _, err := id.Parse(input); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", input)
		}
	}
}

func TestTextMarshaling(t *testing.T) {
	original := id.NewMemberID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if decoded.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", decoded.String(), original.String())
	}

	var empty id.ID
	if err := empty.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !empty.IsNil() {
		t.Error("unmarshaling empty text should yield the nil ID")
	}
}

func TestSQLValueScan(t *testing.T) {
	original := id.NewFeeID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", scanned.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("scanning NULL should yield the nil ID")
	}

	if err := scanned.Scan(42); err == nil {
		t.Error("scanning an int should fail")
	}
}
