package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/identity"
)

type mapDirectory map[string]*identity.Identity

func (d mapDirectory) LookupUser(_ context.Context, userID id.UserID) (*identity.Identity, error) {
	if ident, ok := d[userID.String()]; ok {
		return ident, nil
	}
	return nil, errors.New("no such user")
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	userID := id.NewUserID()
	gymID := id.NewGymID()

	dir := mapDirectory{
		userID.String(): {UserID: userID, GymID: gymID, Role: identity.RoleOwner},
	}
	resolver := identity.NewTokenResolver(secret, dir)

	token, err := identity.IssueToken(secret, userID, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	ident, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ident.UserID != userID {
		t.Errorf("UserID = %v, want %v", ident.UserID, userID)
	}
	if ident.GymID != gymID {
		t.Errorf("GymID = %v, want %v", ident.GymID, gymID)
	}
	if !ident.IsOwner() {
		t.Error("expected owner role")
	}
}

func TestResolveRejections(t *testing.T) {
	secret := []byte("test-secret")
	userID := id.NewUserID()
	dir := mapDirectory{
		userID.String(): {UserID: userID, Role: identity.RoleStaff},
	}
	resolver := identity.NewTokenResolver(secret, dir)

	expired, err := identity.IssueToken(secret, userID, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	wrongKey, err := identity.IssueToken([]byte("other-secret"), userID, nil)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	unknownUser, err := identity.IssueToken(secret, id.NewUserID(), nil)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"empty", ""},
		{"expired", expired},
		{"wrong key", wrongKey},
		{"unknown user", unknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tt.token)
			if !errors.Is(err, identity.ErrUnauthenticated) {
				t.Errorf("want ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestStaticResolver(t *testing.T) {
	want := identity.Identity{UserID: id.NewUserID(), Role: identity.RoleStaff}
	resolver := &identity.Static{Identity: want}

	got, err := resolver.Resolve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.UserID != want.UserID || got.Role != want.Role {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestContextCarriage(t *testing.T) {
	if _, ok := identity.FromContext(context.Background()); ok {
		t.Error("empty context should carry no identity")
	}

	ident := &identity.Identity{UserID: id.NewUserID(), GymID: id.NewGymID(), Role: identity.RoleOwner}
	ctx := identity.NewContext(context.Background(), ident)

	got, ok := identity.FromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if got.UserID != ident.UserID {
		t.Errorf("UserID = %v, want %v", got.UserID, ident.UserID)
	}
}
