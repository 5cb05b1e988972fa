// Package identity resolves caller credentials into a typed identity once,
// at the edge, so the engine never parses tokens itself. Commands that need
// a caller (defaulting a new member's gym, scoping settings) read the
// resolved identity from the context.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/dues/id"
)

// ErrUnauthenticated is returned when a credential cannot be resolved to a
// known user.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// Role mirrors user.Role without importing it, keeping this package a leaf.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// Identity is a resolved caller.
type Identity struct {
	UserID id.UserID
	GymID  id.GymID
	Role   Role
}

// IsOwner reports whether the caller holds the owner role.
func (i *Identity) IsOwner() bool { return i.Role == RoleOwner }

// Resolver turns a raw credential (typically a bearer token) into an
// Identity. Implementations return ErrUnauthenticated for credentials that
// are malformed, expired, or reference no known user.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*Identity, error)
}

// Directory looks up user records during token resolution. Implemented by
// the engine over its user store.
type Directory interface {
	LookupUser(ctx context.Context, userID id.UserID) (*Identity, error)
}

// TokenResolver verifies HS256 JWTs whose subject claim is the user ID,
// then loads the caller through a Directory.
type TokenResolver struct {
	secret    []byte
	directory Directory
}

// NewTokenResolver builds a TokenResolver with the given signing secret.
func NewTokenResolver(secret []byte, directory Directory) *TokenResolver {
	return &TokenResolver{secret: secret, directory: directory}
}

// Resolve implements Resolver.
func (r *TokenResolver) Resolve(ctx context.Context, credential string) (*Identity, error) {
	token, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrUnauthenticated)
	}

	userID, err := id.ParseUserID(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	ident, err := r.directory.LookupUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	return ident, nil
}

// IssueToken signs an HS256 JWT whose subject is the given user ID, merging
// any extra claims (exp, iat, ...) the caller supplies. Exposed so tests and
// embedding applications can mint credentials the TokenResolver accepts.
func IssueToken(secret []byte, userID id.UserID, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims["sub"] = userID.String()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}

// Static resolves every credential to the same identity. For tests and
// single-user embeddings.
type Static struct {
	Identity Identity
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, _ string) (*Identity, error) {
	ident := s.Identity
	return &ident, nil
}

type contextKey struct{}

// NewContext returns a context carrying the resolved identity.
func NewContext(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, ident)
}

// FromContext returns the identity carried by ctx, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(contextKey{}).(*Identity)
	return ident, ok && ident != nil
}
