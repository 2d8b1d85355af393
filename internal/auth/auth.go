// Package auth verifies bearer tokens issued by the campus identity service
// and resolves them to an active user. Tokens are never issued here.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInactiveUser is returned when the token's subject is unknown or deactivated.
	ErrInactiveUser = errors.New("user not found or inactive")
)

// UserLookup resolves a user by id.
type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// Claims is the token payload. The user id travels in the subject; any role
// claim is ignored in favour of the stored user record.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HMAC-signed tokens.
type Authenticator struct {
	secret []byte
	issuer string
	users  UserLookup
}

// NewAuthenticator constructs an Authenticator. An empty issuer disables the
// issuer check.
func NewAuthenticator(secret, issuer string, users UserLookup) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, users: users}
}

// Authenticate verifies token and returns the actor it identifies.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (model.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return model.Actor{}, ErrInvalidToken
	}

	user, err := a.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Actor{}, ErrInactiveUser
		}
		return model.Actor{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return model.Actor{}, ErrInactiveUser
	}
	return model.Actor{UserID: user.ID, Role: user.Role}, nil
}

// Sign creates a token for subject. It exists for tests and local tooling;
// production tokens come from the identity service.
func Sign(secret, issuer, subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	if issuer != "" {
		claims.Issuer = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: claims}).SignedString([]byte(secret))
}

type ctxKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(model.Actor)
	return actor, ok
}
