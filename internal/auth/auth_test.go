package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func setup(t *testing.T) *Authenticator {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Users().Put(ctx, &model.User{ID: "u-admin", Role: model.RoleAdmin, IsActive: true}))
	require.NoError(t, store.Users().Put(ctx, &model.User{ID: "u-gone", Role: model.RoleParticipant, IsActive: false}))
	return NewAuthenticator(secret, "campus-idp", store.Users())
}

func expiresIn(d time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(d))}
}

func TestAuthenticate_Valid(t *testing.T) {
	a := setup(t)
	token, err := Sign(secret, "campus-idp", "u-admin", expiresIn(time.Hour))
	require.NoError(t, err)

	actor, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{UserID: "u-admin", Role: model.RoleAdmin}, actor)
}

func TestAuthenticate_Rejects(t *testing.T) {
	a := setup(t)

	wrongSecret, err := Sign("other", "campus-idp", "u-admin", expiresIn(time.Hour))
	require.NoError(t, err)
	expired, err := Sign(secret, "campus-idp", "u-admin", expiresIn(-time.Minute))
	require.NoError(t, err)
	wrongIssuer, err := Sign(secret, "elsewhere", "u-admin", expiresIn(time.Hour))
	require.NoError(t, err)
	inactive, err := Sign(secret, "campus-idp", "u-gone", expiresIn(time.Hour))
	require.NoError(t, err)
	unknown, err := Sign(secret, "campus-idp", "u-nobody", expiresIn(time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", wrongSecret, ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
		{"inactive user", inactive, ErrInactiveUser},
		{"unknown user", unknown, ErrInactiveUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), model.Actor{UserID: "u1", Role: model.RoleParticipant})
	actor, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", actor.UserID)
}
