package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestTokenValidator(t *testing.T) {
	v, err := NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		token, err := SignToken(testSecret, "user-1", "a@b.co", time.Hour)
		require.NoError(t, err)

		claims, err := v.ValidateToken("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, "a@b.co", claims.Email)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := SignToken(testSecret, "user-1", "a@b.co", -time.Minute)
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := SignToken("another-secret-another-secret-another", "user-1", "", time.Hour)
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"anon"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := v.ValidateToken("  ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestNewTokenValidator_RequiresSecret(t *testing.T) {
	_, err := NewTokenValidator("", "")
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "u1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
}

func TestTokenBucketLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewIPRateLimiter(NewTokenBucketLimiter(60, 2))

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, allowed, "burst exhausted")

	allowed, _ = limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, allowed, "keys are independent")
}

func TestTokenBucketLimiter_ResetAndCleanup(t *testing.T) {
	ctx := context.Background()
	l := NewTokenBucketLimiter(1, 1)

	allowed, _ := l.Allow(ctx, "k")
	assert.True(t, allowed)
	allowed, _ = l.Allow(ctx, "k")
	assert.False(t, allowed)

	require.NoError(t, l.Reset(ctx, "k"))
	allowed, _ = l.Allow(ctx, "k")
	assert.True(t, allowed)

	l.idleTTL = -time.Second
	assert.Equal(t, 1, l.Cleanup())
}
