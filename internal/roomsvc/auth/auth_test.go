package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	s := NewService(NewMemoryStore(), "test-secret", ttl)
	s.cost = bcrypt.MinCost
	require.NoError(t, s.SeedSuperAdmin(context.Background(), "Admin@Tombola.it", "secret1", "Boss"))
	return s
}

func TestLoginAndVerify(t *testing.T) {
	s := newTestService(t, time.Hour)
	ctx := context.Background()

	op, token, err := s.Login(ctx, "admin@tombola.it", "secret1")
	require.NoError(t, err)
	assert.True(t, op.SuperAdmin)
	assert.NotEmpty(t, token)

	id, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registry.Identity{Email: "admin@tombola.it", Name: "Boss", SuperAdmin: true}, id)

	_, _, err = s.Login(ctx, "admin@tombola.it", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "nobody@tombola.it", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	s := newTestService(t, time.Hour)
	other := NewService(NewMemoryStore(), "another-secret", time.Hour)

	op, _, err := s.Login(context.Background(), "admin@tombola.it", "secret1")
	require.NoError(t, err)
	forged, err := other.Issue(op)
	require.NoError(t, err)

	_, err = s.Verify(forged)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = s.Verify("not-a-token")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := newTestService(t, time.Hour)
	_, token, err := s.tokens.Encode(map[string]interface{}{
		"email": "admin@tombola.it",
		"exp":   time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestCreateOperator(t *testing.T) {
	s := newTestService(t, time.Hour)
	ctx := context.Background()
	boss := &registry.Identity{Email: "admin@tombola.it", SuperAdmin: true}

	op, err := s.CreateOperator(ctx, boss, "host@example.com", "hunter22", "Host")
	require.NoError(t, err)
	assert.False(t, op.SuperAdmin)
	assert.NotZero(t, op.ID)

	_, _, err = s.Login(ctx, "HOST@example.com", "hunter22")
	assert.NoError(t, err)

	_, err = s.CreateOperator(ctx, boss, "host@example.com", "hunter22", "Again")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = s.CreateOperator(ctx, &registry.Identity{Email: "host@example.com"}, "x@example.com", "hunter22", "X")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = s.CreateOperator(ctx, nil, "x@example.com", "hunter22", "X")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = s.CreateOperator(ctx, boss, "not an email", "hunter22", "X")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = s.CreateOperator(ctx, boss, "y@example.com", "123", "Y")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSeedIsIdempotent(t *testing.T) {
	s := newTestService(t, time.Hour)
	require.NoError(t, s.SeedSuperAdmin(context.Background(), "admin@tombola.it", "other-password", "Boss"))

	_, _, err := s.Login(context.Background(), "admin@tombola.it", "secret1")
	assert.NoError(t, err)
}

func TestIdentityFromClaims(t *testing.T) {
	_, err := IdentityFromClaims(map[string]interface{}{"name": "x"})
	assert.Error(t, err)

	id, err := IdentityFromClaims(map[string]interface{}{"email": "a@b.it", "super_admin": true})
	require.NoError(t, err)
	assert.True(t, id.SuperAdmin)
}
