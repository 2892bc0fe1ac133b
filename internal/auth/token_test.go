package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	user := &domain.User{ID: "u-1", Role: domain.UserRoleSupport}

	raw, meta, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, 5*time.Minute, meta.ExpiresAt.Sub(meta.IssuedAt))

	claims, err := tm.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.SubjectID)
	assert.Equal(t, domain.UserRoleSupport, claims.Role)
	assert.Equal(t, meta.ID, claims.ID)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	raw, _, err := NewTokenManager("one", 5).GenerateToken(&domain.User{ID: "u", Role: domain.UserRoleEmployee})
	require.NoError(t, err)

	_, err = NewTokenManager("two", 5).ParseToken(raw)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := tm.GenerateToken(&domain.User{ID: "u", Role: domain.UserRoleEmployee})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(raw)
	assert.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	hashed, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "hunter22"))
	assert.Error(t, ComparePassword(hashed, "wrong"))
}
