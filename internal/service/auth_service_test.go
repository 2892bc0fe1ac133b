package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/config"
	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/repository"
)

func newAuthService() *AuthService {
	return NewAuthService(config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: 4},
		repository.NewMemoryUserRepository())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: " Ann@Example.com ", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", reg.User.Email)
	assert.Equal(t, domain.UserRoleEmployee, reg.User.Role)
	assert.NotEmpty(t, reg.AccessToken)

	claims, err := svc.TokenManager().ParseToken(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.SubjectID)

	login, err := svc.Login(ctx, "ANN@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ann@example.com", "wrong-password")
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
	_, err = svc.Login(ctx, "nobody@example.com", "longenough")
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	cases := []RegisterInput{
		{Name: "", Email: "a@example.com", Password: "longenough"},
		{Name: "A", Email: "not-an-email", Password: "longenough"},
		{Name: "A", Email: "a@example.com", Password: "short"},
		{Name: "A", Email: "a@example.com", Password: "longenough", Role: "ADMIN"},
	}
	for _, input := range cases {
		_, err := svc.Register(ctx, input)
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err), "%+v", input)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "a@example.com", Password: "longenough"})
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}
