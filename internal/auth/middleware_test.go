package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/repository"
	apperrors "github.com/spec-kit/itsupport-service/pkg/util/errorutil"
)

func newAuthApp(t *testing.T) (*fiber.App, *TokenManager, repository.UserRepository) {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	tokens := NewTokenManager("secret", 10)
	mw := NewAuthMiddleware(tokens, users)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/any", mw.Handle, RequireAuthenticated(), func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		return c.SendString(p.User.ID)
	})
	app.Get("/support", mw.Handle, RequireRole(domain.UserRoleSupport), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tokens, users
}

func bearer(t *testing.T, tokens *TokenManager, user *domain.User) string {
	t.Helper()
	raw, _, err := tokens.GenerateToken(user)
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestAuthMiddleware(t *testing.T) {
	app, tokens, users := newAuthApp(t)
	employee := &domain.User{Name: "E", Email: "e@example.com", Role: domain.UserRoleEmployee}
	support := &domain.User{Name: "S", Email: "s@example.com", Role: domain.UserRoleSupport}
	require.NoError(t, users.Create(context.Background(), employee))
	require.NoError(t, users.Create(context.Background(), support))

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/any", "", http.StatusUnauthorized},
		{"wrong scheme", "/any", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/any", "Bearer nope", http.StatusUnauthorized},
		{"unknown user", "/any", bearer(t, tokens, &domain.User{ID: "ghost", Role: domain.UserRoleEmployee}), http.StatusUnauthorized},
		{"employee ok", "/any", bearer(t, tokens, employee), http.StatusOK},
		{"employee forbidden", "/support", bearer(t, tokens, employee), http.StatusForbidden},
		{"support ok", "/support", bearer(t, tokens, support), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
