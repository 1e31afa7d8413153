package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"vitalsense/pkg/auth"
)

func protectedApp(jwtAuth *auth.LocalJWTAuth) *fiber.App {
	app := fiber.New()
	app.Get("/protected", LocalAuthMiddleware(jwtAuth), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": UserID(c)})
	})
	return app
}

func TestLocalAuthMiddlewareRejectsMissingToken(t *testing.T) {
	jwtAuth, err := auth.NewLocalJWTAuth("test-secret", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	app := protectedApp(jwtAuth)

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestLocalAuthMiddlewareRejectsBadToken(t *testing.T) {
	jwtAuth, err := auth.NewLocalJWTAuth("test-secret", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	app := protectedApp(jwtAuth)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestLocalAuthMiddlewareAcceptsValidToken(t *testing.T) {
	jwtAuth, err := auth.NewLocalJWTAuth("test-secret", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	app := protectedApp(jwtAuth)

	access, _, err := jwtAuth.GenerateTokens("user-42", "user@example.com")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
}

func TestLocalAuthMiddlewareDevBypass(t *testing.T) {
	t.Setenv("ENVIRONMENT", "testing")
	app := protectedApp(nil)

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want %d (dev bypass)", resp.StatusCode, fiber.StatusOK)
	}
}
